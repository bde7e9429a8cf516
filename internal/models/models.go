package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is the root of members, settings and bills.
type Project struct {
	ID              int64     `gorm:"primaryKey" json:"id,omitempty"`
	Name            string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Key             string    `gorm:"column:project_key;size:255;not null" json:"key" binding:"required"`
	CreateTimestamp time.Time `gorm:"not null" json:"createTimestamp" binding:"required"`
}

func (Project) TableName() string  { return "projects" }
func (Project) EntityName() string { return "project" }
func (p *Project) GetID() int64    { return p.ID }

func (*Project) Dependents() []Dependent {
	return []Dependent{
		{Table: "project_settings", Column: "project_id"},
		{Table: "project_members", Column: "project_id"},
		{Table: "bills", Column: "project_id"},
	}
}

// ProjectSettings shares its id with the owning project.
type ProjectSettings struct {
	ID                           int64 `gorm:"primaryKey;autoIncrement:false" json:"id,omitempty"`
	MustProvideBillCopyByDefault *bool `gorm:"not null" json:"mustProvideBillCopyByDefault" binding:"required"`
	ProjectID                    int64 `gorm:"not null;index" json:"projectId" binding:"required"`
}

func (ProjectSettings) TableName() string  { return "project_settings" }
func (ProjectSettings) EntityName() string { return "project-settings" }
func (s *ProjectSettings) GetID() int64    { return s.ID }

// BeforeCreate copies the owner's id; it is never changed afterwards.
func (s *ProjectSettings) BeforeCreate(tx *gorm.DB) error {
	s.ID = s.ProjectID
	return nil
}

func (s *ProjectSettings) References() []Reference {
	return []Reference{{Field: "projectId", Table: "projects", ID: s.ProjectID}}
}

// Bill collects positions within a project.
type Bill struct {
	ID              int64      `gorm:"primaryKey" json:"id,omitempty"`
	Title           string     `gorm:"size:255;not null" json:"title" binding:"required"`
	ClosedTimestamp *time.Time `json:"closedTimestamp"`
	FinalAmount     *float64   `json:"finalAmount"`
	ProjectID       int64      `gorm:"not null;index" json:"projectId" binding:"required"`
}

func (Bill) TableName() string  { return "bills" }
func (Bill) EntityName() string { return "bill" }
func (b *Bill) GetID() int64    { return b.ID }

func (*Bill) Dependents() []Dependent {
	return []Dependent{{Table: "bill_positions", Column: "bill_id"}}
}

func (b *Bill) References() []Reference {
	return []Reference{{Field: "projectId", Table: "projects", ID: b.ProjectID}}
}

type BillPosition struct {
	ID     int64    `gorm:"primaryKey" json:"id,omitempty"`
	Title  string   `gorm:"size:255;not null" json:"title" binding:"required"`
	Cost   *float64 `gorm:"not null" json:"cost" binding:"required"`
	Order  *int     `gorm:"column:position_order" json:"order"`
	BillID int64    `gorm:"not null;index" json:"billId" binding:"required"`
}

func (BillPosition) TableName() string  { return "bill_positions" }
func (BillPosition) EntityName() string { return "bill-position" }
func (p *BillPosition) GetID() int64    { return p.ID }

func (p *BillPosition) References() []Reference {
	return []Reference{{Field: "billId", Table: "bills", ID: p.BillID}}
}
