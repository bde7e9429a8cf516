package models

import "time"

type Product struct {
	ID                             int64     `gorm:"primaryKey" json:"id,omitempty"`
	Title                          *string   `gorm:"size:255" json:"title"`
	ScannerID                      *string   `gorm:"size:255;index" json:"scannerId"`
	UsualDurationFromBuyTillExpire *Duration `gorm:"type:bigint;not null" json:"usualDurationFromBuyTillExpire" binding:"required"`
	ExpireMeansBad                 *bool     `json:"expireMeansBad"`
	DefaultPrice                   *float64  `gorm:"not null" json:"defaultPrice" binding:"required"`
}

func (Product) TableName() string  { return "products" }
func (Product) EntityName() string { return "product" }
func (p *Product) GetID() int64    { return p.ID }

func (*Product) Dependents() []Dependent {
	return []Dependent{{Table: "stocks", Column: "product_id"}}
}

// Stock is a single purchased unit of a product.
type Stock struct {
	ID                        int64      `gorm:"primaryKey" json:"id,omitempty"`
	AddedTimestamp            time.Time  `gorm:"not null" json:"addedTimestamp" binding:"required"`
	StorageLocation           *string    `gorm:"size:255" json:"storageLocation"`
	CalculatedExpiryTimestamp time.Time  `gorm:"not null" json:"calculatedExpiryTimestamp" binding:"required"`
	ManualSetExpiryTimestamp  *time.Time `json:"manualSetExpiryTimestamp"`
	ProductID                 int64      `gorm:"not null;index" json:"productId" binding:"required"`
}

func (Stock) TableName() string  { return "stocks" }
func (Stock) EntityName() string { return "stock" }
func (s *Stock) GetID() int64    { return s.ID }

func (s *Stock) References() []Reference {
	return []Reference{{Field: "productId", Table: "products", ID: s.ProductID}}
}
