package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectMember shares its id with the project it belongs to.
type ProjectMember struct {
	ID                           int64                `gorm:"primaryKey;autoIncrement:false" json:"id,omitempty"`
	AdditionalProjectPermissions ProjectPermissionSet `gorm:"size:255" json:"additionalProjectPermissions"`
	RoleInProject                ProjectMemberRoleSet `gorm:"size:255" json:"roleInProject"`
	AddedTimestamp               time.Time            `gorm:"not null" json:"addedTimestamp" binding:"required"`
	UserID                       *string              `gorm:"size:100;index" json:"userId"`
	ProjectID                    int64                `gorm:"not null;index" json:"projectId" binding:"required"`
}

func (ProjectMember) TableName() string  { return "project_members" }
func (ProjectMember) EntityName() string { return "project-member" }
func (m *ProjectMember) GetID() int64    { return m.ID }

// BeforeCreate copies the owner's id; it is never changed afterwards.
func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	m.ID = m.ProjectID
	return nil
}

func (*ProjectMember) Dependents() []Dependent {
	return []Dependent{
		{Table: "project_member_permission_assignments", Column: "project_member_id"},
		{Table: "project_member_role_assignments", Column: "project_member_id"},
	}
}

func (m *ProjectMember) References() []Reference {
	return []Reference{{Field: "projectId", Table: "projects", ID: m.ProjectID}}
}

func (m *ProjectMember) Validate() error {
	if _, err := m.AdditionalProjectPermissions.Canonical(); err != nil {
		return err
	}
	_, err := m.RoleInProject.Canonical()
	return err
}

type ProjectMemberPermission struct {
	ID                      int64             `gorm:"primaryKey" json:"id,omitempty"`
	CreatedTimestamp        time.Time         `gorm:"not null" json:"createdTimestamp" binding:"required"`
	ProjectMemberPermission ProjectPermission `gorm:"size:50;not null" json:"projectMemberPermission" binding:"required,oneof=CLOSE_PROJECT CLOSE_BILL ADD_MEMBER"`
}

func (ProjectMemberPermission) TableName() string  { return "project_member_permissions" }
func (ProjectMemberPermission) EntityName() string { return "project-member-permission" }
func (p *ProjectMemberPermission) GetID() int64    { return p.ID }

func (*ProjectMemberPermission) Dependents() []Dependent {
	return []Dependent{{Table: PermissionAssignmentJoinTable, Column: "permission_id"}}
}

type ProjectMemberRole struct {
	ID                int64                 `gorm:"primaryKey" json:"id,omitempty"`
	CreatedTimestamp  time.Time             `gorm:"not null" json:"createdTimestamp" binding:"required"`
	ProjectMemberRole ProjectMemberRoleKind `gorm:"size:50;not null" json:"projectMemberRole" binding:"required,oneof=PROJECT_ADMIN BILL_CONTRIBUTOR"`
}

func (ProjectMemberRole) TableName() string  { return "project_member_roles" }
func (ProjectMemberRole) EntityName() string { return "project-member-role" }
func (r *ProjectMemberRole) GetID() int64    { return r.ID }

func (*ProjectMemberRole) Dependents() []Dependent {
	return []Dependent{{Table: RoleAssignmentJoinTable, Column: "role_id"}}
}

// Join tables of the assignment associations.
const (
	PermissionAssignmentJoinTable = "permission_assignment_permissions"
	RoleAssignmentJoinTable       = "role_assignment_roles"
)

// ProjectMemberPermissionAssignment shares its id with the project member.
type ProjectMemberPermissionAssignment struct {
	ID                       int64                     `gorm:"primaryKey;autoIncrement:false" json:"id,omitempty"`
	AssignmentTimestamp      time.Time                 `gorm:"not null" json:"assignmentTimestamp" binding:"required"`
	ProjectMemberID          int64                     `gorm:"not null;index" json:"projectMemberId" binding:"required"`
	ProjectMemberPermissions []ProjectMemberPermission `gorm:"many2many:permission_assignment_permissions;joinForeignKey:AssignmentID;joinReferences:PermissionID" json:"projectMemberPermissions"`
}

func (ProjectMemberPermissionAssignment) TableName() string {
	return "project_member_permission_assignments"
}
func (ProjectMemberPermissionAssignment) EntityName() string {
	return "project-member-permission-assignment"
}
func (a *ProjectMemberPermissionAssignment) GetID() int64 { return a.ID }

func (a *ProjectMemberPermissionAssignment) BeforeCreate(tx *gorm.DB) error {
	a.ID = a.ProjectMemberID
	return nil
}

func (a *ProjectMemberPermissionAssignment) References() []Reference {
	refs := []Reference{{Field: "projectMemberId", Table: "project_members", ID: a.ProjectMemberID}}
	for _, p := range a.ProjectMemberPermissions {
		refs = append(refs, Reference{Field: "projectMemberPermissions", Table: "project_member_permissions", ID: p.ID})
	}
	return refs
}

func (ProjectMemberPermissionAssignment) Associations() []string {
	return []string{"ProjectMemberPermissions"}
}

// ProjectMemberRoleAssignment shares its id with the project member.
type ProjectMemberRoleAssignment struct {
	ID                  int64               `gorm:"primaryKey;autoIncrement:false" json:"id,omitempty"`
	AssignmentTimestamp time.Time           `gorm:"not null" json:"assignmentTimestamp" binding:"required"`
	ProjectMemberID     int64               `gorm:"not null;index" json:"projectMemberId" binding:"required"`
	ProjectMemberRoles  []ProjectMemberRole `gorm:"many2many:role_assignment_roles;joinForeignKey:AssignmentID;joinReferences:RoleID" json:"projectMemberRoles"`
}

func (ProjectMemberRoleAssignment) TableName() string  { return "project_member_role_assignments" }
func (ProjectMemberRoleAssignment) EntityName() string { return "project-member-role-assignment" }
func (a *ProjectMemberRoleAssignment) GetID() int64    { return a.ID }

func (a *ProjectMemberRoleAssignment) BeforeCreate(tx *gorm.DB) error {
	a.ID = a.ProjectMemberID
	return nil
}

func (a *ProjectMemberRoleAssignment) References() []Reference {
	refs := []Reference{{Field: "projectMemberId", Table: "project_members", ID: a.ProjectMemberID}}
	for _, r := range a.ProjectMemberRoles {
		refs = append(refs, Reference{Field: "projectMemberRoles", Table: "project_member_roles", ID: r.ID})
	}
	return refs
}

func (ProjectMemberRoleAssignment) Associations() []string {
	return []string{"ProjectMemberRoles"}
}
