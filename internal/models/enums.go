package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

type ProjectPermission string

const (
	PermissionCloseProject ProjectPermission = "CLOSE_PROJECT"
	PermissionCloseBill    ProjectPermission = "CLOSE_BILL"
	PermissionAddMember    ProjectPermission = "ADD_MEMBER"
)

// ProjectPermissionValues in declaration order.
var ProjectPermissionValues = []string{
	string(PermissionCloseProject),
	string(PermissionCloseBill),
	string(PermissionAddMember),
}

type ProjectMemberRoleKind string

const (
	RoleProjectAdmin    ProjectMemberRoleKind = "PROJECT_ADMIN"
	RoleBillContributor ProjectMemberRoleKind = "BILL_CONTRIBUTOR"
)

var ProjectMemberRoleValues = []string{
	string(RoleProjectAdmin),
	string(RoleBillContributor),
}

// canonicalSet orders members by declaration and drops duplicates.
func canonicalSet(members []string, declared []string) (string, error) {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if !contains(declared, m) {
			return "", fmt.Errorf("%q is not one of %s", m, strings.Join(declared, ", "))
		}
		seen[m] = true
	}
	out := make([]string, 0, len(seen))
	for _, d := range declared {
		if seen[d] {
			out = append(out, d)
		}
	}
	return strings.Join(out, ","), nil
}

// normalizeSetFilter accepts "A|B" or "[A|B]" as used in filter values.
func normalizeSetFilter(raw string, declared []string) (string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	return canonicalSet(strings.Split(raw, "|"), declared)
}

func splitSet(src any) ([]string, error) {
	var s string
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil, fmt.Errorf("cannot scan %T into enum set", src)
	}
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, ","), nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ProjectPermissionSet is stored as a canonical comma-joined string;
// an empty set is stored as NULL.
type ProjectPermissionSet []ProjectPermission

// NormalizeProjectPermissions canonicalises a filter value.
func NormalizeProjectPermissions(raw string) (string, error) {
	return normalizeSetFilter(raw, ProjectPermissionValues)
}

func (s ProjectPermissionSet) Canonical() (string, error) {
	members := make([]string, len(s))
	for i, p := range s {
		members[i] = string(p)
	}
	return canonicalSet(members, ProjectPermissionValues)
}

func (s ProjectPermissionSet) Value() (driver.Value, error) {
	c, err := s.Canonical()
	if err != nil || c == "" {
		return nil, err
	}
	return c, nil
}

func (s *ProjectPermissionSet) Scan(src any) error {
	parts, err := splitSet(src)
	if err != nil {
		return err
	}
	out := make(ProjectPermissionSet, 0, len(parts))
	for _, p := range parts {
		out = append(out, ProjectPermission(p))
	}
	if len(out) == 0 {
		out = nil
	}
	*s = out
	return nil
}

func (ProjectPermissionSet) GormDataType() string { return "string" }

// ProjectMemberRoleSet mirrors ProjectPermissionSet for roles.
type ProjectMemberRoleSet []ProjectMemberRoleKind

func NormalizeProjectMemberRoles(raw string) (string, error) {
	return normalizeSetFilter(raw, ProjectMemberRoleValues)
}

func (s ProjectMemberRoleSet) Canonical() (string, error) {
	members := make([]string, len(s))
	for i, r := range s {
		members[i] = string(r)
	}
	return canonicalSet(members, ProjectMemberRoleValues)
}

func (s ProjectMemberRoleSet) Value() (driver.Value, error) {
	c, err := s.Canonical()
	if err != nil || c == "" {
		return nil, err
	}
	return c, nil
}

func (s *ProjectMemberRoleSet) Scan(src any) error {
	parts, err := splitSet(src)
	if err != nil {
		return err
	}
	out := make(ProjectMemberRoleSet, 0, len(parts))
	for _, p := range parts {
		out = append(out, ProjectMemberRoleKind(p))
	}
	if len(out) == 0 {
		out = nil
	}
	*s = out
	return nil
}

func (ProjectMemberRoleSet) GormDataType() string { return "string" }
