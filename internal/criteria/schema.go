package criteria

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is wrapped by every parse and validation failure.
var ErrInvalidFilter = errors.New("invalid filter")

// FilterError describes a rejected filter or sort parameter.
type FilterError struct {
	Param  string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Param, e.Reason)
}

func (e *FilterError) Unwrap() error { return ErrInvalidFilter }

// Join routes a many-to-many reference through its join table.
type Join struct {
	Table        string
	OwnerColumn  string
	TargetColumn string
}

// FieldDef declares one filterable field.
type FieldDef struct {
	Name   string
	Column string
	Kind   Kind
	// Elem is the id kind of a reference (KindLong or KindString).
	Elem Kind
	// Values lists the members of an enum.
	Values []string
	// Normalize canonicalises enum-set values.
	Normalize func(string) (string, error)
	Join      *Join
}

// Schema is the set of filterable fields of one entity.
type Schema struct {
	entity  string
	pk      string
	fields  map[string]FieldDef
	ordered []string
}

// NewSchema creates a schema whose primary key column is "id".
func NewSchema(entity string) *Schema {
	return &Schema{
		entity: entity,
		pk:     "id",
		fields: make(map[string]FieldDef),
	}
}

func (s *Schema) Entity() string { return s.entity }

// Add registers a field. Registering the same name twice replaces it.
func (s *Schema) Add(def FieldDef) *Schema {
	if _, ok := s.fields[def.Name]; !ok {
		s.ordered = append(s.ordered, def.Name)
	}
	s.fields[def.Name] = def
	return s
}

func (s *Schema) String(name, column string) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindString})
}

func (s *Schema) Long(name, column string) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindLong})
}

func (s *Schema) Double(name, column string) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindDouble})
}

func (s *Schema) Bool(name, column string) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindBool})
}

func (s *Schema) Time(name, column string) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindTime})
}

func (s *Schema) Duration(name, column string) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindDuration})
}

func (s *Schema) Enum(name, column string, values ...string) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindEnum, Values: values})
}

func (s *Schema) EnumSet(name, column string, normalize func(string) (string, error)) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindEnumSet, Normalize: normalize})
}

func (s *Schema) Ref(name, column string, elem Kind) *Schema {
	return s.Add(FieldDef{Name: name, Column: column, Kind: KindReference, Elem: elem})
}

// JoinRef registers a many-to-many reference filtered through a join table.
func (s *Schema) JoinRef(name string, join Join, elem Kind) *Schema {
	return s.Add(FieldDef{Name: name, Column: join.TargetColumn, Kind: KindReference, Elem: elem, Join: &join})
}

// Field looks a field up by its filter name.
func (s *Schema) Field(name string) (FieldDef, bool) {
	def, ok := s.fields[name]
	return def, ok
}

// Fields returns the field names in registration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}
