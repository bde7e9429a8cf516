package models

import (
	"reflect"
	"time"
)

// Entity is a persisted row that is mirrored to the search index.
type Entity[ID comparable] interface {
	// EntityName is the search index name, e.g. "project".
	EntityName() string
	GetID() ID
}

// Reference is a foreign key that must resolve before a write.
type Reference struct {
	Field string
	Table string
	ID    any // nil means unset
}

// Referencing entities list the rows they point at.
type Referencing interface {
	References() []Reference
}

// Dependent is a column of another table that points at an owner row.
type Dependent struct {
	Table  string
	Column string
}

// Owned entities cannot be deleted while a dependent row points at them.
type Owned interface {
	Dependents() []Dependent
}

// Validatable entities check rules the binding tags cannot express.
type Validatable interface {
	Validate() error
}

// AssociationOwner entities have many-to-many associations that are
// preloaded on read and replaced on write.
type AssociationOwner interface {
	Associations() []string
}

var timeType = reflect.TypeOf(time.Time{})

// NormalizeTimes converts every time.Time and *time.Time field of the
// struct pointed to by v to UTC.
func NormalizeTimes(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch {
		case f.Type() == timeType:
			f.Set(reflect.ValueOf(f.Interface().(time.Time).UTC()))
		case f.Kind() == reflect.Ptr && f.Type().Elem() == timeType && !f.IsNil():
			t := f.Elem().Interface().(time.Time).UTC()
			f.Set(reflect.ValueOf(&t))
		}
	}
}

func ptrRef[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
