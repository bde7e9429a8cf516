package criteria

import (
	"reflect"
	"time"
)

// Expr is a single typed predicate on one field.
type Expr interface {
	Op() Operator
	where(col string, d dialect) (string, []any)
}

// Condition binds an Expr to a field name.
type Condition struct {
	Field string
	Expr  Expr
}

// Criteria is a conjunction of conditions.
type Criteria []Condition

// And returns c extended with more conditions.
func (c Criteria) And(conds ...Condition) Criteria {
	out := make(Criteria, 0, len(c)+len(conds))
	out = append(out, c...)
	return append(out, conds...)
}

type Equals[T any] struct{ Value T }

func (Equals[T]) Op() Operator { return OpEquals }

func (e Equals[T]) where(col string, _ dialect) (string, []any) {
	return col + " = ?", []any{arg(e.Value)}
}

type NotEquals[T any] struct{ Value T }

func (NotEquals[T]) Op() Operator { return OpNotEquals }

func (e NotEquals[T]) where(col string, _ dialect) (string, []any) {
	return col + " <> ?", []any{arg(e.Value)}
}

type In[T any] struct{ Values []T }

func (In[T]) Op() Operator { return OpIn }

func (e In[T]) where(col string, _ dialect) (string, []any) {
	if len(e.Values) == 0 {
		return "1 = 0", nil
	}
	vals := make([]any, len(e.Values))
	for i, v := range e.Values {
		vals[i] = arg(v)
	}
	return col + " IN ?", []any{vals}
}

// Specified with Present=false selects SQL NULL.
type Specified struct{ Present bool }

func (Specified) Op() Operator { return OpSpecified }

func (e Specified) where(col string, _ dialect) (string, []any) {
	if e.Present {
		return col + " IS NOT NULL", nil
	}
	return col + " IS NULL", nil
}

// Range is one of the four ordered comparisons.
type Range[T any] struct {
	Cmp   Operator
	Value T
}

func (e Range[T]) Op() Operator { return e.Cmp }

func (e Range[T]) where(col string, _ dialect) (string, []any) {
	return col + " " + e.Cmp.sqlComparator() + " ?", []any{arg(e.Value)}
}

// Contains is a case-sensitive substring match. NULL never matches.
type Contains struct{ Value string }

func (Contains) Op() Operator { return OpContains }

func (e Contains) where(col string, d dialect) (string, []any) {
	return d.position(col) + " > 0", []any{e.Value}
}

// DoesNotContain is the negation of Contains. NULL never matches.
type DoesNotContain struct{ Value string }

func (DoesNotContain) Op() Operator { return OpDoesNotContain }

func (e DoesNotContain) where(col string, d dialect) (string, []any) {
	return d.position(col) + " = 0", []any{e.Value}
}

// arg normalises bound values: timestamps are compared in UTC and
// durations as their nanosecond count.
func arg(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case time.Duration:
		return int64(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return arg(rv.Elem().Interface())
	}
	return v
}

// dialect is the gorm dialector name.
type dialect string

// position renders a case-sensitive substring position expression whose
// second argument is the bound needle.
func (d dialect) position(col string) string {
	switch d {
	case "postgres":
		return "STRPOS(" + col + ", ?)"
	case "mysql":
		return "INSTR(BINARY " + col + ", ?)"
	}
	return "INSTR(" + col + ", ?)"
}
