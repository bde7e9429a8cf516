package criteria

import "time"

// Filter builds equality-family conditions for one field.
type Filter[T any] struct {
	field string
}

// On starts a filter on an arbitrary field.
func On[T any](field string) Filter[T] {
	return Filter[T]{field: field}
}

func (f Filter[T]) Equals(v T) Condition {
	return Condition{Field: f.field, Expr: Equals[T]{Value: v}}
}

func (f Filter[T]) NotEquals(v T) Condition {
	return Condition{Field: f.field, Expr: NotEquals[T]{Value: v}}
}

func (f Filter[T]) In(vs ...T) Condition {
	return Condition{Field: f.field, Expr: In[T]{Values: vs}}
}

func (f Filter[T]) Specified(present bool) Condition {
	return Condition{Field: f.field, Expr: Specified{Present: present}}
}

// OrderedFilter adds range comparisons.
type OrderedFilter[T any] struct {
	Filter[T]
}

func (f OrderedFilter[T]) GreaterThan(v T) Condition {
	return Condition{Field: f.field, Expr: Range[T]{Cmp: OpGreaterThan, Value: v}}
}

func (f OrderedFilter[T]) GreaterThanOrEqual(v T) Condition {
	return Condition{Field: f.field, Expr: Range[T]{Cmp: OpGreaterThanOrEqual, Value: v}}
}

func (f OrderedFilter[T]) LessThan(v T) Condition {
	return Condition{Field: f.field, Expr: Range[T]{Cmp: OpLessThan, Value: v}}
}

func (f OrderedFilter[T]) LessThanOrEqual(v T) Condition {
	return Condition{Field: f.field, Expr: Range[T]{Cmp: OpLessThanOrEqual, Value: v}}
}

// StringFilter adds substring matching.
type StringFilter struct {
	Filter[string]
}

func (f StringFilter) Contains(s string) Condition {
	return Condition{Field: f.field, Expr: Contains{Value: s}}
}

func (f StringFilter) DoesNotContain(s string) Condition {
	return Condition{Field: f.field, Expr: DoesNotContain{Value: s}}
}

func String(field string) StringFilter {
	return StringFilter{Filter[string]{field: field}}
}

func Long(field string) OrderedFilter[int64] {
	return OrderedFilter[int64]{Filter[int64]{field: field}}
}

func Double(field string) OrderedFilter[float64] {
	return OrderedFilter[float64]{Filter[float64]{field: field}}
}

func Time(field string) OrderedFilter[time.Time] {
	return OrderedFilter[time.Time]{Filter[time.Time]{field: field}}
}

func Duration(field string) OrderedFilter[time.Duration] {
	return OrderedFilter[time.Duration]{Filter[time.Duration]{field: field}}
}

func Bool(field string) Filter[bool] {
	return Filter[bool]{field: field}
}

// Enum filters on a single enum value or a canonical enum-set string.
func Enum(field string) Filter[string] {
	return Filter[string]{field: field}
}

// Ref filters on the id of a referenced entity.
func Ref[ID any](field string) Filter[ID] {
	return Filter[ID]{field: field}
}
