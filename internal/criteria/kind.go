// Package criteria turns field.operator=value filters into gorm predicates.
//
// Filters are typed variants (Equals, NotEquals, In, Specified, Range,
// Contains, DoesNotContain). They are either built in code through the
// typed builders in builder.go or parsed from a query string against a
// Schema that declares which fields exist and what kind of value they hold.
package criteria

// Kind is the value type of a filterable field.
type Kind int

const (
	KindString Kind = iota
	KindLong
	KindDouble
	KindBool
	KindTime
	KindDuration
	KindEnum
	KindEnumSet
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindLong:
		return "long"
	case KindDouble:
		return "double"
	case KindBool:
		return "boolean"
	case KindTime:
		return "timestamp"
	case KindDuration:
		return "duration"
	case KindEnum:
		return "enum"
	case KindEnumSet:
		return "enum set"
	case KindReference:
		return "reference"
	}
	return "unknown"
}

// Ordered reports whether the kind has a natural total order.
func (k Kind) Ordered() bool {
	switch k {
	case KindLong, KindDouble, KindTime, KindDuration:
		return true
	}
	return false
}

// Supports reports whether op may be applied to a field of this kind.
func (k Kind) Supports(op Operator) bool {
	switch op {
	case OpEquals, OpNotEquals, OpIn, OpSpecified:
		return true
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return k.Ordered()
	case OpContains, OpDoesNotContain:
		return k == KindString
	}
	return false
}

// Operator is the token after the last '.' of a filter parameter.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpIn                 Operator = "in"
	OpSpecified          Operator = "specified"
	OpGreaterThan        Operator = "greaterThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThan           Operator = "lessThan"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpContains           Operator = "contains"
	OpDoesNotContain     Operator = "doesNotContain"
)

var operators = map[Operator]bool{
	OpEquals:             true,
	OpNotEquals:          true,
	OpIn:                 true,
	OpSpecified:          true,
	OpGreaterThan:        true,
	OpGreaterThanOrEqual: true,
	OpLessThan:           true,
	OpLessThanOrEqual:    true,
	OpContains:           true,
	OpDoesNotContain:     true,
}

// Valid reports whether op is part of the operator vocabulary.
func (op Operator) Valid() bool {
	return operators[op]
}

func (op Operator) isRange() bool {
	switch op {
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return true
	}
	return false
}

func (op Operator) sqlComparator() string {
	switch op {
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	}
	return "="
}
