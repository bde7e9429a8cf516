package criteria

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// Parameters that travel alongside filters and are never parsed as one.
var reservedParams = map[string]bool{
	"page":        true,
	"size":        true,
	"sort":        true,
	"query":       true,
	"eagerload":   true,
	"distinct":    true,
	"cacheBuster": true,
}

// Parse builds criteria from field.operator=value query parameters.
// Every parameter must name a known field and an operator its kind supports.
func (s *Schema) Parse(values url.Values) (Criteria, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !reservedParams[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out Criteria
	for _, key := range keys {
		idx := strings.LastIndex(key, ".")
		if idx <= 0 || idx == len(key)-1 {
			return nil, &FilterError{Param: key, Reason: "expected <field>.<operator>"}
		}
		name, op := key[:idx], Operator(key[idx+1:])

		def, ok := s.fields[name]
		if !ok {
			return nil, &FilterError{Param: key, Reason: fmt.Sprintf("unknown field %q on %s", name, s.entity)}
		}
		if !op.Valid() {
			return nil, &FilterError{Param: key, Reason: fmt.Sprintf("unknown operator %q", op)}
		}
		if !def.Kind.Supports(op) {
			return nil, &FilterError{Param: key, Reason: fmt.Sprintf("operator %q is not supported on %s field %q", op, def.Kind, name)}
		}

		for _, raw := range values[key] {
			expr, err := def.build(op, raw)
			if err != nil {
				return nil, &FilterError{Param: key, Reason: err.Error()}
			}
			out = append(out, Condition{Field: name, Expr: expr})
		}
	}
	return out, nil
}

func (d FieldDef) build(op Operator, raw string) (Expr, error) {
	if op == OpSpecified {
		present, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("specified expects true or false, got %q", raw)
		}
		return Specified{Present: present}, nil
	}

	switch d.Kind {
	case KindString:
		switch op {
		case OpContains:
			return Contains{Value: raw}, nil
		case OpDoesNotContain:
			return DoesNotContain{Value: raw}, nil
		}
		return buildExpr(op, raw, func(v string) (string, error) { return v, nil })
	case KindLong:
		return buildExpr(op, raw, ParseLong)
	case KindDouble:
		return buildExpr(op, raw, ParseDouble)
	case KindBool:
		return buildExpr(op, raw, ParseBool)
	case KindTime:
		return buildExpr(op, raw, ParseTime)
	case KindDuration:
		return buildExpr(op, raw, ParseDuration)
	case KindEnum:
		return buildExpr(op, raw, d.parseEnum)
	case KindEnumSet:
		return buildExpr(op, raw, d.parseEnumSet)
	case KindReference:
		if d.Elem == KindLong {
			return buildExpr(op, raw, ParseLong)
		}
		return buildExpr(op, raw, func(v string) (string, error) { return v, nil })
	}
	return nil, fmt.Errorf("field kind %s cannot be filtered", d.Kind)
}

func buildExpr[T any](op Operator, raw string, conv func(string) (T, error)) (Expr, error) {
	if op == OpIn {
		parts := strings.Split(raw, ",")
		vals := make([]T, 0, len(parts))
		for _, p := range parts {
			v, err := conv(strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return In[T]{Values: vals}, nil
	}

	v, err := conv(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case op == OpEquals:
		return Equals[T]{Value: v}, nil
	case op == OpNotEquals:
		return NotEquals[T]{Value: v}, nil
	case op.isRange():
		return Range[T]{Cmp: op, Value: v}, nil
	}
	return nil, fmt.Errorf("operator %q cannot take a value", op)
}

func (d FieldDef) parseEnum(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	for _, allowed := range d.Values {
		if v == allowed {
			return v, nil
		}
	}
	return "", fmt.Errorf("%q is not one of %s", raw, strings.Join(d.Values, ", "))
}

func (d FieldDef) parseEnumSet(raw string) (string, error) {
	if d.Normalize == nil {
		return raw, nil
	}
	return d.Normalize(raw)
}

func ParseLong(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	return v, nil
}

func ParseDouble(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	return v, nil
}

func ParseBool(raw string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%q is not a boolean", raw)
	}
	return v, nil
}

// ParseTime accepts RFC 3339 timestamps with or without fractional seconds.
func ParseTime(raw string) (time.Time, error) {
	v, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not an RFC 3339 timestamp", raw)
	}
	return v.UTC(), nil
}

// ParseDuration accepts ISO-8601 durations (PT6H) and Go duration strings (6h).
func ParseDuration(raw string) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if d, err := duration.Parse(v); err == nil {
		return d.ToTimeDuration(), nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("%q is not a duration", raw)
}
