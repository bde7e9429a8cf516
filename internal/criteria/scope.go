package criteria

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Where renders one condition as SQL against this schema.
func (s *Schema) Where(cond Condition, d string) (string, []any, error) {
	def, ok := s.fields[cond.Field]
	if !ok {
		return "", nil, &FilterError{Param: cond.Field, Reason: fmt.Sprintf("unknown field on %s", s.entity)}
	}
	if cond.Expr == nil {
		return "", nil, &FilterError{Param: cond.Field, Reason: "missing expression"}
	}
	if !def.Kind.Supports(cond.Expr.Op()) {
		return "", nil, &FilterError{Param: cond.Field + "." + string(cond.Expr.Op()), Reason: "operator not supported on " + def.Kind.String()}
	}

	if def.Join == nil {
		sql, args := cond.Expr.where(def.Column, dialect(d))
		return sql, args, nil
	}

	j := def.Join
	if sp, ok := cond.Expr.(Specified); ok {
		sub := fmt.Sprintf("SELECT %s FROM %s", j.OwnerColumn, j.Table)
		if sp.Present {
			return s.pk + " IN (" + sub + ")", nil, nil
		}
		return s.pk + " NOT IN (" + sub + ")", nil, nil
	}
	inner, args := cond.Expr.where(j.TargetColumn, dialect(d))
	return fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s)", s.pk, j.OwnerColumn, j.Table, inner), args, nil
}

// Scope applies the criteria to a gorm query. Invalid conditions are
// reported through db.AddError.
func (s *Schema) Scope(c Criteria) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		d := ""
		if db.Dialector != nil {
			d = db.Dialector.Name()
		}
		for _, cond := range c {
			sql, args, err := s.Where(cond, d)
			if err != nil {
				_ = db.AddError(err)
				return db
			}
			db = db.Where(sql, args...)
		}
		return db
	}
}

// Order is one sort key.
type Order struct {
	Column string
	Desc   bool
}

// ParseSort reads sort=field[,asc|desc] parameters. The primary key is
// appended as a tie breaker so paging is stable.
func (s *Schema) ParseSort(params []string) ([]Order, error) {
	var out []Order
	seenPK := false
	for _, p := range params {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parts := strings.Split(p, ",")
		name := strings.TrimSpace(parts[0])

		var column string
		if name == "id" {
			column = s.pk
		} else {
			def, ok := s.fields[name]
			if !ok || def.Join != nil {
				return nil, &FilterError{Param: "sort", Reason: fmt.Sprintf("cannot sort %s by %q", s.entity, name)}
			}
			column = def.Column
		}

		desc := false
		if len(parts) > 1 {
			switch strings.ToLower(strings.TrimSpace(parts[1])) {
			case "asc", "":
			case "desc":
				desc = true
			default:
				return nil, &FilterError{Param: "sort", Reason: fmt.Sprintf("unknown direction %q", parts[1])}
			}
		}
		if column == s.pk {
			seenPK = true
		}
		out = append(out, Order{Column: column, Desc: desc})
	}
	if !seenPK {
		out = append(out, Order{Column: s.pk})
	}
	return out, nil
}

// OrderScope applies sort keys in order.
func OrderScope(orders []Order) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, o := range orders {
			if o.Desc {
				db = db.Order(o.Column + " DESC")
			} else {
				db = db.Order(o.Column + " ASC")
			}
		}
		return db
	}
}

// Page is a zero-based page request. A zero Size means unpaginated.
type Page struct {
	Number int
	Size   int
}

// Paged reports whether a limit applies.
func (p Page) Paged() bool { return p.Size > 0 }

// ParsePage reads page and size. When neither is present the result is
// unpaginated; a bare page uses defaultSize.
func ParsePage(values url.Values, defaultSize int) (Page, error) {
	var p Page
	rawPage, hasPage := values["page"]
	rawSize, hasSize := values["size"]
	if !hasPage && !hasSize {
		return p, nil
	}

	p.Size = defaultSize
	if hasPage && len(rawPage) > 0 && rawPage[0] != "" {
		n, err := strconv.Atoi(rawPage[0])
		if err != nil || n < 0 {
			return p, &FilterError{Param: "page", Reason: "must be a non-negative integer"}
		}
		p.Number = n
	}
	if hasSize && len(rawSize) > 0 && rawSize[0] != "" {
		n, err := strconv.Atoi(rawSize[0])
		if err != nil || n < 1 {
			return p, &FilterError{Param: "size", Reason: "must be a positive integer"}
		}
		p.Size = n
	}
	return p, nil
}

// Scope applies limit and offset when paged.
func (p Page) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !p.Paged() {
			return db
		}
		return db.Offset(p.Number * p.Size).Limit(p.Size)
	}
}
