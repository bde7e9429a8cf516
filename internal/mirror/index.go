// Package mirror holds the search-side copy of every entity. Documents are
// written by the synchronizer only and read by the search endpoints.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
)

const DefaultPageSize = 20

var ErrClosed = errors.New("search index is closed")

// Document is the full JSON form of one entity instance.
type Document struct {
	EntityType string         `json:"entityType"`
	ID         string         `json:"id"`
	Body       map[string]any `json:"body"`
}

type Page struct {
	Number int
	Size   int
}

func (p Page) normalized() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	return p
}

// Index is a search mirror backend. Save and Delete are idempotent.
type Index interface {
	Save(ctx context.Context, doc Document) error
	Delete(ctx context.Context, entityType, id string) error
	Search(ctx context.Context, entityType string, q Query, page Page) ([]Document, int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// New builds the backend selected by cfg.Driver.
func New(ctx context.Context, cfg *config.SearchConfig) (Index, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryIndex(), nil
	case "surrealdb":
		return NewSurrealIndex(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported search driver: %s", cfg.Driver)
	}
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// paginate filters docs by q, orders them by id and cuts out page.
func paginate(docs []Document, q Query, page Page) ([]Document, int64) {
	matched := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Match(d.Body) {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return lessID(matched[i].ID, matched[j].ID) })

	page = page.normalized()
	total := int64(len(matched))
	start := page.Number * page.Size
	if start >= len(matched) {
		return []Document{}, total
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total
}
