package mirror

import (
	"context"
	"sort"
	"sync"
)

// Counters are per entity type.
type Counters struct {
	Saves    int64 `json:"saves"`
	Deletes  int64 `json:"deletes"`
	Failures int64 `json:"failures"`
}

// Instrumented counts the writes that reach the wrapped index.
type Instrumented struct {
	Index
	mu       sync.Mutex
	counters map[string]*Counters
}

func NewInstrumented(idx Index) *Instrumented {
	return &Instrumented{Index: idx, counters: make(map[string]*Counters)}
}

func (i *Instrumented) counter(entityType string) *Counters {
	c, ok := i.counters[entityType]
	if !ok {
		c = &Counters{}
		i.counters[entityType] = c
	}
	return c
}

func (i *Instrumented) Save(ctx context.Context, doc Document) error {
	err := i.Index.Save(ctx, doc)
	i.mu.Lock()
	defer i.mu.Unlock()
	c := i.counter(doc.EntityType)
	if err != nil {
		c.Failures++
	} else {
		c.Saves++
	}
	return err
}

func (i *Instrumented) Delete(ctx context.Context, entityType, id string) error {
	err := i.Index.Delete(ctx, entityType, id)
	i.mu.Lock()
	defer i.mu.Unlock()
	c := i.counter(entityType)
	if err != nil {
		c.Failures++
	} else {
		c.Deletes++
	}
	return err
}

// Counters returns a copy of the counts for one entity type.
func (i *Instrumented) Counters(entityType string) Counters {
	i.mu.Lock()
	defer i.mu.Unlock()
	if c, ok := i.counters[entityType]; ok {
		return *c
	}
	return Counters{}
}

// Snapshot returns all counts keyed by entity type.
func (i *Instrumented) Snapshot() map[string]Counters {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[string]Counters, len(i.counters))
	for k, c := range i.counters {
		out[k] = *c
	}
	return out
}

// EntityTypes lists the types that have seen writes, sorted.
func (i *Instrumented) EntityTypes() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	types := make([]string, 0, len(i.counters))
	for k := range i.counters {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// Writes sums saves and deletes of one entity type.
func (i *Instrumented) Writes(entityType string) int64 {
	c := i.Counters(entityType)
	return c.Saves + c.Deletes
}
