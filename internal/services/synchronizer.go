package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/codingspiderfox/ledgersync/backend/internal/criteria"
	"github.com/codingspiderfox/ledgersync/backend/internal/mirror"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/codingspiderfox/ledgersync/backend/pkg/logger"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncDeps is shared by every synchronizer.
type SyncDeps struct {
	DB     *gorm.DB
	Outbox *Outbox
	Queue  TaskQueue
}

// Synchronizer writes one entity type to the primary store and records a
// change event in the same transaction. After commit the event is handed
// to the task queue, which applies it to the search mirror.
type Synchronizer[T any, PT interface {
	*T
	models.Entity[ID]
}, ID comparable] struct {
	deps         SyncDeps
	name         string
	path         string
	schema       *criteria.Schema
	parseID      func(string) (ID, error)
	associations []string
	log          zerolog.Logger
}

func NewSynchronizer[T any, PT interface {
	*T
	models.Entity[ID]
}, ID comparable](deps SyncDeps, path string, schema *criteria.Schema, parseID func(string) (ID, error)) *Synchronizer[T, PT, ID] {
	var probe PT = new(T)
	s := &Synchronizer[T, PT, ID]{
		deps:    deps,
		name:    probe.EntityName(),
		path:    path,
		schema:  schema,
		parseID: parseID,
		log:     logger.Component("sync").With().Str("entity", probe.EntityName()).Logger(),
	}
	if owner, ok := any(probe).(models.AssociationOwner); ok {
		s.associations = owner.Associations()
	}
	return s
}

func ParseInt64ID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func ParseStringID(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("empty id")
	}
	return raw, nil
}

func (s *Synchronizer[T, PT, ID]) Name() string                   { return s.name }
func (s *Synchronizer[T, PT, ID]) Path() string                   { return s.path }
func (s *Synchronizer[T, PT, ID]) Schema() *criteria.Schema       { return s.schema }
func (s *Synchronizer[T, PT, ID]) ParseID(raw string) (ID, error) { return s.parseID(raw) }

// Create persists e; e must not carry an id.
func (s *Synchronizer[T, PT, ID]) Create(ctx context.Context, e PT) (PT, error) {
	var zero ID
	if e.GetID() != zero {
		return nil, ErrIDExists
	}
	if err := s.validate(e); err != nil {
		return nil, err
	}

	var saved PT
	ev, err := s.transact(ctx, func(tx *gorm.DB) (PT, error) {
		if err := s.checkReferences(tx, e); err != nil {
			return nil, err
		}
		if err := tx.Omit(clause.Associations).Create(e).Error; err != nil {
			return nil, storeError(err)
		}
		return s.finish(tx, e)
	}, &saved)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, ev)
	return saved, nil
}

// Update replaces the stored entity with e. The body id must be present
// and equal pathID, and the entity must exist.
func (s *Synchronizer[T, PT, ID]) Update(ctx context.Context, pathID ID, e PT) (PT, error) {
	if err := s.checkID(pathID, e.GetID()); err != nil {
		return nil, err
	}
	if err := s.validate(e); err != nil {
		return nil, err
	}

	var saved PT
	ev, err := s.transact(ctx, func(tx *gorm.DB) (PT, error) {
		if err := s.mustExist(tx, pathID); err != nil {
			return nil, err
		}
		if err := s.checkReferences(tx, e); err != nil {
			return nil, err
		}
		if err := tx.Omit(clause.Associations).Save(e).Error; err != nil {
			return nil, storeError(err)
		}
		return s.finish(tx, e)
	}, &saved)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, ev)
	return saved, nil
}

// PartialUpdate merges the non-null fields of a JSON merge patch into the
// stored entity. The id rules of Update apply to the id in the patch.
func (s *Synchronizer[T, PT, ID]) PartialUpdate(ctx context.Context, pathID ID, patch []byte) (PT, error) {
	cleaned, err := dropNulls(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var probe PT = new(T)
	if err := json.Unmarshal(cleaned, probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.checkID(pathID, probe.GetID()); err != nil {
		return nil, err
	}

	var saved PT
	ev, err := s.transact(ctx, func(tx *gorm.DB) (PT, error) {
		var existing PT = new(T)
		if err := s.preload(tx).First(existing, "id = ?", pathID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrIDNotFound
			}
			return nil, err
		}
		if err := json.Unmarshal(cleaned, existing); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := s.validate(existing); err != nil {
			return nil, err
		}
		if err := s.checkReferences(tx, existing); err != nil {
			return nil, err
		}
		if err := tx.Omit(clause.Associations).Save(existing).Error; err != nil {
			return nil, storeError(err)
		}
		return s.finish(tx, existing)
	}, &saved)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, ev)
	return saved, nil
}

// Delete removes the entity if present. A mirror delete is recorded either
// way, so a stale document never outlives its row. An entity that other
// rows still point at is kept and ErrReference is returned.
func (s *Synchronizer[T, PT, ID]) Delete(ctx context.Context, id ID) error {
	var ev *models.ChangeEvent
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing PT = new(T)
		err := tx.First(existing, "id = ?", id).Error
		switch {
		case err == nil:
			if err := s.checkDependents(tx, existing, id); err != nil {
				return err
			}
			for _, name := range s.associations {
				if err := tx.Model(existing).Association(name).Clear(); err != nil {
					return err
				}
			}
			if err := tx.Delete(existing).Error; err != nil {
				return storeError(err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		ev, err = RecordChange(tx, s.name, fmt.Sprint(id), models.ChangeOperationDelete, nil)
		return err
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, ev)
	return nil
}

func (s *Synchronizer[T, PT, ID]) Get(ctx context.Context, id ID) (PT, error) {
	var e PT = new(T)
	if err := s.preload(s.deps.DB.WithContext(ctx)).First(e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns the matching page and the total number of matches.
func (s *Synchronizer[T, PT, ID]) List(ctx context.Context, c criteria.Criteria, orders []criteria.Order, page criteria.Page) ([]T, int64, error) {
	total, err := s.Count(ctx, c)
	if err != nil {
		return nil, 0, err
	}

	items := []T{}
	err = s.preload(s.deps.DB.WithContext(ctx)).
		Scopes(s.schema.Scope(c), criteria.OrderScope(orders), page.Scope()).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Synchronizer[T, PT, ID]) Count(ctx context.Context, c criteria.Criteria) (int64, error) {
	var total int64
	err := s.deps.DB.WithContext(ctx).Model(PT(new(T))).Scopes(s.schema.Scope(c)).Count(&total).Error
	return total, err
}

// Search reads from the mirror only.
func (s *Synchronizer[T, PT, ID]) Search(ctx context.Context, query string, page mirror.Page) ([]T, int64, error) {
	docs, total, err := s.deps.Outbox.Index().Search(ctx, s.name, mirror.ParseQuery(query), page)
	if err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, len(docs))
	for _, d := range docs {
		raw, err := json.Marshal(d.Body)
		if err != nil {
			return nil, 0, err
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, 0, fmt.Errorf("failed to decode %s document %s: %w", s.name, d.ID, err)
		}
		items = append(items, item)
	}
	return items, total, nil
}

// Reindex writes every stored row to the mirror and returns the count.
func (s *Synchronizer[T, PT, ID]) Reindex(ctx context.Context, batchSize int) (int, error) {
	index := s.deps.Outbox.Index()
	written := 0
	var batch []T
	res := s.preload(s.deps.DB.WithContext(ctx)).Order("id ASC").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			var e PT = &batch[i]
			doc, err := s.document(e)
			if err != nil {
				return err
			}
			if err := index.Save(ctx, doc); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	return written, res.Error
}

func (s *Synchronizer[T, PT, ID]) document(e PT) (mirror.Document, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return mirror.Document{}, err
	}
	body, err := mirror.DecodeBody(raw)
	if err != nil {
		return mirror.Document{}, err
	}
	return mirror.Document{EntityType: s.name, ID: fmt.Sprint(e.GetID()), Body: body}, nil
}

// transact runs fn in a transaction and records an UPSERT event for the
// entity it returns.
func (s *Synchronizer[T, PT, ID]) transact(ctx context.Context, fn func(tx *gorm.DB) (PT, error), out *PT) (*models.ChangeEvent, error) {
	var ev *models.ChangeEvent
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		saved, err := fn(tx)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(saved)
		if err != nil {
			return err
		}
		ev, err = RecordChange(tx, s.name, fmt.Sprint(saved.GetID()), models.ChangeOperationUpsert, payload)
		if err != nil {
			return err
		}
		*out = saved
		return nil
	})
	return ev, err
}

// finish replaces many-to-many associations and reloads the full entity.
func (s *Synchronizer[T, PT, ID]) finish(tx *gorm.DB, e PT) (PT, error) {
	rv := reflect.ValueOf(e).Elem()
	for _, name := range s.associations {
		value := rv.FieldByName(name)
		assoc := tx.Model(e).Association(name)
		var err error
		if value.Len() == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(value.Interface())
		}
		if err != nil {
			return nil, fmt.Errorf("failed to replace %s: %w", name, err)
		}
	}

	var fresh PT = new(T)
	if err := s.preload(tx).First(fresh, "id = ?", e.GetID()).Error; err != nil {
		return nil, err
	}
	return fresh, nil
}

func (s *Synchronizer[T, PT, ID]) preload(db *gorm.DB) *gorm.DB {
	for _, name := range s.associations {
		db = db.Preload(name, func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
	}
	return db
}

func (s *Synchronizer[T, PT, ID]) checkID(pathID, bodyID ID) error {
	var zero ID
	if bodyID == zero {
		return ErrIDNull
	}
	if bodyID != pathID {
		return ErrIDInvalid
	}
	return nil
}

func (s *Synchronizer[T, PT, ID]) mustExist(tx *gorm.DB, id ID) error {
	var n int64
	if err := tx.Model(PT(new(T))).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrIDNotFound
	}
	return nil
}

func (s *Synchronizer[T, PT, ID]) validate(e PT) error {
	if err := binding.Validator.ValidateStruct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if v, ok := any(e).(models.Validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	models.NormalizeTimes(e)
	return nil
}

func (s *Synchronizer[T, PT, ID]) checkReferences(tx *gorm.DB, e PT) error {
	r, ok := any(e).(models.Referencing)
	if !ok {
		return nil
	}
	for _, ref := range r.References() {
		if ref.ID == nil {
			continue
		}
		var n int64
		if err := tx.Table(ref.Table).Where("id = ?", ref.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s %v does not exist", ErrReference, ref.Field, ref.ID)
		}
	}
	return nil
}

func (s *Synchronizer[T, PT, ID]) checkDependents(tx *gorm.DB, e PT, id ID) error {
	o, ok := any(e).(models.Owned)
	if !ok {
		return nil
	}
	for _, d := range o.Dependents() {
		var n int64
		if err := tx.Table(d.Table).Where(d.Column+" = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s %v is still referenced by %s", ErrReference, s.name, id, d.Table)
		}
	}
	return nil
}

func (s *Synchronizer[T, PT, ID]) dispatch(ctx context.Context, ev *models.ChangeEvent) {
	if ev == nil || s.deps.Queue == nil {
		return
	}
	task := &MirrorTask{EventID: ev.ID, EntityType: ev.EntityType, EntityID: ev.EntityID}
	if err := s.deps.Queue.Enqueue(ctx, task); err != nil {
		s.log.Warn().Err(err).Uint64("event_id", ev.ID).Str("id", ev.EntityID).
			Msg("Mirror sync deferred to relay")
	}
}

// storeError maps constraint violations to validation errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: duplicate key", ErrValidation)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrReference, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return err
}

// dropNulls removes top-level keys whose value is JSON null.
func dropNulls(patch []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(patch))
	dec.UseNumber()
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			delete(fields, k)
		}
	}
	return json.Marshal(fields)
}
