package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
	"github.com/codingspiderfox/ledgersync/backend/pkg/logger"
	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// surrealRecord is the stored shape: one table per entity type, record id
// equal to the entity id, the document kept as JSON text.
type surrealRecord struct {
	ID       *models.RecordID `json:"id,omitempty"`
	EntityID string           `json:"entity_id"`
	Doc      string           `json:"doc"`
}

// SurrealIndex stores documents in SurrealDB.
type SurrealIndex struct {
	db *surrealdb.DB
}

func NewSurrealIndex(ctx context.Context, cfg *config.SearchConfig) (*SurrealIndex, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	log := logger.Component("mirror")
	log.Info().Str("url", cfg.URL).Str("namespace", cfg.Namespace).Str("database", cfg.Database).
		Msg("SurrealDB search index connected")
	return &SurrealIndex{db: db}, nil
}

func (s *SurrealIndex) Save(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc.Body)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", doc.EntityType, doc.ID, err)
	}
	rid := models.NewRecordID(doc.EntityType, doc.ID)
	if _, err := surrealdb.Upsert[surrealRecord](ctx, s.db, rid, surrealRecord{
		EntityID: doc.ID,
		Doc:      string(body),
	}); err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", doc.EntityType, doc.ID, err)
	}
	return nil
}

// Delete uses a statement rather than the record API so that deleting a
// missing record is not an error.
func (s *SurrealIndex) Delete(ctx context.Context, entityType, id string) error {
	_, err := surrealdb.Query[any](ctx, s.db, "DELETE type::thing($table, $id)", map[string]any{
		"table": entityType,
		"id":    id,
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", entityType, id, err)
	}
	return nil
}

func (s *SurrealIndex) Search(ctx context.Context, entityType string, q Query, page Page) ([]Document, int64, error) {
	res, err := surrealdb.Query[[]surrealRecord](ctx, s.db, "SELECT * FROM type::table($table)", map[string]any{
		"table": entityType,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search %s: %w", entityType, err)
	}

	var docs []Document
	if res != nil && len(*res) > 0 {
		for _, rec := range (*res)[0].Result {
			body, err := DecodeBody([]byte(rec.Doc))
			if err != nil {
				return nil, 0, fmt.Errorf("corrupt %s document %s: %w", entityType, rec.EntityID, err)
			}
			docs = append(docs, Document{EntityType: entityType, ID: rec.EntityID, Body: body})
		}
	}
	found, total := paginate(docs, q, page)
	return found, total, nil
}

func (s *SurrealIndex) Ping(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, s.db, "RETURN true", nil)
	return err
}

func (s *SurrealIndex) Close() error {
	return s.db.Close(context.Background())
}

// DecodeBody parses a JSON document keeping numbers exact.
func DecodeBody(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}
