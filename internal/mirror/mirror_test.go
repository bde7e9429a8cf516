package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func body(t *testing.T, raw string) map[string]any {
	t.Helper()
	b, err := DecodeBody([]byte(raw))
	require.NoError(t, err)
	return b
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want []Term
	}{
		{"", nil},
		{"*", nil},
		{"id:3", []Term{{Field: "id", Value: "3"}}},
		{"  alpha   key:ALP ", []Term{{Value: "alpha"}, {Field: "key", Value: "ALP"}}},
		{":x", []Term{{Value: ":x"}}},
		{"url:http://x", []Term{{Field: "url", Value: "http://x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuery(tt.raw).Terms)
		})
	}
}

func TestQuery_Match(t *testing.T) {
	doc := body(t, `{"id":1,"name":"Alpha Project","key":"ALP","closed":false,
		"finalAmount":1234567.5,"roles":[{"id":4},{"id":7,"title":"Bill Contributor"}],"comment":null,
		"additionalProjectPermissions":["CLOSE_BILL","ADD_MEMBER"]}`)

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"*", true},
		{"id:1", true},
		{"id:2", false},
		{"key:ALP", true},
		{"key:alp", false},
		{"alpha", true},
		{"PROJECT", true},
		{"beta", false},
		{"alpha key:ALP", true},
		{"alpha key:BET", false},
		{"closed:false", true},
		{"finalAmount:1234567.5", true},
		{"roles:7", true},
		{"roles:5", false},
		{"missing:x", false},
		{"comment:", true},
		{"ADD_MEMBER", true},
		{"add_member alpha", true},
		{"CLOSE_PROJECT", false},
		{"contributor", true},
		{"additionalProjectPermissions:ADD_MEMBER", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuery(tt.query).Match(doc))
		})
	}
}

func TestMemoryIndex_SaveDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	doc := Document{EntityType: "project", ID: "1", Body: map[string]any{"name": "a"}}
	require.NoError(t, idx.Save(ctx, doc))
	require.NoError(t, idx.Save(ctx, doc))
	assert.Equal(t, 1, idx.Len("project"))

	doc.Body = map[string]any{"name": "b"}
	require.NoError(t, idx.Save(ctx, doc))
	got, ok := idx.Get("project", "1")
	require.True(t, ok)
	assert.Equal(t, "b", got.Body["name"])

	require.NoError(t, idx.Delete(ctx, "project", "1"))
	require.NoError(t, idx.Delete(ctx, "project", "1"))
	require.NoError(t, idx.Delete(ctx, "bill", "9"))
	assert.Equal(t, 0, idx.Len("project"))
}

func TestMemoryIndex_SearchOrderAndPage(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	for _, id := range []string{"10", "2", "1", "33"} {
		require.NoError(t, idx.Save(ctx, Document{EntityType: "bill", ID: id, Body: map[string]any{"title": "bill " + id}}))
	}
	require.NoError(t, idx.Save(ctx, Document{EntityType: "project", ID: "5", Body: map[string]any{"title": "bill"}}))

	docs, total, err := idx.Search(ctx, "bill", ParseQuery("*"), Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"1", "2", "10", "33"}, ids)

	docs, total, err = idx.Search(ctx, "bill", ParseQuery("bill"), Page{Number: 1, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, docs, 1)
	assert.Equal(t, "33", docs[0].ID)

	docs, total, err = idx.Search(ctx, "bill", ParseQuery("*"), Page{Number: 5, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Empty(t, docs)

	docs, _, err = idx.Search(ctx, "stock", ParseQuery("*"), Page{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestMemoryIndex_Closed(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Ping(ctx))
	require.NoError(t, idx.Close())

	assert.ErrorIs(t, idx.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, idx.Save(ctx, Document{EntityType: "x", ID: "1"}), ErrClosed)
	assert.ErrorIs(t, idx.Delete(ctx, "x", "1"), ErrClosed)
	_, _, err := idx.Search(ctx, "x", Query{}, Page{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInstrumented_Counts(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryIndex()
	idx := NewInstrumented(mem)

	require.NoError(t, idx.Save(ctx, Document{EntityType: "stock", ID: "1"}))
	require.NoError(t, idx.Save(ctx, Document{EntityType: "stock", ID: "2"}))
	require.NoError(t, idx.Delete(ctx, "stock", "1"))
	require.NoError(t, idx.Delete(ctx, "product", "7"))

	assert.Equal(t, Counters{Saves: 2, Deletes: 1}, idx.Counters("stock"))
	assert.Equal(t, int64(3), idx.Writes("stock"))
	assert.Equal(t, int64(1), idx.Writes("product"))
	assert.Equal(t, []string{"product", "stock"}, idx.EntityTypes())

	require.NoError(t, mem.Close())
	err := idx.Save(ctx, Document{EntityType: "stock", ID: "3"})
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Equal(t, int64(1), idx.Snapshot()["stock"].Failures)
}

func TestNew(t *testing.T) {
	idx, err := New(context.Background(), &config.SearchConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryIndex{}, idx)

	_, err = New(context.Background(), &config.SearchConfig{Driver: "elastic"})
	assert.Error(t, err)
}
