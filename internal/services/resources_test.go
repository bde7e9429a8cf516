package services

import (
	"context"
	"net/url"
	"testing"

	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every filter field must resolve to a column of its table, so a
// specified=true and specified=false split always adds up to the total.
func TestResources_SchemasMatchTables(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	project := mustProject(t, env)
	_, err := env.res.ProjectMembers.Create(ctx, &models.ProjectMember{AddedTimestamp: fixedTime, ProjectID: project.ID})
	require.NoError(t, err)
	_, err = env.res.Bills.Create(ctx, &models.Bill{Title: "groceries", ProjectID: project.ID})
	require.NoError(t, err)

	for _, res := range env.res.All() {
		schema := res.Schema()
		require.Equal(t, res.Name(), schema.Entity())
		require.NotEmpty(t, schema.Fields(), res.Name())

		total, err := res.Count(ctx, nil)
		require.NoError(t, err)

		for _, field := range schema.Fields() {
			t.Run(res.Name()+"/"+field, func(t *testing.T) {
				var sum int64
				for _, present := range []string{"true", "false"} {
					c, err := schema.Parse(url.Values{field + ".specified": {present}})
					require.NoError(t, err)
					n, err := res.Count(ctx, c)
					require.NoError(t, err)
					sum += n
				}
				assert.Equal(t, total, sum)
			})
		}
	}
}
