package credit

import (
	"context"
	"testing"
	"time"

	"github.com/altscore/altscore/internal/attribution"
	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/idgen"
	"github.com/altscore/altscore/internal/model"
	"github.com/altscore/altscore/internal/pagination"
	"github.com/altscore/altscore/internal/scoring"
	"github.com/altscore/altscore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	require.NoError(t, store.Migrate(ctx))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var saved []*Result
	for i := 0; i < 3; i++ {
		contribs := attribution.Rank(features.Names, []float64{0.1, -0.2, 0.3, 0, 0, 0})
		r := &Result{
			ID:            idgen.New(),
			UserID:        "pg-user",
			Score:         640 + i,
			Tier:          scoring.TierSilver,
			ProbGood:      0.6182,
			Contributions: contribs,
			Features:      features.Vector{MonthlyAvgIncome: 1234.5, OntimePct: 0.75},
			Summary:       attribution.Summary(contribs),
			Source:        model.SourceLocal,
			ModelVersion:  "default",
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.Save(ctx, r))
		saved = append(saved, r)
	}
	// Idempotent on ID.
	require.NoError(t, store.Save(ctx, saved[0]))

	got, err := store.Get(ctx, saved[1].ID)
	require.NoError(t, err)
	assert.Equal(t, saved[1].Score, got.Score)
	assert.Equal(t, saved[1].Features, got.Features)
	assert.Equal(t, saved[1].Contributions, got.Contributions)
	assert.Equal(t, saved[1].Summary, got.Summary)
	assert.True(t, saved[1].CreatedAt.Equal(got.CreatedAt))

	_, err = store.Get(ctx, idgen.New())
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.ListByUser(ctx, "pg-user", 2, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, saved[2].ID, list[0].ID)
	assert.Equal(t, saved[1].ID, list[1].ID)

	rest, err := store.ListByUser(ctx, "pg-user", 10, &pagination.Cursor{CreatedAt: list[1].CreatedAt, ID: list[1].ID})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, saved[0].ID, rest[0].ID)
}
