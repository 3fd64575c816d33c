package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/domain/repository"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
	pgrepository "github.com/geniibooks/entitlements/internal/infrastructure/persistence/repository"
	"github.com/geniibooks/entitlements/tests/testutil"
)

func seedCatalog(ctx context.Context, t *testing.T, tc *testutil.TestDBContainer) {
	t.Helper()

	rows := [][]any{
		{"pdf-algebra-10", "Algebra Notes", "pdf", []string{"10", "maths"}, int64(49), false},
		{"pdf-syllabus-10", "Syllabus Overview", "pdf", []string{"10"}, int64(49), true},
		{"video-motion-11", "Laws of Motion", "video", []string{"11", "physics"}, int64(99), false},
		{"lec-neet-bio-01", "Cell Structure", "course_lecture", []string{"neet", "biology"}, int64(0), false},
	}
	for _, row := range rows {
		_, err := tc.Pool.Exec(ctx,
			`INSERT INTO content_items (id, title, kind, scopes, price, is_free)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			row...)
		require.NoError(t, err)
	}
}

func TestCatalogRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tc, err := testutil.SetupTestDBContainer(ctx, t)
	require.NoError(t, err)
	defer tc.Teardown(ctx, t)

	require.NoError(t, testutil.ApplyCatalogSchema(ctx, tc.Pool))
	seedCatalog(ctx, t, tc)

	repo := pgrepository.NewCatalogRepository(tc.Pool)

	t.Run("FindByID returns the stored item", func(t *testing.T) {
		item, err := repo.FindByID(ctx, "video-motion-11")
		require.NoError(t, err)
		assert.Equal(t, "Laws of Motion", item.Title)
		assert.Equal(t, valueobject.KindVideo, item.Kind)
		assert.ElementsMatch(t, []valueobject.Scope{"11", "physics"}, item.Scopes)
		assert.Equal(t, int64(99), item.Price)
	})

	t.Run("FindByID wraps ErrContentNotFound", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "no-such-item")
		require.Error(t, err)
		assert.ErrorIs(t, err, domainErrors.ErrContentNotFound)
	})

	t.Run("Filter by kind", func(t *testing.T) {
		items, err := repo.Filter(ctx, repository.ContentFilter{Kind: valueobject.KindPDF})
		require.NoError(t, err)
		require.Len(t, items, 2)
	})

	t.Run("Filter by scope tag", func(t *testing.T) {
		items, err := repo.Filter(ctx, repository.ContentFilter{Scope: "neet"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, entity.ContentID("lec-neet-bio-01"), items[0].ID)
	})

	t.Run("Filter free only", func(t *testing.T) {
		items, err := repo.Filter(ctx, repository.ContentFilter{FreeOnly: true})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.True(t, items[0].IsFree)
	})

	t.Run("Filter combines constraints", func(t *testing.T) {
		items, err := repo.Filter(ctx, repository.ContentFilter{Kind: valueobject.KindPDF, Scope: "10", FreeOnly: true})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, entity.ContentID("pdf-syllabus-10"), items[0].ID)
	})

	t.Run("Filter repeated calls are stable", func(t *testing.T) {
		first, err := repo.Filter(ctx, repository.ContentFilter{Kind: valueobject.KindPDF})
		require.NoError(t, err)
		second, err := repo.Filter(ctx, repository.ContentFilter{Kind: valueobject.KindPDF})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
