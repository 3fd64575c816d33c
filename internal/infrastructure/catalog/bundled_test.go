package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/domain/repository"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
	"github.com/geniibooks/entitlements/internal/infrastructure/catalog"
)

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleBundle = `[
  {"id": "pdf-algebra-10", "title": "Algebra Notes", "kind": "pdf", "scopes": ["10", "maths"], "price": 49, "is_free": false},
  {"id": "video-motion-11", "title": "Laws of Motion", "kind": "video", "scopes": ["11", "physics"], "price": 99, "is_free": false},
  {"id": "pdf-syllabus-10", "title": "Syllabus Overview", "kind": "pdf", "scopes": ["10"], "price": 49, "is_free": true},
  {"id": "lec-neet-bio-01", "title": "Cell Structure", "kind": "course_lecture", "scopes": ["neet", "biology"], "price": 0, "is_free": false}
]`

func TestLoadBundled(t *testing.T) {
	t.Run("loads a valid bundle", func(t *testing.T) {
		c, err := catalog.LoadBundled(writeBundle(t, sampleBundle))
		require.NoError(t, err)
		assert.Equal(t, 4, c.Len())
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := catalog.LoadBundled(writeBundle(t,
			`[{"id": "x", "title": "X", "kind": "audiobook", "scopes": ["10"], "price": 0, "is_free": true}]`))
		require.Error(t, err)
		assert.ErrorIs(t, err, valueobject.ErrInvalidContentKind)
	})

	t.Run("rejects item without scopes", func(t *testing.T) {
		_, err := catalog.LoadBundled(writeBundle(t,
			`[{"id": "x", "title": "X", "kind": "pdf", "scopes": [], "price": 49, "is_free": false}]`))
		require.Error(t, err)
		assert.ErrorIs(t, err, entity.ErrEmptyScope)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := catalog.LoadBundled(writeBundle(t,
			`[{"id": "x", "title": "X", "kind": "pdf", "scopes": ["10"], "price": 49, "is_free": false},
			  {"id": "x", "title": "X again", "kind": "pdf", "scopes": ["11"], "price": 49, "is_free": false}]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate id")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := catalog.LoadBundled(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}

func TestBundledCatalogQueries(t *testing.T) {
	c, err := catalog.LoadBundled(writeBundle(t, sampleBundle))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("find by id", func(t *testing.T) {
		item, err := c.FindByID(ctx, "video-motion-11")
		require.NoError(t, err)
		assert.Equal(t, "Laws of Motion", item.Title)
		assert.Equal(t, valueobject.KindVideo, item.Kind)
	})

	t.Run("unknown id wraps ErrContentNotFound", func(t *testing.T) {
		_, err := c.FindByID(ctx, "no-such-item")
		require.Error(t, err)
		assert.ErrorIs(t, err, domainErrors.ErrContentNotFound)
	})

	t.Run("filter by kind", func(t *testing.T) {
		items, err := c.Filter(ctx, repository.ContentFilter{Kind: valueobject.KindPDF})
		require.NoError(t, err)
		require.Len(t, items, 2)
	})

	t.Run("filter by scope and free flag", func(t *testing.T) {
		items, err := c.Filter(ctx, repository.ContentFilter{Scope: "10", FreeOnly: true})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, entity.ContentID("pdf-syllabus-10"), items[0].ID)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		items, err := c.Filter(ctx, repository.ContentFilter{Scope: "12"})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
