package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geniibooks/entitlements/internal/domain/entity"
	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
	"github.com/geniibooks/entitlements/internal/domain/repository"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
)

type catalogRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a Postgres-backed catalog repository
func NewCatalogRepository(pool *pgxpool.Pool) repository.CatalogRepository {
	return &catalogRepositoryImpl{pool: pool}
}

func (r *catalogRepositoryImpl) FindByID(ctx context.Context, id entity.ContentID) (*entity.ContentItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, title, kind, scopes, price, is_free
		 FROM content_items WHERE id = $1`, string(id))

	item, err := scanContentItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domainErrors.NotFoundError{
				Entity: "content item",
				ID:     string(id),
				Err:    domainErrors.ErrContentNotFound,
			}
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return item, nil
}

func (r *catalogRepositoryImpl) Filter(ctx context.Context, filter repository.ContentFilter) ([]*entity.ContentItem, error) {
	query := `SELECT id, title, kind, scopes, price, is_free FROM content_items WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		args = append(args, filter.Kind.String())
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.Scope != "" {
		args = append(args, filter.Scope.String())
		query += fmt.Sprintf(" AND $%d = ANY(scopes)", len(args))
	}
	if filter.FreeOnly {
		query += " AND is_free"
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}
	defer rows.Close()

	var items []*entity.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}
	return items, nil
}

func scanContentItem(row pgx.Row) (*entity.ContentItem, error) {
	var (
		item   entity.ContentItem
		id     string
		kind   string
		scopes []string
	)
	if err := row.Scan(&id, &item.Title, &kind, &scopes, &item.Price, &item.IsFree); err != nil {
		return nil, err
	}

	item.ID = entity.ContentID(id)
	item.Kind = valueobject.ContentKind(kind)
	item.Scopes = make([]valueobject.Scope, 0, len(scopes))
	for _, s := range scopes {
		item.Scopes = append(item.Scopes, valueobject.Scope(s))
	}
	return &item, nil
}
