package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// BannerRepository persists promotional banners.
type BannerRepository struct {
	pool *pgxpool.Pool
}

// NewBannerRepository constructs a repository.
func NewBannerRepository(pool *pgxpool.Pool) *BannerRepository {
	return &BannerRepository{pool: pool}
}

// List returns banners newest first, optionally only the published ones.
func (r *BannerRepository) List(ctx context.Context, publishedOnly bool) ([]model.Banner, error) {
	query := psql.Select("id, title, text, image_url, is_published, created_at, updated_at").
		From("banners").
		OrderBy("created_at DESC")
	if publishedOnly {
		query = query.Where("is_published = TRUE")
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build banner list: %w", err)
	}
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	defer rows.Close()
	banners := []model.Banner{}
	for rows.Next() {
		var b model.Banner
		if err := rows.Scan(&b.ID, &b.Title, &b.Text, &b.ImageURL, &b.IsPublished, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		banners = append(banners, b)
	}
	return banners, rows.Err()
}

// Create inserts a banner.
func (r *BannerRepository) Create(ctx context.Context, b *model.Banner) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO banners (id, title, text, image_url, is_published)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at
	`, b.ID, b.Title, b.Text, b.ImageURL, b.IsPublished).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert banner: %w", err)
	}
	return nil
}

// Delete removes a banner. Unknown ids yield ErrNotFound.
func (r *BannerRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM banners WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPublished flips the publish flag. Unknown ids yield ErrNotFound.
func (r *BannerRepository) SetPublished(ctx context.Context, id string, publish bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE banners SET is_published=$1, updated_at=NOW() WHERE id=$2`, publish, id)
	if err != nil {
		return fmt.Errorf("update banner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
