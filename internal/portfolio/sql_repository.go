package portfolio

import (
	"database/sql"
	"fmt"
)

type sqlRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) Create(item *Item) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO portfolios (id, title, slug, pin_hash, created_at) VALUES ($1, $2, $3, $4, $5)",
		item.ID, item.Title, item.Slug, item.PinHash, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	for idx, d := range item.Media {
		_, err = tx.Exec(
			"INSERT INTO portfolio_media (portfolio_id, idx, kind, source_url, suggested_filename) VALUES ($1, $2, $3, $4, $5)",
			item.ID, idx, string(d.Kind), d.SourceURL, d.SuggestedFilename,
		)
		if err != nil {
			return fmt.Errorf("failed to create portfolio media %d: %w", idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *sqlRepository) GetByID(id string) (*Item, error) {
	return r.getBy("id", id)
}

func (r *sqlRepository) GetBySlug(slug string) (*Item, error) {
	return r.getBy("slug", slug)
}

func (r *sqlRepository) getBy(column, value string) (*Item, error) {
	var item Item
	err := r.db.QueryRow(
		"SELECT id, title, slug, pin_hash, created_at FROM portfolios WHERE "+column+" = $1",
		value,
	).Scan(&item.ID, &item.Title, &item.Slug, &item.PinHash, &item.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	media, err := r.loadMedia(item.ID)
	if err != nil {
		return nil, err
	}
	item.Media = media
	return &item, nil
}

func (r *sqlRepository) loadMedia(portfolioID string) ([]MediaDescriptor, error) {
	rows, err := r.db.Query(
		"SELECT kind, source_url, suggested_filename FROM portfolio_media WHERE portfolio_id = $1 ORDER BY idx",
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio media: %w", err)
	}
	defer rows.Close()

	var media []MediaDescriptor
	for rows.Next() {
		var d MediaDescriptor
		var kind string
		if err := rows.Scan(&kind, &d.SourceURL, &d.SuggestedFilename); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio media: %w", err)
		}
		d.Kind = MediaKind(kind)
		media = append(media, d)
	}
	return media, rows.Err()
}

func (r *sqlRepository) List() ([]*Item, error) {
	rows, err := r.db.Query("SELECT id, title, slug, pin_hash, created_at FROM portfolios ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Title, &item.Slug, &item.PinHash, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, item := range items {
		media, err := r.loadMedia(item.ID)
		if err != nil {
			return nil, err
		}
		item.Media = media
	}
	return items, nil
}

func (r *sqlRepository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM portfolios WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
