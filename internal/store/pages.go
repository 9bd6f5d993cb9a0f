package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-builder/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// pageRow is the flat column layout of checkout_pages
type pageRow struct {
	ID            string             `db:"id"`
	UserID        string             `db:"user_id"`
	Title         string             `db:"title"`
	Slug          string             `db:"slug"`
	Description   string             `db:"description"`
	LogoURL       string             `db:"logo_url"`
	Theme         types.JSONText     `db:"theme"`
	CustomFields  types.JSONText     `db:"custom_fields"`
	Layout        types.JSONText     `db:"layout"`
	IsActive      bool               `db:"is_active"`
	Pixels        types.NullJSONText `db:"pixels"`
	UtmifyKey     string             `db:"utmify_key"`
	DeliveryEmail string             `db:"delivery_email"`
	CreatedAt     time.Time          `db:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at"`
}

// productRow adds the owning page to a product
type productRow struct {
	CheckoutPageID string `db:"checkout_page_id"`
	models.Product
}

const pageColumns = `id, user_id, title, slug, description, logo_url, theme, custom_fields, layout,
	is_active, pixels, utmify_key, delivery_email, created_at, updated_at`

const productColumns = `checkout_page_id, id, name, description, price, type, image_url,
	digital_file_url, discount, is_active, requires_shipping, position`

func toPageRow(page *models.CheckoutPage) (*pageRow, error) {
	theme, err := json.Marshal(page.Theme)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal theme: %w", err)
	}

	fields := page.CustomFields
	if fields == nil {
		fields = []models.CustomField{}
	}
	customFields, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal custom fields: %w", err)
	}

	elements := page.Layout
	if elements == nil {
		elements = []models.LayoutElement{}
	}
	layout, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal layout: %w", err)
	}

	row := &pageRow{
		ID:            page.ID,
		UserID:        page.UserID,
		Title:         page.Title,
		Slug:          page.Slug,
		Description:   page.Description,
		LogoURL:       page.LogoURL,
		Theme:         types.JSONText(theme),
		CustomFields:  types.JSONText(customFields),
		Layout:        types.JSONText(layout),
		IsActive:      page.IsActive,
		UtmifyKey:     page.UtmifyKey,
		DeliveryEmail: page.DeliveryEmail,
	}

	if page.Pixels != nil {
		pixels, err := json.Marshal(page.Pixels)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal pixels: %w", err)
		}
		row.Pixels = types.NullJSONText{JSONText: types.JSONText(pixels), Valid: true}
	}

	return row, nil
}

func (r *pageRow) toPage() (*models.CheckoutPage, error) {
	page := &models.CheckoutPage{
		ID:            r.ID,
		UserID:        r.UserID,
		Title:         r.Title,
		Slug:          r.Slug,
		Description:   r.Description,
		LogoURL:       r.LogoURL,
		IsActive:      r.IsActive,
		UtmifyKey:     r.UtmifyKey,
		DeliveryEmail: r.DeliveryEmail,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Products:      []models.Product{},
	}

	if err := r.Theme.Unmarshal(&page.Theme); err != nil {
		return nil, fmt.Errorf("failed to decode theme of page %s: %w", r.ID, err)
	}
	if err := r.CustomFields.Unmarshal(&page.CustomFields); err != nil {
		return nil, fmt.Errorf("failed to decode custom fields of page %s: %w", r.ID, err)
	}
	if err := r.Layout.Unmarshal(&page.Layout); err != nil {
		return nil, fmt.Errorf("failed to decode layout of page %s: %w", r.ID, err)
	}
	if r.Pixels.Valid {
		page.Pixels = &models.TrackingPixels{}
		if err := r.Pixels.Unmarshal(page.Pixels); err != nil {
			return nil, fmt.Errorf("failed to decode pixels of page %s: %w", r.ID, err)
		}
	}

	return page, nil
}

// CreatePage inserts a page and its products in one transaction
func (s *Store) CreatePage(ctx context.Context, page *models.CheckoutPage) error {
	row, err := toPageRow(page)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback()

	query := `
		INSERT INTO checkout_pages (id, user_id, title, slug, description, logo_url, theme,
			custom_fields, layout, is_active, pixels, utmify_key, delivery_email)
		VALUES (:id, :user_id, :title, :slug, :description, :logo_url, :theme,
			:custom_fields, :layout, :is_active, :pixels, :utmify_key, :delivery_email)
		RETURNING created_at, updated_at`

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", mapError(err))
	}
	defer stmt.Close()

	if err := stmt.QueryRowxContext(ctx, row).Scan(&page.CreatedAt, &page.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert page: %w", mapError(err))
	}

	if err := insertProducts(ctx, tx, page); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page: %w", mapError(err))
	}
	return nil
}

// UpdatePage overwrites a page owned by ownerID and replaces its products
func (s *Store) UpdatePage(ctx context.Context, page *models.CheckoutPage, ownerID string) error {
	row, err := toPageRow(page)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback()

	query := `
		UPDATE checkout_pages SET
			title = $1, slug = $2, description = $3, logo_url = $4, theme = $5,
			custom_fields = $6, layout = $7, is_active = $8, pixels = $9,
			utmify_key = $10, delivery_email = $11, updated_at = NOW()
		WHERE id = $12 AND user_id = $13
		RETURNING user_id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		row.Title, row.Slug, row.Description, row.LogoURL, row.Theme,
		row.CustomFields, row.Layout, row.IsActive, row.Pixels,
		row.UtmifyKey, row.DeliveryEmail, row.ID, ownerID,
	).Scan(&page.UserID, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update page %s: %w", page.ID, mapError(err))
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE checkout_page_id = $1", page.ID); err != nil {
		return fmt.Errorf("failed to clear products: %w", mapError(err))
	}
	if err := insertProducts(ctx, tx, page); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page: %w", mapError(err))
	}
	return nil
}

func insertProducts(ctx context.Context, tx *sqlx.Tx, page *models.CheckoutPage) error {
	query := `
		INSERT INTO products (checkout_page_id, id, user_id, name, description, price, type,
			image_url, digital_file_url, discount, is_active, requires_shipping, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	for _, p := range page.Products {
		_, err := tx.ExecContext(ctx, query,
			page.ID, p.ID, page.UserID, p.Name, p.Description, p.Price, p.Type,
			p.ImageURL, p.DigitalFileURL, p.Discount, p.IsActive, p.RequiresShipping, p.Order)
		if err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ID, mapError(err))
		}
	}
	return nil
}

// DeletePage removes a page owned by ownerID; products and orders cascade
func (s *Store) DeletePage(ctx context.Context, pageID, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM checkout_pages WHERE id = $1 AND user_id = $2", pageID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete page %s: %w", pageID, mapError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete page %s: %w", pageID, mapError(err))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPageByID retrieves a page with its products
func (s *Store) GetPageByID(ctx context.Context, id string) (*models.CheckoutPage, error) {
	return s.getPage(ctx, "id", id)
}

// GetPageBySlug retrieves a page by its public slug
func (s *Store) GetPageBySlug(ctx context.Context, slug string) (*models.CheckoutPage, error) {
	return s.getPage(ctx, "slug", slug)
}

func (s *Store) getPage(ctx context.Context, column, value string) (*models.CheckoutPage, error) {
	var row pageRow
	query := fmt.Sprintf("SELECT %s FROM checkout_pages WHERE %s = $1", pageColumns, column)
	if err := s.db.GetContext(ctx, &row, query, value); err != nil {
		return nil, mapError(err)
	}

	page, err := row.toPage()
	if err != nil {
		return nil, err
	}

	if err := s.attachProducts(ctx, []*models.CheckoutPage{page}); err != nil {
		return nil, err
	}
	return page, nil
}

// ListPagesByUser returns a user's pages, newest first
func (s *Store) ListPagesByUser(ctx context.Context, userID string) ([]*models.CheckoutPage, error) {
	var rows []pageRow
	query := fmt.Sprintf(
		"SELECT %s FROM checkout_pages WHERE user_id = $1 ORDER BY created_at DESC", pageColumns)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", mapError(err))
	}

	pages := make([]*models.CheckoutPage, 0, len(rows))
	for i := range rows {
		page, err := rows[i].toPage()
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	if err := s.attachProducts(ctx, pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *Store) attachProducts(ctx context.Context, pages []*models.CheckoutPage) error {
	if len(pages) == 0 {
		return nil
	}

	byID := make(map[string]*models.CheckoutPage, len(pages))
	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	query, args, err := sqlx.In(fmt.Sprintf(
		"SELECT %s FROM products WHERE checkout_page_id IN (?) ORDER BY position", productColumns), ids)
	if err != nil {
		return fmt.Errorf("failed to build product query: %w", err)
	}

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load products: %w", mapError(err))
	}

	for _, r := range rows {
		if page, ok := byID[r.CheckoutPageID]; ok {
			page.Products = append(page.Products, r.Product)
		}
	}
	return nil
}

// SlugTakenByOtherUser reports whether slug belongs to a page of another user
func (s *Store) SlugTakenByOtherUser(ctx context.Context, slug, userID string) (bool, error) {
	var taken bool
	err := s.db.GetContext(ctx, &taken,
		"SELECT EXISTS(SELECT 1 FROM checkout_pages WHERE slug = $1 AND user_id <> $2)", slug, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", mapError(err))
	}
	return taken, nil
}
