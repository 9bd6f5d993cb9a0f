package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-builder/internal/models"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type orderRow struct {
	ID             string          `db:"id"`
	CheckoutPageID string          `db:"checkout_page_id"`
	CustomerInfo   types.JSONText  `db:"customer_info"`
	Products       types.JSONText  `db:"products"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Status         string          `db:"status"`
	PaymentMethod  string          `db:"payment_method"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

const orderColumns = `o.id, o.checkout_page_id, o.customer_info, o.products, o.total_amount,
	o.status, o.payment_method, o.created_at, o.updated_at`

func (r *orderRow) toOrder() (*models.Order, error) {
	order := &models.Order{
		ID:             r.ID,
		CheckoutPageID: r.CheckoutPageID,
		TotalAmount:    r.TotalAmount,
		Status:         r.Status,
		PaymentMethod:  r.PaymentMethod,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if err := r.CustomerInfo.Unmarshal(&order.CustomerInfo); err != nil {
		return nil, fmt.Errorf("failed to decode customer info of order %s: %w", r.ID, err)
	}
	if err := r.Products.Unmarshal(&order.Products); err != nil {
		return nil, fmt.Errorf("failed to decode products of order %s: %w", r.ID, err)
	}
	return order, nil
}

// CreateOrder inserts a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	customer, err := json.Marshal(order.CustomerInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal customer info: %w", err)
	}
	products, err := json.Marshal(order.Products)
	if err != nil {
		return fmt.Errorf("failed to marshal order products: %w", err)
	}

	query := `
		INSERT INTO orders (id, checkout_page_id, customer_info, products, total_amount, status, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err = s.db.QueryRowxContext(ctx, query,
		order.ID, order.CheckoutPageID, types.JSONText(customer), types.JSONText(products),
		order.TotalAmount, order.Status, order.PaymentMethod,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", mapError(err))
	}
	return nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	query := fmt.Sprintf("SELECT %s FROM orders o WHERE o.id = $1", orderColumns)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, mapError(err)
	}
	return row.toOrder()
}

// ListOrdersByPage returns the orders of a page owned by ownerID, newest first
func (s *Store) ListOrdersByPage(ctx context.Context, pageID, ownerID string) ([]*models.Order, error) {
	var rows []orderRow
	query := fmt.Sprintf(`
		SELECT %s FROM orders o
		JOIN checkout_pages p ON p.id = o.checkout_page_id
		WHERE o.checkout_page_id = $1 AND p.user_id = $2
		ORDER BY o.created_at DESC`, orderColumns)
	if err := s.db.SelectContext(ctx, &rows, query, pageID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", mapError(err))
	}

	orders := make([]*models.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateOrderStatus changes the status of an order on one of ownerID's pages
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, ownerID, status string) (*models.Order, error) {
	var row orderRow
	query := fmt.Sprintf(`
		UPDATE orders o SET status = $1, updated_at = NOW()
		FROM checkout_pages p
		WHERE o.id = $2 AND p.id = o.checkout_page_id AND p.user_id = $3
		RETURNING %s`, orderColumns)
	if err := s.db.GetContext(ctx, &row, query, status, orderID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, mapError(err))
	}
	return row.toOrder()
}

// GetDashboardStats aggregates pages and orders of a user
func (s *Store) GetDashboardStats(ctx context.Context, userID string) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	totals := `
		SELECT
			COUNT(DISTINCT p.id) AS total_pages,
			COUNT(DISTINCT p.id) FILTER (WHERE p.is_active) AS active_pages,
			COUNT(o.id) AS total_orders,
			COUNT(o.id) FILTER (WHERE o.status = 'paid') AS paid_orders,
			COALESCE(SUM(o.total_amount) FILTER (WHERE o.status = 'paid'), 0) AS revenue
		FROM checkout_pages p
		LEFT JOIN orders o ON o.checkout_page_id = p.id
		WHERE p.user_id = $1`
	if err := s.db.GetContext(ctx, stats, totals, userID); err != nil {
		return nil, fmt.Errorf("failed to load dashboard totals: %w", mapError(err))
	}

	perPage := `
		SELECT
			p.id AS page_id,
			p.title,
			COUNT(o.id) AS orders,
			COALESCE(SUM(o.total_amount) FILTER (WHERE o.status = 'paid'), 0) AS revenue
		FROM checkout_pages p
		LEFT JOIN orders o ON o.checkout_page_id = p.id
		WHERE p.user_id = $1
		GROUP BY p.id, p.title
		ORDER BY revenue DESC, p.title`
	if err := s.db.SelectContext(ctx, &stats.Pages, perPage, userID); err != nil {
		return nil, fmt.Errorf("failed to load page stats: %w", mapError(err))
	}
	if stats.Pages == nil {
		stats.Pages = []models.PageOrderStats{}
	}

	return stats, nil
}
