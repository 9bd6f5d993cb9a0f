package service

import (
	"context"
	"time"

	"checkout-builder/internal/models"
)

// PageRepository is the persistence the page service needs. *store.Store implements it.
type PageRepository interface {
	CreatePage(ctx context.Context, page *models.CheckoutPage) error
	UpdatePage(ctx context.Context, page *models.CheckoutPage, ownerID string) error
	DeletePage(ctx context.Context, pageID, ownerID string) error
	GetPageByID(ctx context.Context, id string) (*models.CheckoutPage, error)
	GetPageBySlug(ctx context.Context, slug string) (*models.CheckoutPage, error)
	ListPagesByUser(ctx context.Context, userID string) ([]*models.CheckoutPage, error)
	SlugTakenByOtherUser(ctx context.Context, slug, userID string) (bool, error)
}

// OrderRepository is the persistence the order service needs. *store.Store implements it.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByPage(ctx context.Context, pageID, ownerID string) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, ownerID, status string) (*models.Order, error)
	GetDashboardStats(ctx context.Context, userID string) (*models.DashboardStats, error)
}

// PageCache holds storefront copies of pages keyed by slug
type PageCache interface {
	GetPage(ctx context.Context, slug string) (*models.CheckoutPage, error)
	SetPage(ctx context.Context, page *models.CheckoutPage, ttl time.Duration) error
	InvalidatePage(ctx context.Context, slugs ...string) error
}

// Locker guards a named resource across instances
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// IdempotencyStore binds client supplied keys to order ids
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, pageID, key, orderID string, ttl time.Duration) (string, bool, error)
	ReleaseIdempotencyKey(ctx context.Context, pageID, key string) error
}

// ChangePublisher puts row changes on the change feed
type ChangePublisher interface {
	PublishChange(ctx context.Context, event *models.ChangeEvent) error
}
