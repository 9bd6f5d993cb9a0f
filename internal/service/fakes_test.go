package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"checkout-builder/internal/models"
	"checkout-builder/internal/store"
)

// memPages is an in-memory PageRepository with a global unique slug
type memPages struct {
	mu          sync.Mutex
	pages       map[string]*models.CheckoutPage
	beforeWrite func(page *models.CheckoutPage)
	writes      int
	slugQueries int
}

func newMemPages(pages ...*models.CheckoutPage) *memPages {
	m := &memPages{pages: map[string]*models.CheckoutPage{}}
	for _, p := range pages {
		m.pages[p.ID] = clonePage(p)
	}
	return m
}

func (m *memPages) slugOwner(slug, exceptID string) bool {
	for id, p := range m.pages {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

func (m *memPages) write(page *models.CheckoutPage, mustExist bool, ownerID string) error {
	if m.beforeWrite != nil {
		hook := m.beforeWrite
		m.beforeWrite = nil
		m.mu.Unlock()
		hook(page)
		m.mu.Lock()
	}

	m.writes++

	existing, ok := m.pages[page.ID]
	if mustExist && (!ok || existing.UserID != ownerID) {
		return store.ErrNotFound
	}
	if m.slugOwner(page.Slug, page.ID) {
		return &store.ConflictError{Constraint: store.SlugConstraint}
	}

	stored := clonePage(page)
	now := time.Now()
	if ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	m.pages[page.ID] = stored
	page.CreatedAt, page.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

func (m *memPages) CreatePage(_ context.Context, page *models.CheckoutPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(page, false, "")
}

func (m *memPages) UpdatePage(_ context.Context, page *models.CheckoutPage, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(page, true, ownerID)
}

func (m *memPages) DeletePage(_ context.Context, pageID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[pageID]
	if !ok || p.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(m.pages, pageID)
	return nil
}

func (m *memPages) GetPageByID(_ context.Context, id string) (*models.CheckoutPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clonePage(p), nil
}

func (m *memPages) GetPageBySlug(_ context.Context, slug string) (*models.CheckoutPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pages {
		if p.Slug == slug {
			return clonePage(p), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memPages) ListPagesByUser(_ context.Context, userID string) ([]*models.CheckoutPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.CheckoutPage
	for _, p := range m.pages {
		if p.UserID == userID {
			out = append(out, clonePage(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *memPages) SlugTakenByOtherUser(_ context.Context, slug, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slugQueries++
	for _, p := range m.pages {
		if p.Slug == slug && p.UserID != userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPages) get(id string) *models.CheckoutPage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[id]
}

// memOrders is an in-memory OrderRepository
type memOrders struct {
	mu     sync.Mutex
	pages  *memPages
	orders map[string]*models.Order
	fail   error
}

func newMemOrders(pages *memPages) *memOrders {
	return &memOrders{pages: pages, orders: map[string]*models.Order{}}
}

func (m *memOrders) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	m.orders[order.ID] = &stored
	return nil
}

func (m *memOrders) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *o
	return &out, nil
}

func (m *memOrders) owner(pageID string) string {
	if p := m.pages.get(pageID); p != nil {
		return p.UserID
	}
	return ""
}

func (m *memOrders) ListOrdersByPage(_ context.Context, pageID, ownerID string) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*models.Order{}
	if m.owner(pageID) != ownerID {
		return out, nil
	}
	for _, o := range m.orders {
		if o.CheckoutPageID == pageID {
			c := *o
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memOrders) UpdateOrderStatus(_ context.Context, orderID, ownerID, status string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok || m.owner(o.CheckoutPageID) != ownerID {
		return nil, store.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	out := *o
	return &out, nil
}

func (m *memOrders) GetDashboardStats(_ context.Context, userID string) (*models.DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &models.DashboardStats{}
	for _, o := range m.orders {
		if m.owner(o.CheckoutPageID) != userID {
			continue
		}
		stats.TotalOrders++
		if o.Status == models.OrderStatusPaid {
			stats.PaidOrders++
			stats.Revenue = stats.Revenue.Add(o.TotalAmount)
		}
	}
	return stats, nil
}

// memCache is an in-memory PageCache
type memCache struct {
	mu    sync.Mutex
	pages map[string]*models.CheckoutPage
	hits  int
}

func newMemCache() *memCache {
	return &memCache{pages: map[string]*models.CheckoutPage{}}
}

func (c *memCache) GetPage(_ context.Context, slug string) (*models.CheckoutPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pages[slug]
	if !ok {
		return nil, nil
	}
	c.hits++
	return clonePage(p), nil
}

func (c *memCache) SetPage(_ context.Context, page *models.CheckoutPage, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[page.Slug] = clonePage(page)
	return nil
}

func (c *memCache) InvalidatePage(_ context.Context, slugs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range slugs {
		delete(c.pages, s)
	}
	return nil
}

// memIdempotency is an in-memory IdempotencyStore
type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: map[string]string{}}
}

func (m *memIdempotency) ClaimIdempotencyKey(_ context.Context, pageID, key, orderID string, _ time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := pageID + ":" + key
	if existing, ok := m.keys[k]; ok {
		return existing, false, nil
	}
	m.keys[k] = orderID
	return orderID, true, nil
}

func (m *memIdempotency) ReleaseIdempotencyKey(_ context.Context, pageID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, pageID+":"+key)
	return nil
}

// recordingPublisher collects published change events
type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.ChangeEvent
}

func (r *recordingPublisher) PublishChange(_ context.Context, event *models.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Channel() + "/" + e.Action
	}
	return out
}
