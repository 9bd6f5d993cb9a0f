package service

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"time"

	"checkout-builder/internal/broker"
	"checkout-builder/internal/checkout"
	"checkout-builder/internal/models"
	"checkout-builder/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EditSession is the working state of one page in the builder. It belongs to
// a single caller and must be closed when the editor goes away.
type EditSession struct {
	mu        sync.Mutex
	pages     *PageService
	userID    string
	local     *models.CheckoutPage
	baseline  *models.CheckoutPage
	tracker   *checkout.SlugTracker
	debouncer *Debouncer
	guard     FetchGuard
	sub       *broker.Subscription
	slugCheck *SlugAvailability
	onCheck   func(*SlugAvailability)
	logger    *zap.Logger
}

// NewEditSession starts editing page. A page without an id is a new draft.
func NewEditSession(pages *PageService, userID string, page *models.CheckoutPage, debounce time.Duration) *EditSession {
	if page == nil {
		page = &models.CheckoutPage{Theme: models.DefaultTheme(), IsActive: true}
	}

	es := &EditSession{
		pages:     pages,
		userID:    userID,
		local:     clonePage(page),
		tracker:   checkout.NewSlugTracker(page.Slug),
		debouncer: NewDebouncer(debounce),
		logger:    util.GetLogger(),
	}
	if page.ID != "" {
		es.baseline = clonePage(page)
	}
	return es
}

// OnSlugChecked registers a callback for debounced slug check results
func (es *EditSession) OnSlugChecked(fn func(*SlugAvailability)) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.onCheck = fn
}

// Watch refreshes the session whenever the stored page changes
func (es *EditSession) Watch(hub *broker.Hub) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.sub != nil || es.local.ID == "" {
		return
	}
	es.sub = hub.Subscribe(models.ChannelName(models.TableCheckoutPages, es.local.ID), func(*models.ChangeEvent) {
		go es.Refresh(context.Background())
	})
}

// Page returns a copy of the working page
func (es *EditSession) Page() *models.CheckoutPage {
	es.mu.Lock()
	defer es.mu.Unlock()
	return clonePage(es.local)
}

// SlugState returns where the slug tracker stands
func (es *EditSession) SlugState() checkout.SlugState {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.tracker.State()
}

// LastSlugCheck returns the most recent advisory result, nil before the first check
func (es *EditSession) LastSlugCheck() *SlugAvailability {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.slugCheck
}

// SetTitle changes the title; while the slug is a draft it follows the title
func (es *EditSession) SetTitle(title string) {
	es.mu.Lock()
	es.local.Title = title
	es.local.Slug = es.tracker.TitleChanged(title)
	slug := es.local.Slug
	es.mu.Unlock()

	es.scheduleSlugCheck(slug)
}

// SetSlug records a slug typed by the user
func (es *EditSession) SetSlug(value string) {
	es.mu.Lock()
	es.local.Slug = es.tracker.SlugEdited(value)
	slug := es.local.Slug
	es.mu.Unlock()

	es.scheduleSlugCheck(slug)
}

// Edit applies fn to the working page, e.g. one of the checkout mutations
func (es *EditSession) Edit(fn func(page *models.CheckoutPage)) {
	es.mu.Lock()
	defer es.mu.Unlock()
	fn(es.local)
}

func (es *EditSession) scheduleSlugCheck(slug string) {
	if slug == "" {
		es.debouncer.Stop()
		return
	}

	es.debouncer.Trigger(func() {
		result, err := es.pages.CheckSlug(context.Background(), es.userID, slug)
		if err != nil {
			es.logger.Warn("Slug check failed", zap.String("slug", slug), zap.Error(err))
			return
		}

		es.mu.Lock()
		es.slugCheck = result
		cb := es.onCheck
		es.mu.Unlock()

		if cb != nil {
			cb(result)
		}
	})
}

// Save creates or updates the page and adopts the stored version
func (es *EditSession) Save(ctx context.Context) (*SaveResult, error) {
	es.mu.Lock()
	draft := clonePage(es.local)
	es.mu.Unlock()

	var (
		result *SaveResult
		err    error
	)
	if draft.ID == "" {
		result, err = es.pages.CreatePage(ctx, es.userID, draft)
	} else {
		result, err = es.pages.UpdatePage(ctx, es.userID, draft.ID, draft)
	}
	if err != nil {
		return nil, err
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	es.local = clonePage(result.Page)
	es.baseline = clonePage(result.Page)
	// a stored page, renamed or not, keeps its slug when the title changes
	es.tracker = checkout.NewSlugTracker(result.Page.Slug)
	return result, nil
}

// Refresh fetches the stored page and reconciles it with local edits. A refresh
// requested while another is in flight is dropped.
func (es *EditSession) Refresh(ctx context.Context) bool {
	es.mu.Lock()
	pageID := es.local.ID
	es.mu.Unlock()
	if pageID == "" {
		return false
	}

	return es.guard.Run(func() {
		server, err := es.pages.GetPage(ctx, es.userID, pageID)
		if err != nil {
			es.logger.Warn("Failed to refresh page", zap.String("page_id", pageID), zap.Error(err))
			return
		}
		es.Reconcile(server)
	})
}

// Reconcile merges a server copy into the session field by field: a field the
// server changed since the last known server state replaces the local value,
// any other field keeps the local edit. It returns the names of the fields taken
// from the server.
func (es *EditSession) Reconcile(server *models.CheckoutPage) []string {
	es.mu.Lock()
	defer es.mu.Unlock()

	server = clonePage(server)
	base := es.baseline
	if base == nil {
		base = &models.CheckoutPage{}
	}

	var taken []string
	for _, f := range pageFields {
		if f.merge(es.local, base, server) {
			taken = append(taken, f.name)
		}
	}

	es.local.ID = server.ID
	es.local.UserID = server.UserID
	es.local.CreatedAt = server.CreatedAt
	es.local.UpdatedAt = server.UpdatedAt
	es.baseline = server

	if slices.Contains(taken, "slug") {
		es.tracker = checkout.NewSlugTracker(es.local.Slug)
	}
	return taken
}

// Close releases the subscription and any pending slug check
func (es *EditSession) Close() {
	es.debouncer.Stop()

	es.mu.Lock()
	sub := es.sub
	es.sub = nil
	es.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

type pageField struct {
	name  string
	merge func(local, base, server *models.CheckoutPage) bool
}

func field[T any](name string, get func(*models.CheckoutPage) *T) pageField {
	return fieldWith(name, get, func(a, b T) bool { return reflect.DeepEqual(a, b) })
}

func fieldWith[T any](name string, get func(*models.CheckoutPage) *T, equal func(a, b T) bool) pageField {
	return pageField{
		name: name,
		merge: func(local, base, server *models.CheckoutPage) bool {
			if equal(*get(base), *get(server)) {
				return false
			}
			*get(local) = *get(server)
			return true
		},
	}
}

var pageFields = []pageField{
	field("title", func(p *models.CheckoutPage) *string { return &p.Title }),
	field("slug", func(p *models.CheckoutPage) *string { return &p.Slug }),
	field("description", func(p *models.CheckoutPage) *string { return &p.Description }),
	field("logo_url", func(p *models.CheckoutPage) *string { return &p.LogoURL }),
	field("theme", func(p *models.CheckoutPage) *models.CheckoutTheme { return &p.Theme }),
	field("custom_fields", func(p *models.CheckoutPage) *[]models.CustomField { return &p.CustomFields }),
	fieldWith("products", func(p *models.CheckoutPage) *[]models.Product { return &p.Products }, sameProducts),
	field("layout", func(p *models.CheckoutPage) *[]models.LayoutElement { return &p.Layout }),
	field("is_active", func(p *models.CheckoutPage) *bool { return &p.IsActive }),
	field("pixels", func(p *models.CheckoutPage) **models.TrackingPixels { return &p.Pixels }),
	field("utmify_key", func(p *models.CheckoutPage) *string { return &p.UtmifyKey }),
	field("delivery_email", func(p *models.CheckoutPage) *string { return &p.DeliveryEmail }),
}

// sameProducts compares prices by value, so 29.9 and 29.90 are the same price
func sameProducts(a, b []models.Product) bool {
	return slices.EqualFunc(a, b, func(x, y models.Product) bool {
		if !x.Price.Equal(y.Price) {
			return false
		}
		x.Price, y.Price = decimal.Decimal{}, decimal.Decimal{}
		return x == y
	})
}

// clonePage deep-copies p. Collections are never nil in the copy.
func clonePage(p *models.CheckoutPage) *models.CheckoutPage {
	c := *p

	c.CustomFields = make([]models.CustomField, len(p.CustomFields))
	for i, f := range p.CustomFields {
		f.Options = slices.Clone(f.Options)
		c.CustomFields[i] = f
	}
	c.Products = make([]models.Product, len(p.Products))
	copy(c.Products, p.Products)
	c.Layout = make([]models.LayoutElement, len(p.Layout))
	for i, el := range p.Layout {
		if el.Content.Style != nil {
			style := *el.Content.Style
			el.Content.Style = &style
		}
		c.Layout[i] = el
	}
	if p.Pixels != nil {
		px := *p.Pixels
		c.Pixels = &px
	}
	return &c
}
