package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"checkout-builder/internal/broker"
	"checkout-builder/internal/checkout"
	"checkout-builder/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditSessionDraftSlugFollowsTitle(t *testing.T) {
	pages := newMemPages(storedPage("page-a", "user-a", "promo"))
	s := newTestPageService(pages, nil, nil)

	es := NewEditSession(s, "user-b", nil, 10*time.Millisecond)
	defer es.Close()

	var mu sync.Mutex
	var checks []*SlugAvailability
	es.OnSlugChecked(func(a *SlugAvailability) {
		mu.Lock()
		checks = append(checks, a)
		mu.Unlock()
	})

	es.SetTitle("Pro")
	es.SetTitle("Promo")
	assert.Equal(t, "promo", es.Page().Slug)
	assert.Equal(t, checkout.SlugDraft, es.SlugState())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(checks) == 1
	}, time.Second, 5*time.Millisecond)

	last := es.LastSlugCheck()
	require.NotNil(t, last)
	assert.Equal(t, "promo", last.Slug)
	assert.False(t, last.Available)

	es.SetSlug("My Promo")
	assert.Equal(t, checkout.SlugUserEdited, es.SlugState())
	es.SetTitle("Something else")
	assert.Equal(t, "my-promo", es.Page().Slug)
}

func TestEditSessionSaveAdoptsRenamedSlug(t *testing.T) {
	pages := newMemPages(storedPage("page-a", "user-a", "promo"))
	s := newTestPageService(pages, nil, nil)

	draft := draftPage("")
	es := NewEditSession(s, "user-b", draft, time.Hour)
	defer es.Close()
	es.SetTitle("Promo")

	res, err := es.Save(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.SlugNotice)

	page := es.Page()
	assert.Equal(t, "promo-1700000000000", page.Slug)
	assert.NotEmpty(t, page.ID)

	// stored pages keep their slug when the title changes
	es.SetTitle("Promo Reloaded")
	assert.Equal(t, "promo-1700000000000", es.Page().Slug)
}

func TestEditSessionReconcileIsLastWriteWinsPerField(t *testing.T) {
	stored := storedPage("page-1", "user-a", "promo")
	es := NewEditSession(nil, "user-a", stored, time.Hour)
	defer es.Close()

	es.Edit(func(p *models.CheckoutPage) { p.Description = "local description" })
	es.SetTitle("Local title")

	server := storedPage("page-1", "user-a", "promo")
	server.Title = "Server title"
	server.Theme.PrimaryColor = "#000000"

	taken := es.Reconcile(server)
	assert.ElementsMatch(t, []string{"title", "theme"}, taken)

	page := es.Page()
	assert.Equal(t, "Server title", page.Title)
	assert.Equal(t, "#000000", page.Theme.PrimaryColor)
	assert.Equal(t, "local description", page.Description)

	// a second copy with no new server changes leaves local edits alone
	es.Edit(func(p *models.CheckoutPage) { p.Title = "Edited again" })
	assert.Empty(t, es.Reconcile(server))
	assert.Equal(t, "Edited again", es.Page().Title)
}

// databaseCopy returns page the way the store reads it back: jsonb collections
// decode to empty slices and prices come from a NUMERIC(12,2) column
func databaseCopy(page *models.CheckoutPage) *models.CheckoutPage {
	c := clonePage(page)
	for i := range c.Products {
		c.Products[i].Price = decimal.RequireFromString(c.Products[i].Price.StringFixed(2))
	}
	return c
}

func TestEditSessionReconcileIgnoresStorageEncoding(t *testing.T) {
	stored := storedPage("page-1", "user-a", "promo")
	stored.Products[0].Name = "Book"
	stored.Products[0].Price = decimal.RequireFromString("29.9")
	require.Nil(t, stored.CustomFields)
	require.Nil(t, stored.Layout)

	es := NewEditSession(nil, "user-a", stored, time.Hour)
	defer es.Close()

	es.Edit(func(p *models.CheckoutPage) {
		p.CustomFields = append(p.CustomFields, models.CustomField{ID: "f1", Name: "instagram", Label: "Instagram", Type: models.FieldText})
		p.Products[0].Name = "Book v2"
	})

	server := databaseCopy(stored)
	server.CustomFields = []models.CustomField{}
	server.Layout = []models.LayoutElement{}

	assert.Empty(t, es.Reconcile(server))

	page := es.Page()
	require.Len(t, page.CustomFields, 1)
	assert.Equal(t, "f1", page.CustomFields[0].ID)
	assert.Equal(t, "Book v2", page.Products[0].Name)
}

func TestEditSessionSavedBaselineMatchesStoredCopy(t *testing.T) {
	pages := newMemPages()
	s := newTestPageService(pages, nil, nil)

	draft := draftPage("Launch")
	draft.Products[0].Price = decimal.RequireFromString("29.9")

	es := NewEditSession(s, "user-a", draft, time.Hour)
	defer es.Close()

	res, err := es.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(-2), res.Page.Products[0].Price.Exponent())
	assert.NotNil(t, res.Page.CustomFields)
	assert.NotNil(t, res.Page.Layout)

	es.Edit(func(p *models.CheckoutPage) { p.Products[0].Name = "Local rename" })

	assert.Empty(t, es.Reconcile(databaseCopy(res.Page)))
	assert.Equal(t, "Local rename", es.Page().Products[0].Name)
}

func TestEditSessionWatchRefreshesAndCloseUnsubscribes(t *testing.T) {
	pages := newMemPages(storedPage("page-1", "user-a", "promo"))
	s := newTestPageService(pages, nil, nil)
	hub := broker.NewHub()
	channel := models.ChannelName(models.TableCheckoutPages, "page-1")

	page, err := s.GetPage(context.Background(), "user-a", "page-1")
	require.NoError(t, err)

	es := NewEditSession(s, "user-a", page, time.Hour)
	es.Watch(hub)
	es.Watch(hub)
	assert.Equal(t, 1, hub.Subscribers(channel))

	// another tab renames the page
	edit := storedPage("page-1", "user-a", "promo")
	edit.Title = "Renamed elsewhere"
	_, err = s.UpdatePage(context.Background(), "user-a", "page-1", edit)
	require.NoError(t, err)

	ev, err := broker.NewChangeEvent(models.TableCheckoutPages, models.ActionUpdate, "page-1", "page-1", "user-a", nil)
	require.NoError(t, err)
	hub.Dispatch(ev)

	assert.Eventually(t, func() bool {
		return es.Page().Title == "Renamed elsewhere"
	}, time.Second, 5*time.Millisecond)

	es.Close()
	es.Close()
	assert.Equal(t, 0, hub.Subscribers(channel))
}

func TestClonePageIsDeep(t *testing.T) {
	p := storedPage("page-1", "user-a", "promo")
	p.CustomFields = []models.CustomField{{ID: "f", Type: models.FieldSelect, Options: []string{"a"}}}
	p.Layout = []models.LayoutElement{{ID: "e", Content: models.LayoutContent{Style: &models.ElementStyle{Color: "red"}}}}
	p.Pixels = &models.TrackingPixels{FacebookPixelID: "1"}

	c := clonePage(p)
	c.CustomFields[0].Options[0] = "b"
	c.Layout[0].Content.Style.Color = "blue"
	c.Pixels.FacebookPixelID = "2"
	c.Products[0].Name = "changed"

	assert.Equal(t, "a", p.CustomFields[0].Options[0])
	assert.Equal(t, "red", p.Layout[0].Content.Style.Color)
	assert.Equal(t, "1", p.Pixels.FacebookPixelID)
	assert.Equal(t, "Ebook", p.Products[0].Name)
}
