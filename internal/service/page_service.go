package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-builder/internal/broker"
	"checkout-builder/internal/checkout"
	"checkout-builder/internal/models"
	"checkout-builder/internal/redisclient"
	"checkout-builder/internal/store"
	"checkout-builder/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const slugLockTTL = 5 * time.Second

// PageService handles checkout page business logic
type PageService struct {
	pages     PageRepository
	cache     PageCache
	locker    Locker
	publisher ChangePublisher
	cacheTTL  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewPageService creates a new page service. cache, locker and publisher may be nil.
func NewPageService(
	pages PageRepository,
	cache PageCache,
	locker Locker,
	publisher ChangePublisher,
	cacheTTL time.Duration,
) *PageService {
	return &PageService{
		pages:     pages,
		cache:     cache,
		locker:    locker,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
}

// SlugNotice tells the user the slug they asked for was taken and replaced
type SlugNotice struct {
	Requested string `json:"requested"`
	Assigned  string `json:"assigned"`
	Message   string `json:"message"`
}

// SaveResult is the outcome of creating or updating a page
type SaveResult struct {
	Page       *models.CheckoutPage `json:"page"`
	SlugNotice *SlugNotice          `json:"slug_notice,omitempty"`
}

// SlugAvailability is the answer of the advisory slug check
type SlugAvailability struct {
	Slug       string `json:"slug"`
	Available  bool   `json:"available"`
	Suggestion string `json:"suggestion,omitempty"`
}

// CreatePage validates and stores a new page owned by userID
func (s *PageService) CreatePage(ctx context.Context, userID string, page *models.CheckoutPage) (*SaveResult, error) {
	ctx, span := util.StartSpan(ctx, "PageService.CreatePage")
	defer span.End()

	page.ID = uuid.New().String()
	page.UserID = userID
	if page.Slug == "" {
		page.Slug = page.Title
	}
	if err := s.prepare(page); err != nil {
		return nil, err
	}

	result, err := s.saveWithSlug(ctx, page, "", func(ctx context.Context) error {
		return s.pages.CreatePage(ctx, page)
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.PagesCreatedTotal.Inc()
	s.logger.Info("Page created",
		zap.String("page_id", page.ID),
		zap.String("user_id", userID),
		zap.String("slug", page.Slug))

	s.publish(ctx, models.TableCheckoutPages, models.ActionInsert, page)
	return result, nil
}

// UpdatePage overwrites a page owned by userID
func (s *PageService) UpdatePage(ctx context.Context, userID, pageID string, page *models.CheckoutPage) (*SaveResult, error) {
	ctx, span := util.StartSpan(ctx, "PageService.UpdatePage")
	defer span.End()

	existing, err := s.GetPage(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}

	page.ID = pageID
	page.UserID = userID
	if err := s.prepare(page); err != nil {
		return nil, err
	}

	result, err := s.saveWithSlug(ctx, page, existing.Slug, func(ctx context.Context) error {
		return s.pages.UpdatePage(ctx, page, userID)
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.PagesUpdatedTotal.Inc()
	s.invalidate(ctx, existing.Slug, page.Slug)
	s.publish(ctx, models.TableCheckoutPages, models.ActionUpdate, page)
	return result, nil
}

// DeletePage removes a page owned by userID
func (s *PageService) DeletePage(ctx context.Context, userID, pageID string) error {
	ctx, span := util.StartSpan(ctx, "PageService.DeletePage")
	defer span.End()

	existing, err := s.GetPage(ctx, userID, pageID)
	if err != nil {
		return err
	}

	if err := s.pages.DeletePage(ctx, pageID, userID); err != nil {
		return util.RecordError(span, fmt.Errorf("failed to delete page: %w", err))
	}

	util.PagesDeletedTotal.Inc()
	s.logger.Info("Page deleted", zap.String("page_id", pageID), zap.String("user_id", userID))

	s.invalidate(ctx, existing.Slug)
	s.publish(ctx, models.TableCheckoutPages, models.ActionDelete, existing)
	return nil
}

// GetPage returns a page owned by userID. Pages of other users look like missing pages.
func (s *PageService) GetPage(ctx context.Context, userID, pageID string) (*models.CheckoutPage, error) {
	page, err := s.pages.GetPageByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %s: %w", pageID, err)
	}
	if page.UserID != userID {
		return nil, fmt.Errorf("failed to get page %s: %w", pageID, store.ErrNotFound)
	}
	return page, nil
}

// ListPages returns the pages of userID
func (s *PageService) ListPages(ctx context.Context, userID string) ([]*models.CheckoutPage, error) {
	pages, err := s.pages.ListPagesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// CheckSlug is the advisory availability check shown while typing.
// Only pages of other users count; the write path stays authoritative.
func (s *PageService) CheckSlug(ctx context.Context, userID, slug string) (*SlugAvailability, error) {
	ctx, span := util.StartSpan(ctx, "PageService.CheckSlug")
	defer span.End()

	normalized := checkout.NormalizeSlug(slug)
	if err := checkout.ValidateSlug(normalized); err != nil {
		return nil, err
	}

	taken, err := s.pages.SlugTakenByOtherUser(ctx, normalized, userID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	out := &SlugAvailability{Slug: normalized, Available: !taken}
	if taken {
		out.Suggestion = checkout.ConflictSlug(normalized, s.now())
	}
	return out, nil
}

// PublicPage loads an active page for the storefront, going through the cache
func (s *PageService) PublicPage(ctx context.Context, slug string) (*models.CheckoutPage, error) {
	ctx, span := util.StartSpan(ctx, "PageService.PublicPage")
	defer span.End()

	slug = checkout.NormalizeSlug(slug)

	if s.cache != nil {
		cached, err := s.cache.GetPage(ctx, slug)
		if err != nil {
			s.logger.Warn("Page cache read failed", zap.String("slug", slug), zap.Error(err))
		}
		if cached != nil {
			util.PageCacheRequestsTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
		util.PageCacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	page, err := s.pages.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %q: %w", slug, err)
	}
	if !page.IsActive {
		return nil, fmt.Errorf("page %q is inactive: %w", slug, store.ErrNotFound)
	}

	if s.cache != nil {
		if err := s.cache.SetPage(ctx, page, s.cacheTTL); err != nil {
			s.logger.Warn("Page cache write failed", zap.String("slug", slug), zap.Error(err))
		}
	}
	return page, nil
}

// RenderPublicPage returns the storefront structure of an active page
func (s *PageService) RenderPublicPage(ctx context.Context, slug string) (*checkout.RenderedPage, error) {
	page, err := s.PublicPage(ctx, slug)
	if err != nil {
		return nil, err
	}
	return checkout.Render(page), nil
}

// RemoveField deletes a custom field and every layout block bound to it
func (s *PageService) RemoveField(ctx context.Context, userID, pageID, fieldID string) (*models.CheckoutPage, error) {
	return s.mutate(ctx, userID, pageID, func(page *models.CheckoutPage) bool {
		return checkout.RemoveFieldAndLinkedElements(page, fieldID)
	})
}

// RemoveLayoutElement deletes a layout block; text field blocks take their field with them
func (s *PageService) RemoveLayoutElement(ctx context.Context, userID, pageID, elementID string) (*models.CheckoutPage, error) {
	return s.mutate(ctx, userID, pageID, func(page *models.CheckoutPage) bool {
		return checkout.RemoveLayoutElement(page, elementID)
	})
}

func (s *PageService) mutate(ctx context.Context, userID, pageID string, apply func(*models.CheckoutPage) bool) (*models.CheckoutPage, error) {
	page, err := s.GetPage(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}
	if !apply(page) {
		return nil, store.ErrNotFound
	}

	if err := s.pages.UpdatePage(ctx, page, userID); err != nil {
		return nil, fmt.Errorf("failed to save page: %w", err)
	}

	util.PagesUpdatedTotal.Inc()
	s.invalidate(ctx, page.Slug)
	s.publish(ctx, models.TableCheckoutPages, models.ActionUpdate, page)
	return page, nil
}

// prepare normalizes the page and rejects it before anything is written
func (s *PageService) prepare(page *models.CheckoutPage) error {
	checkout.NormalizePage(page)

	err := checkout.ValidateSlug(page.Slug)
	if err == nil {
		err = checkout.ValidatePage(page)
	}
	if err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			util.ValidationFailuresTotal.WithLabelValues(string(verr.Code)).Inc()
		}
		return err
	}
	return nil
}

// saveWithSlug runs write with the slug rules applied: the advisory check may
// rename up front, and a unique violation from the store renames and retries once.
// currentSlug is the stored slug of the page being updated, empty on create.
func (s *PageService) saveWithSlug(
	ctx context.Context,
	page *models.CheckoutPage,
	currentSlug string,
	write func(context.Context) error,
) (*SaveResult, error) {
	requested := page.Slug

	if requested != currentSlug {
		release := s.lockSlug(ctx, requested)
		defer release()

		taken, err := s.pages.SlugTakenByOtherUser(ctx, requested, page.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		if taken {
			page.Slug = checkout.ConflictSlug(requested, s.now())
			util.SlugConflictsTotal.WithLabelValues("advisory").Inc()
		}
	}

	err := write(ctx)
	if err != nil && store.IsSlugConflict(err) {
		renamed := checkout.ConflictSlug(page.Slug, s.now())
		s.logger.Info("Slug taken at write time, renaming",
			zap.String("slug", page.Slug),
			zap.String("renamed", renamed))
		page.Slug = renamed
		util.SlugConflictsTotal.WithLabelValues("write").Inc()
		err = write(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save page: %w", err)
	}

	result := &SaveResult{Page: page}
	if page.Slug != requested {
		result.SlugNotice = &SlugNotice{
			Requested: requested,
			Assigned:  page.Slug,
			Message:   fmt.Sprintf("The address %q is already in use, the page was saved as %q", requested, page.Slug),
		}
	}
	return result, nil
}

// lockSlug serializes claims of the same slug across instances. A lock
// failure never blocks the save; the unique index still decides.
func (s *PageService) lockSlug(ctx context.Context, slug string) func() {
	if s.locker == nil {
		return func() {}
	}

	name := "slug:" + slug
	token, err := s.locker.AcquireLock(ctx, name, slugLockTTL)
	if err != nil {
		if !errors.Is(err, redisclient.ErrLockHeld) {
			s.logger.Warn("Failed to acquire slug lock", zap.String("slug", slug), zap.Error(err))
		}
		return func() {}
	}

	return func() {
		if err := s.locker.ReleaseLock(context.Background(), name, token); err != nil {
			s.logger.Warn("Failed to release slug lock", zap.String("slug", slug), zap.Error(err))
		}
	}
}

func (s *PageService) invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePage(ctx, slugs...); err != nil {
		s.logger.Warn("Failed to invalidate page cache", zap.Strings("slugs", slugs), zap.Error(err))
	}
}

func (s *PageService) publish(ctx context.Context, table, action string, page *models.CheckoutPage) {
	if s.publisher == nil {
		return
	}

	var record interface{} = page
	if action == models.ActionDelete {
		record = nil
	}
	event, err := broker.NewChangeEvent(table, action, page.ID, page.ID, page.UserID, record)
	if err != nil {
		s.logger.Error("Failed to build change event", zap.Error(err))
		return
	}
	if err := s.publisher.PublishChange(ctx, event); err != nil {
		s.logger.Error("Failed to publish change event",
			zap.String("page_id", page.ID),
			zap.String("action", action),
			zap.Error(err))
	}
}
