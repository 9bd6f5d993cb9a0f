package checkout

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace   = regexp.MustCompile(`\s+`)
	slugHyphens      = regexp.MustCompile(`-+`)
)

// NormalizeSlug derives a url-safe slug from a page title.
// The result only contains [a-z0-9-] and NormalizeSlug(NormalizeSlug(x)) == NormalizeSlug(x).
func NormalizeSlug(title string) string {
	s := strings.ToLower(title)
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ConflictSlug is the replacement used when slug is already taken
func ConflictSlug(slug string, now time.Time) string {
	return fmt.Sprintf("%s-%d", slug, now.UnixMilli())
}

// SlugState tells whether the slug still follows the title
type SlugState int

const (
	// SlugDraft: every title change rewrites the slug
	SlugDraft SlugState = iota
	// SlugUserEdited: the user typed a slug, title changes leave it alone
	SlugUserEdited
)

func (s SlugState) String() string {
	if s == SlugUserEdited {
		return "user_edited"
	}
	return "draft"
}

// SlugTracker follows the slug of one page while it is being edited
type SlugTracker struct {
	state SlugState
	slug  string
}

// NewSlugTracker starts tracking. Existing pages (non-empty slug) start as user edited
// so reopening a page never rewrites a published url.
func NewSlugTracker(current string) *SlugTracker {
	t := &SlugTracker{slug: current}
	if current != "" {
		t.state = SlugUserEdited
	}
	return t
}

func (t *SlugTracker) State() SlugState { return t.state }

func (t *SlugTracker) Slug() string { return t.slug }

// TitleChanged returns the slug after the title became title
func (t *SlugTracker) TitleChanged(title string) string {
	if t.state == SlugDraft {
		t.slug = NormalizeSlug(title)
	}
	return t.slug
}

// SlugEdited records a manual edit of the slug box. Clearing the box hands
// control back to the title.
func (t *SlugTracker) SlugEdited(value string) string {
	t.slug = NormalizeSlug(value)
	if t.slug == "" {
		t.state = SlugDraft
	} else {
		t.state = SlugUserEdited
	}
	return t.slug
}

// Conflict renames the slug after a uniqueness failure. The renamed slug
// counts as user edited: it must not be overwritten by a later title change.
func (t *SlugTracker) Conflict(now time.Time) string {
	t.slug = ConflictSlug(t.slug, now)
	t.state = SlugUserEdited
	return t.slug
}
