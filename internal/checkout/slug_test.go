package checkout

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]*$`)

func TestNormalizeSlug(t *testing.T) {
	cases := map[string]string{
		"  Curso Premium!! 2024  ": "curso-premium-2024",
		"Hello World":              "hello-world",
		"already-a-slug":           "already-a-slug",
		"--Leading and trailing--": "leading-and-trailing",
		"multi   space\t\ttabs":    "multi-space-tabs",
		"a - - b":                  "a-b",
		"Ação Rápida":              "ao-rpida",
		"!!!":                      "",
		"":                         "",
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizeSlug(in), "input %q", in)
	}
}

func TestNormalizeSlugIsIdempotent(t *testing.T) {
	inputs := []string{
		"  Curso Premium!! 2024  ",
		"Black Friday -- 50% OFF",
		"___under_scores___",
		"émoji 🚀 launch",
		"x",
		"-",
		"UPPER lower 123",
	}

	for _, in := range inputs {
		once := NormalizeSlug(in)
		assert.Equal(t, once, NormalizeSlug(once), "input %q", in)
		assert.Regexp(t, slugPattern, once)
	}
}

func TestConflictSlug(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	assert.Equal(t, "promo-1718000000123", ConflictSlug("promo", now))
}

func TestSlugTrackerFollowsTitleWhileDraft(t *testing.T) {
	tracker := NewSlugTracker("")
	assert.Equal(t, SlugDraft, tracker.State())

	assert.Equal(t, "my-course", tracker.TitleChanged("My Course"))
	assert.Equal(t, "my-course-v2", tracker.TitleChanged("My Course v2"))
}

func TestSlugTrackerStopsFollowingAfterManualEdit(t *testing.T) {
	tracker := NewSlugTracker("")
	tracker.TitleChanged("My Course")

	assert.Equal(t, "custom", tracker.SlugEdited("Custom"))
	assert.Equal(t, SlugUserEdited, tracker.State())
	assert.Equal(t, "custom", tracker.TitleChanged("Another Title"))

	// clearing the slug box hands control back to the title
	tracker.SlugEdited("")
	assert.Equal(t, SlugDraft, tracker.State())
	assert.Equal(t, "another-title", tracker.TitleChanged("Another Title"))
}

func TestSlugTrackerExistingPageKeepsSlug(t *testing.T) {
	tracker := NewSlugTracker("launch")
	assert.Equal(t, SlugUserEdited, tracker.State())
	assert.Equal(t, "launch", tracker.TitleChanged("Something Else"))
}

func TestSlugTrackerConflict(t *testing.T) {
	tracker := NewSlugTracker("")
	tracker.TitleChanged("Promo")

	renamed := tracker.Conflict(time.UnixMilli(42))
	assert.Equal(t, "promo-42", renamed)
	assert.Equal(t, SlugUserEdited, tracker.State())
	assert.Equal(t, "promo-42", tracker.TitleChanged("Promo Again"))
}
