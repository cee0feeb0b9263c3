package domain

// CategoryAll is the reserved id of the virtual "all bookmarks" view.
// It is never stored as a real category row.
const CategoryAll = "all"

// Category is a user-named grouping of bookmarks.
type Category struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier, generated at creation.
	ID string `json:"id"`

	// ─────────────────────────────
	// Display
	// ─────────────────────────────

	// Name is the user-facing label. Example: "Work"
	Name string `json:"name"`

	// Icon is a Lucide icon name. Example: "Briefcase"
	Icon string `json:"icon"`

	// Color is a hex color or CSS variable used by the UI chrome.
	Color string `json:"color"`
}

// Bookmark represents a saved URL plus user-supplied categorization and
// system-fetched metadata.
//
// Deleting a category leaves its bookmarks in place with a dangling
// CategoryID; the UI treats those as uncategorized.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier, generated at creation.
	ID string `json:"id"`

	// ─────────────────────────────
	// User-supplied
	// ─────────────────────────────

	// URL is the saved address. Always carries a scheme: bare hosts get
	// https:// prepended before persisting.
	URL string `json:"url"`

	// CategoryID references a Category. May dangle after a category
	// delete.
	CategoryID string `json:"categoryId"`

	// Tags are lowercase, de-duplicated, never empty strings.
	Tags []string `json:"tags"`

	// CreatedAt is wall-clock milliseconds at creation time.
	CreatedAt int64 `json:"createdAt"`

	// ─────────────────────────────
	// Filled by ingestion
	// ─────────────────────────────

	// Title is the extracted page title, empty until ingested.
	Title string `json:"title,omitempty"`

	// Description is the extracted page description.
	Description string `json:"description,omitempty"`

	// Icon is the remote icon URL selected by extraction.
	Icon string `json:"icon,omitempty"`

	// Image is the remote hero image URL selected by extraction.
	Image string `json:"image,omitempty"`

	// ─────────────────────────────
	// Local cache artifacts
	// ─────────────────────────────

	// CachedContentPath points at the locally cached content.html.
	CachedContentPath string `json:"cachedContentPath,omitempty"`

	// LocalIconPath points at the locally cached icon file.
	LocalIconPath string `json:"localIconPath,omitempty"`

	// LocalImagePath points at the locally cached hero image file.
	LocalImagePath string `json:"localImagePath,omitempty"`
}

// DefaultCategories returns the seed set used when no catalog exists yet.
// The virtual "all" selector is intentionally absent.
func DefaultCategories() []Category {
	return []Category{
		{ID: "work", Name: "Work", Icon: "Briefcase", Color: "#4da3ff"},
		{ID: "personal", Name: "Personal", Icon: "User", Color: "#3fe47e"},
		{ID: "learning", Name: "Learning", Icon: "BookOpen", Color: "#ff9f43"},
		{ID: "entertainment", Name: "Entertainment", Icon: "Gamepad2", Color: "#ff4d4d"},
	}
}
