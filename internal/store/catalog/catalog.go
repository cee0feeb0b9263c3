package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tote-app/tote/internal/cache"
	"github.com/tote-app/tote/internal/domain"
	"github.com/tote-app/tote/internal/logger"
)

// RecentLimit is how many bookmarks recent-bookmarks returns.
const RecentLimit = 20

// Ingester starts (or joins) an ingestion for a bookmark. Implemented by
// the ingest coordinator.
type Ingester interface {
	Ingest(ctx context.Context, id, url string) (domain.IngestResult, error)
}

// Options configures a Store.
type Options struct {
	Fs             afero.Fs
	Path           string // full path of catalog.json
	SeedCategories []domain.Category
	Layout         *cache.Layout // cache cleanup on delete; may be nil
	Ingester       Ingester      // may be nil, ingestion is then skipped
	Logger         logger.Logger
	Now            func() time.Time // defaults to time.Now
}

// Store is the single source of truth for bookmarks and categories.
// Every mutation persists the whole catalog atomically and publishes a
// change event. Reads return snapshots.
type Store struct {
	fs       afero.Fs
	path     string
	layout   *cache.Layout
	ingester Ingester
	logger   logger.Logger
	now      func() time.Time
	bus      *Bus

	mu         sync.Mutex
	categories []domain.Category
	bookmarks  []domain.Bookmark
	catExtra   map[string]rawFields
	bmExtra    map[string]rawFields
	docExtra   rawFields

	jobs sync.WaitGroup // in-flight async work (ingests, cache deletes)
}

// Open loads the catalog document, seeding default categories when no
// document exists yet.
func Open(opts Options) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		fs:       opts.Fs,
		path:     opts.Path,
		layout:   opts.Layout,
		ingester: opts.Ingester,
		logger:   opts.Logger,
		now:      opts.Now,
		bus:      NewBus(),
		catExtra: make(map[string]rawFields),
		bmExtra:  make(map[string]rawFields),
	}

	data, err := afero.ReadFile(s.fs, s.path)
	switch {
	case err != nil:
		exists, _ := afero.Exists(s.fs, s.path)
		if exists {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		s.categories = append(s.categories, opts.SeedCategories...)
		s.logger.Info("no catalog found, starting fresh",
			logger.String("path", s.path),
			logger.Int("seed_categories", len(s.categories)))
	default:
		s.categories, s.bookmarks, s.catExtra, s.bmExtra, s.docExtra, err = decodeDocument(data)
		if err != nil {
			return nil, err
		}
		s.logger.Info("catalog loaded",
			logger.String("path", s.path),
			logger.Int("categories", len(s.categories)),
			logger.Int("bookmarks", len(s.bookmarks)))
	}

	return s, nil
}

// Subscribe registers a listener for change events.
func (s *Store) Subscribe() (<-chan Change, func()) {
	return s.bus.Subscribe()
}

// Wait blocks until all async work spawned by mutations has drained.
func (s *Store) Wait() {
	s.jobs.Wait()
}

// ─────────────────────────────────────────────────────────────────
// Categories
// ─────────────────────────────────────────────────────────────────

// AddCategoryParams are the user-supplied fields of a new category.
type AddCategoryParams struct {
	Name  string
	Icon  string
	Color string
}

// CategoryPatch carries partial category updates; nil means unchanged.
type CategoryPatch struct {
	Name  *string
	Icon  *string
	Color *string
}

func (s *Store) AddCategory(p AddCategoryParams) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := domain.Category{
		ID:    uuid.NewString(),
		Name:  p.Name,
		Icon:  p.Icon,
		Color: p.Color,
	}
	s.categories = append(s.categories, c)

	if err := s.persistLocked(); err != nil {
		return domain.Category{}, err
	}
	s.bus.Publish(Change{Entity: EntityCategory, ID: c.ID, Kind: ChangeCreated})
	return c, nil
}

func (s *Store) UpdateCategory(id string, patch CategoryPatch) (domain.Category, error) {
	if id == domain.CategoryAll {
		// The virtual view is not a row.
		return domain.Category{}, domain.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndexLocked(id)
	if i < 0 {
		return domain.Category{}, domain.ErrNotFound
	}

	c := s.categories[i]
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Icon != nil {
		c.Icon = *patch.Icon
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	s.categories[i] = c

	if err := s.persistLocked(); err != nil {
		return domain.Category{}, err
	}
	s.bus.Publish(Change{Entity: EntityCategory, ID: id, Kind: ChangeUpdated})
	return c, nil
}

// DeleteCategory removes a category row. Bookmarks keep their (now
// dangling) categoryId. Deleting the reserved "all" id is a no-op.
func (s *Store) DeleteCategory(id string) error {
	if id == domain.CategoryAll {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndexLocked(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	delete(s.catExtra, id)

	if err := s.persistLocked(); err != nil {
		return err
	}
	s.bus.Publish(Change{Entity: EntityCategory, ID: id, Kind: ChangeDeleted})
	return nil
}

// Categories returns a snapshot of all category rows.
func (s *Store) Categories() []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// ─────────────────────────────────────────────────────────────────
// Bookmarks
// ─────────────────────────────────────────────────────────────────

// AddBookmarkParams are the user-supplied fields of a new bookmark.
type AddBookmarkParams struct {
	URL        string
	CategoryID string
	Tags       []string
}

// BookmarkPatch carries partial bookmark updates; nil means unchanged.
type BookmarkPatch struct {
	URL        *string
	CategoryID *string
	Tags       []string // nil = unchanged, empty = clear
}

// AddBookmark persists a new bookmark and kicks off its ingestion in the
// background. The bookmark is visible immediately; metadata fills in (or
// stays blank) as ingestion resolves.
func (s *Store) AddBookmark(p AddBookmarkParams) (domain.Bookmark, error) {
	normalized := domain.NormalizeURL(p.URL)
	if !domain.ValidURL(normalized) {
		return domain.Bookmark{}, fmt.Errorf("invalid url: %q", p.URL)
	}

	s.mu.Lock()
	b := domain.Bookmark{
		ID:         uuid.NewString(),
		URL:        normalized,
		CategoryID: p.CategoryID,
		Tags:       domain.NormalizeTags(p.Tags),
		CreatedAt:  s.now().UnixMilli(),
	}
	s.bookmarks = append(s.bookmarks, b)

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return domain.Bookmark{}, err
	}
	s.bus.Publish(Change{Entity: EntityBookmark, ID: b.ID, Kind: ChangeCreated})
	s.mu.Unlock()

	s.requestIngest(b.ID, b.URL)
	return b, nil
}

// UpdateBookmark merges patch into an existing bookmark. A URL change
// re-requests ingestion; the coordinator supersedes any in-flight job.
func (s *Store) UpdateBookmark(id string, patch BookmarkPatch) (domain.Bookmark, error) {
	s.mu.Lock()

	i := s.bookmarkIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Bookmark{}, domain.ErrNotFound
	}

	b := s.bookmarks[i]
	urlChanged := false

	if patch.URL != nil {
		normalized := domain.NormalizeURL(*patch.URL)
		if !domain.ValidURL(normalized) {
			s.mu.Unlock()
			return domain.Bookmark{}, fmt.Errorf("invalid url: %q", *patch.URL)
		}
		urlChanged = normalized != b.URL
		b.URL = normalized
	}
	if patch.CategoryID != nil {
		b.CategoryID = *patch.CategoryID
	}
	if patch.Tags != nil {
		b.Tags = domain.NormalizeTags(patch.Tags)
	}
	s.bookmarks[i] = b

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return domain.Bookmark{}, err
	}
	s.bus.Publish(Change{Entity: EntityBookmark, ID: id, Kind: ChangeUpdated})
	s.mu.Unlock()

	if urlChanged {
		s.requestIngest(id, b.URL)
	}
	return b, nil
}

// DeleteBookmark removes the row and asynchronously deletes the cache
// entry directory. Cache cleanup failures are logged, never propagated.
func (s *Store) DeleteBookmark(id string) error {
	s.mu.Lock()

	i := s.bookmarkIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	s.bookmarks = append(s.bookmarks[:i], s.bookmarks[i+1:]...)
	delete(s.bmExtra, id)

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.bus.Publish(Change{Entity: EntityBookmark, ID: id, Kind: ChangeDeleted})
	s.mu.Unlock()

	if s.layout != nil {
		s.jobs.Add(1)
		go func() {
			defer s.jobs.Done()
			if err := s.layout.RemoveEntry(id); err != nil {
				s.logger.Warn("failed to remove cache entry",
					logger.String("bookmark_id", id),
					logger.Error(err))
			}
		}()
	}
	return nil
}

// ClearCache drops a bookmark's cached artifacts: the entry directory on
// disk and the local path fields on the row. Remote metadata stays.
func (s *Store) ClearCache(id string) error {
	s.mu.Lock()

	i := s.bookmarkIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}

	b := s.bookmarks[i]
	b.CachedContentPath = ""
	b.LocalIconPath = ""
	b.LocalImagePath = ""
	s.bookmarks[i] = b

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.bus.Publish(Change{Entity: EntityBookmark, ID: id, Kind: ChangeUpdated})
	s.mu.Unlock()

	if s.layout != nil {
		if err := s.layout.RemoveEntry(id); err != nil {
			return domain.IOErr(err)
		}
	}
	return nil
}

// GetBookmark returns one bookmark by id.
func (s *Store) GetBookmark(id string) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.bookmarkIndexLocked(id)
	if i < 0 {
		return domain.Bookmark{}, domain.ErrNotFound
	}
	return s.bookmarks[i], nil
}

// BookmarksByCategory returns bookmarks in a category; the reserved id
// "all" returns every bookmark.
func (s *Store) BookmarksByCategory(categoryID string) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Bookmark, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		if categoryID == domain.CategoryAll || b.CategoryID == categoryID {
			out = append(out, b)
		}
	}
	return out
}

// BookmarkIDs returns the ids of every bookmark row.
func (s *Store) BookmarkIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		ids = append(ids, b.ID)
	}
	return ids
}

// RecentBookmarks returns the newest bookmarks, ties broken by id.
func (s *Store) RecentBookmarks() []domain.Bookmark {
	s.mu.Lock()
	out := make([]domain.Bookmark, len(s.bookmarks))
	copy(out, s.bookmarks)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > RecentLimit {
		out = out[:RecentLimit]
	}
	return out
}

// ─────────────────────────────────────────────────────────────────
// Ingestion plumbing
// ─────────────────────────────────────────────────────────────────

// requestIngest starts a background ingestion and applies its result.
// Failures leave the bookmark unfetched; they never surface to the
// caller that created or updated the row.
func (s *Store) requestIngest(id, url string) {
	if s.ingester == nil {
		return
	}

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()

		res, err := s.ingester.Ingest(context.Background(), id, url)
		if err != nil {
			if errors.Is(err, domain.ErrSuperseded) {
				s.logger.Debug("ingestion superseded",
					logger.String("bookmark_id", id))
				return
			}
			s.logger.Warn("bookmark remains unfetched",
				logger.String("bookmark_id", id),
				logger.String("url", url),
				logger.Error(err))
			return
		}
		s.ApplyIngest(id, url, res)
	}()
}

// ApplyIngest records ingestion output on the bookmark. Skipped when the
// bookmark vanished or its URL moved on while the job ran.
func (s *Store) ApplyIngest(id, url string, res domain.IngestResult) {
	s.mu.Lock()

	i := s.bookmarkIndexLocked(id)
	if i < 0 || s.bookmarks[i].URL != url {
		s.mu.Unlock()
		return
	}

	b := s.bookmarks[i]
	b.Title = res.Title
	b.Description = res.Description
	b.Icon = res.IconURL
	b.Image = res.ImageURL
	b.CachedContentPath = res.ContentPath
	b.LocalIconPath = res.IconPath
	b.LocalImagePath = res.ImagePath
	s.bookmarks[i] = b

	if err := s.persistLocked(); err != nil {
		s.logger.Error("failed to persist ingestion result",
			logger.String("bookmark_id", id),
			logger.Error(err))
		s.mu.Unlock()
		return
	}
	s.bus.Publish(Change{Entity: EntityBookmark, ID: id, Kind: ChangeUpdated})
	s.mu.Unlock()
}

// ─────────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────────

func (s *Store) categoryIndexLocked(id string) int {
	for i, c := range s.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) bookmarkIndexLocked(id string) int {
	for i, b := range s.bookmarks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked serializes the whole catalog and writes it atomically.
func (s *Store) persistLocked() error {
	data, err := encodeDocument(s.categories, s.bookmarks, s.catExtra, s.bmExtra, s.docExtra)
	if err != nil {
		return domain.IOErr(err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domain.IOErr(err)
	}
	if err := cache.WriteFileAtomic(s.fs, s.path, data); err != nil {
		return domain.IOErr(err)
	}
	return nil
}
