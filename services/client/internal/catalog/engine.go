package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"librarycatalog/pkg/domain"
	"librarycatalog/pkg/storage"
	"librarycatalog/services/client/internal/apiclient"
	"librarycatalog/services/client/internal/session"
)

// API is the subset of the REST client the catalog uses.
type API interface {
	ListGenres(ctx context.Context, token string) ([]domain.Genre, error)
	ListBooks(ctx context.Context, token string, q domain.CatalogQuery) (apiclient.BooksPage, error)
	GetBook(ctx context.Context, token, id string) (domain.Book, error)
	CreateBook(ctx context.Context, token string, in domain.NewBook, cover *apiclient.CoverFile) (domain.Book, error)
	DeleteBook(ctx context.Context, token, id string) error
}

// TokenSource reports the current bearer token.
type TokenSource interface {
	Token() string
}

// CoverOpener resolves a cover reference to a readable file.
type CoverOpener interface {
	Open(ctx context.Context, ref string) (storage.Cover, error)
}

// Engine holds the catalog query and the page last shown for it. Each query
// mutation issues at most one fetch; only the newest fetch may update the page.
type Engine struct {
	api    API
	tokens TokenSource
	covers CoverOpener
	logger *slog.Logger

	mu       sync.Mutex
	query    domain.CatalogQuery
	page     domain.CatalogPage
	genres   []domain.Genre
	lastErr  string
	gen      uint64
	cancel   context.CancelFunc
	inflight int
}

// NewEngine builds an engine with the initial query (title order, page 1).
// covers may be nil when add-book uploads are not needed.
func NewEngine(api API, tokens TokenSource, covers CoverOpener, pageSize int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	q := domain.NewCatalogQuery(pageSize)
	return &Engine{
		api:    api,
		tokens: tokens,
		covers: covers,
		logger: logger,
		query:  q,
		page:   domain.CatalogPage{Items: []domain.Book{}, Page: 1, TotalPages: 1},
	}
}

// Query returns the current query.
func (e *Engine) Query() domain.CatalogQuery {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Page returns a copy of the page last applied.
func (e *Engine) Page() domain.CatalogPage {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.page
	p.Items = append([]domain.Book(nil), e.page.Items...)
	return p
}

// Genres returns the genres loaded by Open or LoadGenres.
func (e *Engine) Genres() []domain.Genre {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Genre(nil), e.genres...)
}

// LastError is the message of the latest failed fetch or delete.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Busy reports whether a fetch is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight > 0
}

// Reset replaces search, genre, sort and page in one step without fetching.
// The page limit is kept.
func (e *Engine) Reset(q domain.CatalogQuery) {
	if q.Sort != domain.SortCreatedAt {
		q.Sort = domain.SortTitle
	}
	if q.Page < 1 {
		q.Page = 1
	}
	q.Search = strings.TrimSpace(q.Search)
	q.GenreID = strings.TrimSpace(q.GenreID)
	e.mu.Lock()
	q.Limit = e.query.Limit
	e.query = q
	e.mu.Unlock()
}

// SetSearch changes the search text and returns to page 1.
func (e *Engine) SetSearch(ctx context.Context, search string) error {
	return e.mutate(ctx, func(q *domain.CatalogQuery) {
		q.Search = strings.TrimSpace(search)
		q.Page = 1
	})
}

// SetGenre changes the genre filter ("" for all) and returns to page 1.
func (e *Engine) SetGenre(ctx context.Context, genreID string) error {
	return e.mutate(ctx, func(q *domain.CatalogQuery) {
		q.GenreID = strings.TrimSpace(genreID)
		q.Page = 1
	})
}

// SetSort changes the sort key and returns to page 1. Unknown keys fall back
// to title order.
func (e *Engine) SetSort(ctx context.Context, key domain.SortKey) error {
	if key != domain.SortCreatedAt {
		key = domain.SortTitle
	}
	return e.mutate(ctx, func(q *domain.CatalogQuery) {
		q.Sort = key
		q.Page = 1
	})
}

// SetPage moves to page n, clamped to the known page range.
func (e *Engine) SetPage(ctx context.Context, n int) error {
	return e.mutate(ctx, func(q *domain.CatalogQuery) {
		q.Page = n
	})
}

// NextPage advances one page; a no-op on the last page.
func (e *Engine) NextPage(ctx context.Context) error {
	return e.mutate(ctx, func(q *domain.CatalogQuery) {
		q.Page++
	})
}

// PrevPage goes back one page; a no-op on page 1.
func (e *Engine) PrevPage(ctx context.Context) error {
	return e.mutate(ctx, func(q *domain.CatalogQuery) {
		q.Page--
	})
}

func (e *Engine) mutate(ctx context.Context, fn func(q *domain.CatalogQuery)) error {
	e.mu.Lock()
	next := e.query
	fn(&next)
	if next.Page < 1 {
		next.Page = 1
	}
	if last := e.page.LastPage(); next.Page > last {
		next.Page = last
	}
	if next == e.query {
		e.mu.Unlock()
		return nil
	}
	prev := e.query
	e.query = next
	e.mu.Unlock()

	err := e.Fetch(ctx)
	if err != nil && !errors.Is(err, ErrSuperseded) {
		// The previous page is still shown, so the query goes back with it.
		e.mu.Lock()
		if e.query == next {
			e.query = prev
		}
		e.mu.Unlock()
	}
	return err
}

// Refresh re-fetches the current query.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.Fetch(ctx)
}

// Fetch loads the page for the current query. Without a token nothing is
// sent and the previous page stays. A newer fetch cancels this one and its
// response is dropped with ErrSuperseded. Failures keep the previous page and
// record LastError.
func (e *Engine) Fetch(ctx context.Context) error {
	return e.fetch(ctx, true)
}

func (e *Engine) fetch(ctx context.Context, allowClamp bool) error {
	token := e.tokens.Token()
	if token == "" {
		return session.ErrNoSession
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	e.cancel = cancel
	q := e.query
	e.inflight++
	e.mu.Unlock()

	e.logger.Debug("catalog fetch", "generation", gen, "search", q.Search, "genre", q.GenreID, "sort", q.Sort, "page", q.Page)
	res, err := e.api.ListBooks(fetchCtx, token, q)

	e.mu.Lock()
	e.inflight--
	if gen != e.gen {
		e.mu.Unlock()
		e.logger.Debug("catalog response discarded", "generation", gen)
		return ErrSuperseded
	}
	e.cancel = nil
	if err != nil {
		wrapped := wrap(msgFetchFailed, err)
		e.lastErr = wrapped.Message
		e.mu.Unlock()
		e.logger.Warn("catalog fetch failed", "generation", gen, "err", err)
		return wrapped
	}
	page := domain.CatalogPage{Items: res.Items, Page: q.Page, TotalPages: res.TotalPages}
	if last := page.LastPage(); q.Page > last {
		e.query.Page = last
		if allowClamp {
			e.mu.Unlock()
			return e.fetch(ctx, false)
		}
		page.Page = last
	}
	e.page = page
	e.lastErr = ""
	e.mu.Unlock()
	return nil
}

// Delete removes a book and re-fetches the current query on success. The
// book is never removed locally.
func (e *Engine) Delete(ctx context.Context, bookID string) error {
	token := e.tokens.Token()
	if token == "" {
		return session.ErrNoSession
	}
	if err := e.api.DeleteBook(ctx, token, bookID); err != nil {
		wrapped := wrap(msgDeleteFailed, err)
		e.mu.Lock()
		e.lastErr = wrapped.Message
		e.mu.Unlock()
		e.logger.Warn("delete book failed", "book_id", bookID, "err", err)
		return wrapped
	}
	e.logger.Info("book deleted", "book_id", bookID)
	return e.Fetch(ctx)
}

// Open loads genres and the first page together. A genre failure is logged
// and leaves the genre list empty.
func (e *Engine) Open(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		if _, err := e.LoadGenres(ctx); err != nil {
			e.logger.Warn("load genres failed", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		return e.Fetch(ctx)
	})
	return g.Wait()
}

// LoadGenres fetches the genre list and keeps it for Genres.
func (e *Engine) LoadGenres(ctx context.Context) ([]domain.Genre, error) {
	genres, err := e.api.ListGenres(ctx, e.tokens.Token())
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.genres = append([]domain.Genre(nil), genres...)
	e.mu.Unlock()
	return genres, nil
}

// Book fetches one book for the detail view.
func (e *Engine) Book(ctx context.Context, id string) (domain.Book, error) {
	token := e.tokens.Token()
	if token == "" {
		return domain.Book{}, session.ErrNoSession
	}
	book, err := e.api.GetBook(ctx, token, id)
	if err != nil {
		return domain.Book{}, wrap(msgBookFailed, err)
	}
	return book, nil
}

// AddBook creates a book, uploading the cover when CoverRef is set, then
// refreshes the list.
func (e *Engine) AddBook(ctx context.Context, in domain.NewBook) (domain.Book, error) {
	token := e.tokens.Token()
	if token == "" {
		return domain.Book{}, session.ErrNoSession
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Writer) == "" {
		return domain.Book{}, &ValidationError{Message: "title, writer, price and stock are required"}
	}
	if in.Price < 0 || in.StockQuantity < 0 {
		return domain.Book{}, &ValidationError{Message: "price and stock must not be negative"}
	}

	var cover *apiclient.CoverFile
	if ref := strings.TrimSpace(in.CoverRef); ref != "" {
		if e.covers == nil {
			return domain.Book{}, &ValidationError{Message: "cover uploads are not configured"}
		}
		file, err := e.covers.Open(ctx, ref)
		if err != nil {
			return domain.Book{}, &Error{Message: "could not read cover", Err: err}
		}
		defer file.Body.Close()
		cover = &apiclient.CoverFile{Name: file.Name, Body: file.Body}
	}

	book, err := e.api.CreateBook(ctx, token, in, cover)
	if err != nil {
		e.logger.Warn("add book failed", "title", in.Title, "err", err)
		return domain.Book{}, wrap(msgAddFailed, err)
	}
	e.logger.Info("book added", "book_id", book.ID, "title", in.Title)
	if err := e.Fetch(ctx); err != nil {
		e.logger.Debug("refresh after add failed", "err", err)
	}
	return book, nil
}
