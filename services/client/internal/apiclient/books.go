package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"librarycatalog/pkg/domain"
)

// BooksPage is one page of GET /books.
type BooksPage struct {
	Items      []domain.Book
	TotalPages int
}

// ListGenres returns all genres. The primary path falls back to the alternate
// path when the server answers 404.
func (c *Client) ListGenres(ctx context.Context, token string) ([]domain.Genre, error) {
	genres, err := c.listGenres(ctx, c.genresPath, token)
	if IsStatus(err, http.StatusNotFound) && c.genresFallback != c.genresPath {
		return c.listGenres(ctx, c.genresFallback, token)
	}
	return genres, err
}

func (c *Client) listGenres(ctx context.Context, path, token string) ([]domain.Genre, error) {
	var resp envelope[[]domain.Genre]
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, nil, &resp); err != nil {
		return nil, err
	}
	if err := checkSuccess(resp, http.StatusOK, false); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []domain.Genre{}, nil
	}
	return resp.Data, nil
}

// ListBooks fetches one catalog page. Missing items default to empty and a
// missing or non-positive totalPages to 1.
func (c *Client) ListBooks(ctx context.Context, token string, q domain.CatalogQuery) (BooksPage, error) {
	var resp envelope[[]domain.Book]
	if err := c.doJSON(ctx, http.MethodGet, "/books", token, catalogParams(q), nil, &resp); err != nil {
		return BooksPage{}, err
	}
	if err := checkSuccess(resp, http.StatusOK, false); err != nil {
		return BooksPage{}, err
	}
	page := BooksPage{Items: resp.Data, TotalPages: 1}
	if page.Items == nil {
		page.Items = []domain.Book{}
	}
	if resp.Pagination != nil && resp.Pagination.TotalPages > 0 {
		page.TotalPages = resp.Pagination.TotalPages
	}
	return page, nil
}

func catalogParams(q domain.CatalogQuery) url.Values {
	params := url.Values{}
	params.Set("search", q.Search)
	params.Set("genre_id", q.GenreID)
	params.Set("sort", string(q.Sort))
	params.Set("order", string(q.Order()))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Limit))
	return params
}

// GetBook fetches a single book.
func (c *Client) GetBook(ctx context.Context, token, id string) (domain.Book, error) {
	var resp envelope[domain.Book]
	if err := c.doJSON(ctx, http.MethodGet, "/books/"+url.PathEscape(id), token, nil, nil, &resp); err != nil {
		return domain.Book{}, err
	}
	if err := checkSuccess(resp, http.StatusOK, false); err != nil {
		return domain.Book{}, err
	}
	return resp.Data, nil
}

// CoverFile is an optional cover image attached to CreateBook.
type CoverFile struct {
	Name string
	Body io.Reader
}

// CreateBook uploads a new book as multipart form data.
func (c *Client) CreateBook(ctx context.Context, token string, in domain.NewBook, cover *CoverFile) (domain.Book, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := [][2]string{
		{"title", in.Title},
		{"writer", in.Writer},
		{"description", in.Description},
		{"price", strconv.FormatFloat(in.Price, 'f', -1, 64)},
		{"stockQuantity", strconv.Itoa(in.StockQuantity)},
		{"publisher", in.Publisher},
		{"publicationYear", formatYear(in.PublicationYear)},
	}
	if strings.TrimSpace(in.GenreID) != "" {
		fields = append(fields, [2]string{"genre_id", in.GenreID})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return domain.Book{}, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if cover != nil && cover.Body != nil {
		part, err := writer.CreateFormFile("cover", cover.Name)
		if err != nil {
			return domain.Book{}, err
		}
		if _, err := io.Copy(part, cover.Body); err != nil {
			return domain.Book{}, fmt.Errorf("copy cover: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return domain.Book{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/books", nil, body)
	if err != nil {
		return domain.Book{}, err
	}
	addAuthHeader(req, token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp envelope[domain.Book]
	if err := c.do(req, &resp); err != nil {
		return domain.Book{}, err
	}
	if err := checkSuccess(resp, http.StatusOK, false); err != nil {
		return domain.Book{}, err
	}
	return resp.Data, nil
}

func formatYear(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}

// DeleteBook removes a book.
func (c *Client) DeleteBook(ctx context.Context, token, id string) error {
	var resp ack
	if err := c.doJSON(ctx, http.MethodDelete, "/books/"+url.PathEscape(id), token, nil, nil, &resp); err != nil {
		return err
	}
	return checkSuccess(resp, http.StatusOK, false)
}
