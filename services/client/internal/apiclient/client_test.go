package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"librarycatalog/pkg/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, Options{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginReturnsToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("login must not send a bearer token")
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Fatalf("expected request id header")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "a@b.com" || body["password"] != "secret1" {
			t.Fatalf("unexpected body %v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"token": "T"}})
	}))

	token, err := client.Login(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token != "T" {
		t.Fatalf("token = %q, want T", token)
	}
}

func TestLoginFailureCarriesServerMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "wrong password"})
	}))

	_, err := client.Login(context.Background(), "a@b.com", "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "wrong password" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if ServerMessage(err) != "wrong password" {
		t.Fatalf("server message = %q", ServerMessage(err))
	}
}

func TestLoginSuccessFalseIsAnError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "account locked"})
	}))
	if _, err := client.Login(context.Background(), "a@b.com", "x"); ServerMessage(err) != "account locked" {
		t.Fatalf("expected account locked, got %v", err)
	}
}

func TestLoginWithoutTokenIsAnError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{}})
	}))
	if _, err := client.Login(context.Background(), "a@b.com", "x"); err == nil {
		t.Fatalf("expected error when no token is returned")
	}
}

func TestRegisterReturnsUserID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Username != "ana" {
			t.Fatalf("unexpected username %q", body.Username)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]string{"userId": "u1"}})
	}))
	id, err := client.Register(context.Background(), RegisterRequest{Username: "ana", Email: "a@b.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != "u1" {
		t.Fatalf("user id = %q", id)
	}
}

func TestListBooksEncodesQueryAndDefaults(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer T" {
			t.Fatalf("authorization = %q", got)
		}
		q := r.URL.Query()
		want := map[string]string{"search": "go", "genre_id": "g1", "sort": "createdAt", "order": "desc", "page": "3", "limit": "12"}
		for k, v := range want {
			if q.Get(k) != v {
				t.Fatalf("param %s = %q, want %q", k, q.Get(k), v)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	}))

	q := domain.CatalogQuery{Search: "go", GenreID: "g1", Sort: domain.SortCreatedAt, Page: 3, Limit: 12}
	page, err := client.ListBooks(context.Background(), "T", q)
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", page.Items)
	}
	if page.TotalPages != 1 {
		t.Fatalf("total pages = %d, want default 1", page.TotalPages)
	}
}

func TestListBooksParsesPage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"id": "b1", "title": "Dune", "writer": "Herbert", "price": 12.5, "stockQuantity": 2, "genre": map[string]string{"id": "g1", "name": "SF"}},
			},
			"pagination": map[string]int{"totalPages": 4},
		})
	}))
	page, err := client.ListBooks(context.Background(), "T", domain.NewCatalogQuery(0))
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "Dune" || page.Items[0].GenreName() != "SF" {
		t.Fatalf("unexpected items %#v", page.Items)
	}
	if page.TotalPages != 4 {
		t.Fatalf("total pages = %d", page.TotalPages)
	}
}

func TestListGenresFallsBackOn404(t *testing.T) {
	var paths []string
	mux := http.NewServeMux()
	mux.HandleFunc("/genres", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
	})
	mux.HandleFunc("/genre", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"data": []domain.Genre{{ID: "g1", Name: "Fiction"}}})
	})
	client := newTestClient(t, mux)

	genres, err := client.ListGenres(context.Background(), "")
	if err != nil {
		t.Fatalf("list genres: %v", err)
	}
	if len(genres) != 1 || genres[0].Name != "Fiction" {
		t.Fatalf("unexpected genres %#v", genres)
	}
	if strings.Join(paths, ",") != "/genres,/genre" {
		t.Fatalf("unexpected path sequence %v", paths)
	}
}

func TestListGenresDoesNotFallBackOnOtherErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "boom"})
	}))
	_, err := client.ListGenres(context.Background(), "T")
	if ServerMessage(err) != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestCreateBookSendsMultipart(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		checks := map[string]string{"title": "Dune", "writer": "Herbert", "price": "12.5", "stockQuantity": "3", "publicationYear": "1965", "genre_id": "g1"}
		for k, v := range checks {
			if got := r.FormValue(k); got != v {
				t.Fatalf("field %s = %q, want %q", k, got, v)
			}
		}
		file, header, err := r.FormFile("cover")
		if err != nil {
			t.Fatalf("cover: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "dune.jpg" || string(data) != "jpeg" {
			t.Fatalf("unexpected cover %s %q", header.Filename, data)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"id": "b9", "title": "Dune"}})
	}))

	in := domain.NewBook{Title: "Dune", Writer: "Herbert", Price: 12.5, StockQuantity: 3, PublicationYear: 1965, GenreID: "g1"}
	book, err := client.CreateBook(context.Background(), "T", in, &CoverFile{Name: "dune.jpg", Body: strings.NewReader("jpeg")})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if book.ID != "b9" {
		t.Fatalf("book id = %q", book.ID)
	}
}

func TestDeleteBook(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/books/b1" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "deleted"})
	}))
	if err := client.DeleteBook(context.Background(), "T", "b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestCreateTransactionRequiresSuccessFlag(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Items []LoanItem `json:"items"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Items) != 1 || body.Items[0].BookID != "b1" || body.Items[0].Quantity != 1 {
			t.Fatalf("unexpected items %#v", body.Items)
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "queued"})
	}))
	_, err := client.CreateTransaction(context.Background(), "T", []LoanItem{{BookID: "b1", Quantity: 1}})
	if ServerMessage(err) != "queued" {
		t.Fatalf("expected failure carrying message, got %v", err)
	}
}

func TestWriteCallsIgnoreDataShape(t *testing.T) {
	bodies := map[string]string{
		"array":  `{"success":true,"message":"created","data":[{"id":"tx1"}]}`,
		"string": `{"success":true,"message":"created","data":"tx1"}`,
		"null":   `{"success":true,"message":"created","data":null}`,
		"object": `{"success":true,"message":"created","data":{"id":"tx1"}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if r.Method == http.MethodPost {
					w.WriteHeader(http.StatusCreated)
				}
				_, _ = io.WriteString(w, body)
			}))
			msg, err := client.CreateTransaction(context.Background(), "T", []LoanItem{{BookID: "b1", Quantity: 1}})
			if err != nil || msg != "created" {
				t.Fatalf("create transaction = %q, %v", msg, err)
			}
			if err := client.DeleteBook(context.Background(), "T", "b1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
		})
	}
}

func TestGetTransaction(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id": "t1",
			"items": []map[string]any{
				{"id": "i1", "quantity": 2, "book": map[string]any{"id": "b1", "title": "Dune", "price": 10}},
				{"id": "i2", "quantity": 1, "book": map[string]any{"id": "b2", "title": "Emma", "price": 4.5}},
			},
		}})
	}))
	tx, err := client.GetTransaction(context.Background(), "T", "t1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if tx.Total() != 24.5 || tx.Quantity() != 3 {
		t.Fatalf("total = %v quantity = %d", tx.Total(), tx.Quantity())
	}
}

func TestTransportErrorOnUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, Options{})
	_, err := client.ListTransactions(context.Background(), "T")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
}

func TestCancelledContextIsTransportError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetBook(ctx, "T", "b1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
