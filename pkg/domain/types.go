package domain

import "time"

// SortKey selects the catalog ordering axis.
type SortKey string

const (
	SortTitle     SortKey = "title"
	SortCreatedAt SortKey = "createdAt"
)

// Order is the direction sent alongside a sort key.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// DefaultPageSize is the number of books requested per catalog page.
const DefaultPageSize = 12

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Session is the authenticated identity held by the running client.
// A zero Token means there is no session.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Writer          string    `json:"writer"`
	Description     string    `json:"description,omitempty"`
	Price           float64   `json:"price"`
	StockQuantity   int       `json:"stockQuantity"`
	Genre           *Genre    `json:"genre"`
	CoverURL        string    `json:"coverUrl,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	PublicationYear int       `json:"publicationYear,omitempty"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
}

// InStock reports whether at least one copy can be borrowed.
func (b Book) InStock() bool {
	return b.StockQuantity > 0
}

// GenreName returns the genre label or a placeholder when unset.
func (b Book) GenreName() string {
	if b.Genre == nil || b.Genre.Name == "" {
		return "unknown"
	}
	return b.Genre.Name
}

// NewBook carries the add-book form fields.
type NewBook struct {
	Title           string
	Writer          string
	Description     string
	Price           float64
	StockQuantity   int
	Publisher       string
	PublicationYear int
	GenreID         string
	CoverRef        string
}

// CatalogQuery describes one desired book listing.
type CatalogQuery struct {
	Search  string
	GenreID string
	Sort    SortKey
	Page    int
	Limit   int
}

// NewCatalogQuery returns the initial query shown when the catalog opens.
func NewCatalogQuery(limit int) CatalogQuery {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return CatalogQuery{Sort: SortTitle, Page: 1, Limit: limit}
}

// Order derives the sort direction from the sort key.
func (q CatalogQuery) Order() Order {
	if q.Sort == SortCreatedAt {
		return OrderDesc
	}
	return OrderAsc
}

// CatalogPage is one page of the catalog as returned by the server.
type CatalogPage struct {
	Items      []Book
	Page       int
	TotalPages int
}

// LastPage is the highest valid page number, never below 1.
func (p CatalogPage) LastPage() int {
	if p.TotalPages < 1 {
		return 1
	}
	return p.TotalPages
}

type TransactionBook struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Genre *Genre  `json:"genre"`
}

type TransactionItem struct {
	ID       string          `json:"id"`
	Quantity int             `json:"quantity"`
	Book     TransactionBook `json:"book"`
}

// Subtotal is price times quantity for this line.
func (i TransactionItem) Subtotal() float64 {
	return i.Book.Price * float64(i.Quantity)
}

type Transaction struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	User      User              `json:"user"`
	Items     []TransactionItem `json:"items"`
}

// Total is derived from the items on every call and never stored.
func (t Transaction) Total() float64 {
	var sum float64
	for _, it := range t.Items {
		sum += it.Subtotal()
	}
	return sum
}

// Quantity is the number of copies across all items.
func (t Transaction) Quantity() int {
	n := 0
	for _, it := range t.Items {
		n += it.Quantity
	}
	return n
}
