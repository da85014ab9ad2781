package domain

import "testing"

func TestTransactionTotalIsDerived(t *testing.T) {
	tx := Transaction{Items: []TransactionItem{{Quantity: 2, Book: TransactionBook{Price: 50000}}}}
	if got := tx.Total(); got != 100000 {
		t.Fatalf("total = %v, want 100000", got)
	}
	tx.Items = append(tx.Items, TransactionItem{Quantity: 1, Book: TransactionBook{Price: 1500}})
	if got := tx.Total(); got != 101500 {
		t.Fatalf("total after append = %v, want 101500", got)
	}
	if tx.Quantity() != 3 {
		t.Fatalf("quantity = %d, want 3", tx.Quantity())
	}
	if (Transaction{}).Total() != 0 {
		t.Fatalf("empty transaction total should be 0")
	}
}

func TestCatalogQueryDefaults(t *testing.T) {
	q := NewCatalogQuery(0)
	if q.Page != 1 || q.Limit != DefaultPageSize || q.Sort != SortTitle {
		t.Fatalf("unexpected initial query: %+v", q)
	}
	if q.Order() != OrderAsc {
		t.Fatalf("title sort should be ascending")
	}
	q.Sort = SortCreatedAt
	if q.Order() != OrderDesc {
		t.Fatalf("createdAt sort should be descending")
	}
}

func TestLastPageNeverBelowOne(t *testing.T) {
	if (CatalogPage{}).LastPage() != 1 {
		t.Fatalf("zero total pages should report 1")
	}
	if (CatalogPage{TotalPages: 4}).LastPage() != 4 {
		t.Fatalf("expected 4")
	}
}

func TestBookHelpers(t *testing.T) {
	b := Book{}
	if b.InStock() {
		t.Fatalf("zero stock is not in stock")
	}
	if b.GenreName() != "unknown" {
		t.Fatalf("genre placeholder = %q", b.GenreName())
	}
	b.Genre = &Genre{Name: "Sci-Fi"}
	b.StockQuantity = 1
	if !b.InStock() || b.GenreName() != "Sci-Fi" {
		t.Fatalf("unexpected helpers: %v %q", b.InStock(), b.GenreName())
	}
}
