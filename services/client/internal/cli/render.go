package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"librarycatalog/pkg/domain"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderGenres(w io.Writer, genres []domain.Genre) {
	if len(genres) == 0 {
		fmt.Fprintln(w, "no genres")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, g := range genres {
		fmt.Fprintf(tw, "%s\t%s\n", g.ID, g.Name)
	}
	tw.Flush()
}

func renderBooks(w io.Writer, page domain.CatalogPage) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "no books found")
	} else {
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tTITLE\tWRITER\tGENRE\tPRICE\tSTOCK")
		for _, b := range page.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%d\n", b.ID, b.Title, b.Writer, b.GenreName(), b.Price, b.StockQuantity)
		}
		tw.Flush()
	}
	fmt.Fprintf(w, "page %d of %d\n", page.Page, page.LastPage())
}

func renderBook(w io.Writer, b domain.Book) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Title:\t%s\n", b.Title)
	fmt.Fprintf(tw, "Writer:\t%s\n", b.Writer)
	fmt.Fprintf(tw, "Genre:\t%s\n", b.GenreName())
	if b.Publisher != "" {
		fmt.Fprintf(tw, "Publisher:\t%s\n", b.Publisher)
	}
	if b.PublicationYear > 0 {
		fmt.Fprintf(tw, "Year:\t%d\n", b.PublicationYear)
	}
	fmt.Fprintf(tw, "Price:\t%.2f\n", b.Price)
	fmt.Fprintf(tw, "Stock:\t%d\n", b.StockQuantity)
	if b.CoverURL != "" {
		fmt.Fprintf(tw, "Cover:\t%s\n", b.CoverURL)
	}
	tw.Flush()
	if b.Description != "" {
		fmt.Fprintf(w, "\n%s\n", b.Description)
	}
}

func renderTransactions(w io.Writer, txs []domain.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "no transactions")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tITEMS\tTOTAL")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n", tx.ID, formatDate(tx), tx.Quantity(), tx.Total())
	}
	tw.Flush()
}

func renderTransaction(w io.Writer, tx domain.Transaction) {
	fmt.Fprintf(w, "Transaction %s  %s\n", tx.ID, formatDate(tx))
	if tx.User.Email != "" {
		fmt.Fprintf(w, "Borrower: %s\n", tx.User.Email)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "BOOK\tGENRE\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range tx.Items {
		genre := "unknown"
		if it.Book.Genre != nil && it.Book.Genre.Name != "" {
			genre = it.Book.Genre.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n", it.Book.Title, genre, it.Quantity, it.Book.Price, it.Subtotal())
	}
	tw.Flush()
	fmt.Fprintf(w, "Total: %.2f\n", tx.Total())
}

func formatDate(tx domain.Transaction) string {
	if tx.CreatedAt.IsZero() {
		return "-"
	}
	return tx.CreatedAt.Local().Format("2006-01-02 15:04")
}
