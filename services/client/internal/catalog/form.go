package catalog

import (
	"strconv"
	"strings"

	"librarycatalog/pkg/domain"
)

// BookForm is the add-book form as typed by the user.
type BookForm struct {
	Title           string
	Writer          string
	Description     string
	Price           string
	Stock           string
	Publisher       string
	PublicationYear string
	GenreID         string
	Cover           string
}

// Parse validates the form and converts it to a NewBook.
func (f BookForm) Parse() (domain.NewBook, error) {
	title := strings.TrimSpace(f.Title)
	writer := strings.TrimSpace(f.Writer)
	price := strings.TrimSpace(f.Price)
	stock := strings.TrimSpace(f.Stock)
	if title == "" || writer == "" || price == "" || stock == "" {
		return domain.NewBook{}, &ValidationError{Message: "title, writer, price and stock are required"}
	}
	p, err := strconv.ParseFloat(price, 64)
	if err != nil || p < 0 {
		return domain.NewBook{}, &ValidationError{Message: "price must be a non-negative number"}
	}
	n, err := strconv.Atoi(stock)
	if err != nil || n < 0 {
		return domain.NewBook{}, &ValidationError{Message: "stock must be a non-negative whole number"}
	}
	year := 0
	if y := strings.TrimSpace(f.PublicationYear); y != "" {
		if year, err = strconv.Atoi(y); err != nil || year <= 0 {
			return domain.NewBook{}, &ValidationError{Message: "publication year must be a positive number"}
		}
	}
	return domain.NewBook{
		Title:           title,
		Writer:          writer,
		Description:     strings.TrimSpace(f.Description),
		Price:           p,
		StockQuantity:   n,
		Publisher:       strings.TrimSpace(f.Publisher),
		PublicationYear: year,
		GenreID:         strings.TrimSpace(f.GenreID),
		CoverRef:        strings.TrimSpace(f.Cover),
	}, nil
}
