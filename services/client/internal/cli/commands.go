package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"librarycatalog/pkg/domain"
	"librarycatalog/services/client/internal/catalog"
	"librarycatalog/services/client/internal/gate"
	"librarycatalog/services/client/internal/loans"
	"librarycatalog/services/client/internal/session"
)

func (r *Runner) cmdLogin(ctx context.Context, args []string) error {
	fs := r.flagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := r.parse(fs, args); err != nil {
		return err
	}
	if d := r.app.Gate.Resolve(gate.LoginPath); d.Outcome == gate.Redirect {
		sess, _ := r.app.Session.Current()
		fmt.Fprintf(r.out, "already logged in as %s\n", sess.User.Email)
		return nil
	}
	if err := r.askIfEmpty(email, "Email:"); err != nil {
		return err
	}
	if err := r.askIfEmpty(password, "Password:"); err != nil {
		return err
	}
	if err := r.app.Session.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "logged in as %s\n", strings.TrimSpace(*email))
	return nil
}

func (r *Runner) cmdRegister(ctx context.Context, args []string) error {
	fs := r.flagSet("register")
	username := fs.String("username", "", "display name (default user)")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password, at least 6 characters")
	confirm := fs.String("confirm", "", "password again")
	if err := r.parse(fs, args); err != nil {
		return err
	}
	if d := r.app.Gate.Resolve(gate.RegisterPath); d.Outcome == gate.Redirect {
		return errors.New("already logged in; run `libcat logout` first")
	}
	if err := r.askIfEmpty(email, "Email:"); err != nil {
		return err
	}
	if err := r.askIfEmpty(password, "Password:"); err != nil {
		return err
	}
	if err := r.askIfEmpty(confirm, "Confirm password:"); err != nil {
		return err
	}
	if err := session.ValidateRegistration(*email, *password, *confirm); err != nil {
		return err
	}
	if err := r.app.Session.Register(ctx, *username, *email, *password); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "registered and logged in as %s\n", strings.TrimSpace(*email))
	return nil
}

func (r *Runner) cmdLogout(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usagef("logout takes no arguments")
	}
	r.app.Session.Logout(ctx)
	fmt.Fprintln(r.out, "logged out")
	return nil
}

func (r *Runner) cmdWhoami(_ context.Context, _ []string) error {
	sess, ok := r.app.Session.Current()
	if !ok {
		fmt.Fprintln(r.out, "not logged in")
		return nil
	}
	if sess.User.Username != "" {
		fmt.Fprintf(r.out, "%s (%s)\n", sess.User.Email, sess.User.Username)
		return nil
	}
	fmt.Fprintln(r.out, sess.User.Email)
	return nil
}

func (r *Runner) cmdGenres(ctx context.Context, _ []string) error {
	genres, err := r.app.Catalog.LoadGenres(ctx)
	if err != nil {
		return fmt.Errorf("could not load genres: %w", err)
	}
	renderGenres(r.out, genres)
	return nil
}

func (r *Runner) cmdBooks(ctx context.Context, args []string) error {
	fs := r.flagSet("books")
	search := fs.String("search", "", "title or writer text")
	genre := fs.String("genre", "", "genre id")
	sortKey := fs.String("sort", string(domain.SortTitle), "title or createdAt")
	page := fs.Int("page", 1, "page number")
	if err := r.parse(fs, args); err != nil {
		return err
	}
	key := domain.SortKey(*sortKey)
	if key != domain.SortTitle && key != domain.SortCreatedAt {
		return usagef("books: -sort must be title or createdAt")
	}
	if err := r.enter(gate.BooksPath); err != nil {
		return err
	}
	r.app.Catalog.Reset(domain.CatalogQuery{Search: *search, GenreID: *genre, Sort: key, Page: *page})
	if err := r.app.Catalog.Fetch(ctx); err != nil {
		return err
	}
	renderBooks(r.out, r.app.Catalog.Page())
	return nil
}

func (r *Runner) cmdBook(ctx context.Context, args []string) error {
	id, err := oneArg("book", args)
	if err != nil {
		return err
	}
	if err := r.enter(gate.BooksPath + "/" + id); err != nil {
		return err
	}
	book, err := r.app.Catalog.Book(ctx, id)
	if err != nil {
		return err
	}
	renderBook(r.out, book)
	return nil
}

func (r *Runner) cmdAddBook(ctx context.Context, args []string) error {
	fs := r.flagSet("add-book")
	var form catalog.BookForm
	fs.StringVar(&form.Title, "title", "", "title")
	fs.StringVar(&form.Writer, "writer", "", "writer")
	fs.StringVar(&form.Price, "price", "", "price")
	fs.StringVar(&form.Stock, "stock", "", "copies in stock")
	fs.StringVar(&form.Description, "description", "", "description")
	fs.StringVar(&form.Publisher, "publisher", "", "publisher")
	fs.StringVar(&form.PublicationYear, "year", "", "publication year")
	fs.StringVar(&form.GenreID, "genre", "", "genre id")
	fs.StringVar(&form.Cover, "cover", "", "cover image path or s3://bucket/key")
	if err := r.parse(fs, args); err != nil {
		return err
	}
	if err := r.enter(gate.AddBookPath); err != nil {
		return err
	}
	return r.addBook(ctx, form)
}

func (r *Runner) addBook(ctx context.Context, form catalog.BookForm) error {
	in, err := form.Parse()
	if err != nil {
		return err
	}
	book, err := r.app.Catalog.AddBook(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "added %q (%s)\n", in.Title, book.ID)
	return nil
}

func (r *Runner) cmdDeleteBook(ctx context.Context, args []string) error {
	id, err := oneArg("delete-book", args)
	if err != nil {
		return err
	}
	if err := r.enter(gate.BooksPath); err != nil {
		return err
	}
	ok, err := r.prompt.Confirm(ctx, fmt.Sprintf("Delete book %s?", id))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(r.out, "cancelled")
		return nil
	}
	if err := r.app.Catalog.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "deleted %s\n", id)
	return nil
}

func (r *Runner) cmdBorrow(ctx context.Context, args []string) error {
	id, err := oneArg("borrow", args)
	if err != nil {
		return err
	}
	if err := r.enter(gate.BooksPath + "/" + id); err != nil {
		return err
	}
	book, err := r.app.Catalog.Book(ctx, id)
	if err != nil {
		return err
	}
	return r.borrow(ctx, book)
}

func (r *Runner) borrow(ctx context.Context, book domain.Book) error {
	msg, err := r.app.Loans.CreateLoan(ctx, book)
	switch {
	case errors.Is(err, loans.ErrCancelled):
		fmt.Fprintln(r.out, "cancelled")
		return nil
	case err != nil:
		return err
	}
	if msg == "" {
		msg = "loan created"
	}
	fmt.Fprintf(r.out, "%s; see `libcat transactions`\n", msg)
	return nil
}

func (r *Runner) cmdTransactions(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usagef("transactions takes no arguments")
	}
	if err := r.enter(gate.TransactionsPath); err != nil {
		return err
	}
	txs, err := r.app.Loans.ListTransactions(ctx)
	if err != nil {
		return err
	}
	renderTransactions(r.out, txs)
	return nil
}

func (r *Runner) cmdTransaction(ctx context.Context, args []string) error {
	id, err := oneArg("transaction", args)
	if err != nil {
		return err
	}
	if err := r.enter(gate.TransactionsPath + "/" + id); err != nil {
		return err
	}
	tx, err := r.app.Loans.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	renderTransaction(r.out, tx)
	return nil
}
