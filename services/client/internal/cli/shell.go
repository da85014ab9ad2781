package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"librarycatalog/pkg/domain"
	"librarycatalog/services/client/internal/catalog"
	"librarycatalog/services/client/internal/gate"
)

const shellHelp = `commands:
  open <path>            go to /books, /books/add, /books/<id>, /transactions, /transactions/<id>
  login | register       authenticate, then return to the page that asked for it
  logout | whoami
  search <text>          filter the book list (empty text clears)
  genre <id|all>         filter by genre
  sort <title|createdAt>
  page <n> | next | prev | refresh
  genres                 list genres
  add                    add a book (prompts for fields)
  delete <id>            delete a book
  borrow <id>            borrow one copy
  help | quit`

func (r *Runner) cmdShell(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usagef("shell takes no arguments")
	}
	fmt.Fprintln(r.errOut, "libcat shell; type help for commands")
	r.navigate(ctx, gate.RootPath)
	for {
		line, err := r.prompt.Ask(r.view + ">")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.errOut)
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		if name == "quit" || name == "exit" {
			return nil
		}
		if err := r.shellCommand(ctx, name, rest); err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
		}
	}
}

func (r *Runner) shellCommand(ctx context.Context, name, rest string) error {
	switch name {
	case "help":
		fmt.Fprintln(r.out, shellHelp)
	case "open":
		r.navigate(ctx, rest)
	case "login":
		if err := r.cmdLogin(ctx, nil); err != nil {
			return err
		}
		r.navigate(ctx, r.app.Gate.AfterLogin())
	case "register":
		if err := r.cmdRegister(ctx, nil); err != nil {
			return err
		}
		r.navigate(ctx, r.app.Gate.AfterLogin())
	case "logout":
		r.app.Session.Logout(ctx)
		fmt.Fprintln(r.out, "logged out")
		r.navigate(ctx, gate.RootPath)
	case "whoami":
		return r.cmdWhoami(ctx, nil)
	case "genres":
		return r.cmdGenres(ctx, nil)
	case "search", "genre", "sort", "page", "next", "prev", "refresh":
		return r.catalogCommand(ctx, name, rest)
	case "add":
		return r.shellAddBook(ctx)
	case "delete":
		if err := r.cmdDeleteBook(ctx, []string{rest}); err != nil {
			return err
		}
		if r.view == gate.BooksPath {
			renderBooks(r.out, r.app.Catalog.Page())
		}
	case "borrow":
		return r.shellBorrow(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	return nil
}

// navigate follows gate decisions from path until a view is allowed.
func (r *Runner) navigate(ctx context.Context, path string) {
	for hops := 0; hops < 4; hops++ {
		d := r.app.Gate.Resolve(path)
		switch d.Outcome {
		case gate.NotFound:
			fmt.Fprintf(r.errOut, "not found: %s\n", d.Path)
			return
		case gate.Redirect:
			if d.From != "" {
				fmt.Fprintf(r.errOut, "%s needs a session; log in to continue\n", d.From)
			}
			path = d.Target
			continue
		}
		r.view = d.Path
		if err := r.show(ctx); err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
		}
		return
	}
}

func (r *Runner) show(ctx context.Context) error {
	switch {
	case r.view == gate.LoginPath:
		fmt.Fprintln(r.out, "type login (or register) to continue")
	case r.view == gate.RegisterPath:
		fmt.Fprintln(r.out, "type register to create an account")
	case r.view == gate.BooksPath:
		if err := r.app.Catalog.Open(ctx); err != nil {
			return err
		}
		renderBooks(r.out, r.app.Catalog.Page())
	case r.view == gate.AddBookPath:
		return r.shellAddBook(ctx)
	case r.view == gate.TransactionsPath:
		return r.cmdTransactions(ctx, nil)
	case strings.HasPrefix(r.view, gate.TransactionsPath+"/"):
		return r.cmdTransaction(ctx, []string{strings.TrimPrefix(r.view, gate.TransactionsPath+"/")})
	case strings.HasPrefix(r.view, gate.BooksPath+"/"):
		return r.cmdBook(ctx, []string{strings.TrimPrefix(r.view, gate.BooksPath+"/")})
	}
	return nil
}

func (r *Runner) catalogCommand(ctx context.Context, name, arg string) error {
	if r.view != gate.BooksPath {
		return errors.New("open /books first")
	}
	engine := r.app.Catalog
	var err error
	switch name {
	case "search":
		err = engine.SetSearch(ctx, arg)
	case "genre":
		if arg == "all" {
			arg = ""
		}
		err = engine.SetGenre(ctx, arg)
	case "sort":
		key := domain.SortKey(arg)
		if key != domain.SortTitle && key != domain.SortCreatedAt {
			return errors.New("sort must be title or createdAt")
		}
		err = engine.SetSort(ctx, key)
	case "page":
		n, convErr := strconv.Atoi(arg)
		if convErr != nil {
			return errors.New("page needs a number")
		}
		err = engine.SetPage(ctx, n)
	case "next":
		err = engine.NextPage(ctx)
	case "prev":
		err = engine.PrevPage(ctx)
	case "refresh":
		err = engine.Refresh(ctx)
	}
	if errors.Is(err, catalog.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return err
	}
	renderBooks(r.out, engine.Page())
	return nil
}

func (r *Runner) shellAddBook(ctx context.Context) error {
	if err := r.enter(gate.AddBookPath); err != nil {
		return err
	}
	if genres := r.app.Catalog.Genres(); len(genres) > 0 {
		renderGenres(r.out, genres)
	} else if genres, err := r.app.Catalog.LoadGenres(ctx); err == nil {
		renderGenres(r.out, genres)
	}
	var form catalog.BookForm
	fields := []struct {
		label string
		dst   *string
	}{
		{"Title:", &form.Title},
		{"Writer:", &form.Writer},
		{"Price:", &form.Price},
		{"Stock:", &form.Stock},
		{"Description:", &form.Description},
		{"Publisher:", &form.Publisher},
		{"Publication year:", &form.PublicationYear},
		{"Genre id:", &form.GenreID},
		{"Cover (path or s3://bucket/key):", &form.Cover},
	}
	for _, f := range fields {
		answer, err := r.prompt.Ask(f.label)
		if err != nil {
			return err
		}
		*f.dst = answer
	}
	return r.addBook(ctx, form)
}

// shellBorrow borrows from the displayed page when the book is on it, so the
// stock check uses what the user sees.
func (r *Runner) shellBorrow(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("borrow needs a book id")
	}
	if r.view == gate.BooksPath {
		for _, b := range r.app.Catalog.Page().Items {
			if b.ID == id {
				if err := r.borrow(ctx, b); err != nil {
					return err
				}
				renderBooks(r.out, r.app.Catalog.Page())
				return nil
			}
		}
	}
	return r.cmdBorrow(ctx, []string{id})
}
