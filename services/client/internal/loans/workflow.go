package loans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"librarycatalog/pkg/domain"
	"librarycatalog/services/client/internal/apiclient"
	"librarycatalog/services/client/internal/session"
)

var (
	// ErrOutOfStock means the book shows no copies; nothing is sent.
	ErrOutOfStock = errors.New("book is out of stock")
	// ErrCancelled means the user declined the confirmation.
	ErrCancelled = errors.New("loan cancelled")
)

const msgLoanFailed = "loan failed"

// API is the subset of the REST client used for loans.
type API interface {
	CreateTransaction(ctx context.Context, token string, items []apiclient.LoanItem) (string, error)
	ListTransactions(ctx context.Context, token string) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, token, id string) (domain.Transaction, error)
}

// TokenSource reports the current bearer token.
type TokenSource interface {
	Token() string
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Refresher reloads whatever shows stock after a loan.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Error is a rejected or failed loan call with the message shown to the user.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Workflow creates loans and reads loan history. Stock belongs to the server:
// after a loan the catalog is re-fetched, never adjusted locally.
type Workflow struct {
	api       API
	tokens    TokenSource
	confirm   Confirmer
	refresher Refresher
	logger    *slog.Logger
}

// NewWorkflow builds a workflow. refresher may be nil.
func NewWorkflow(api API, tokens TokenSource, confirm Confirmer, refresher Refresher, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{api: api, tokens: tokens, confirm: confirm, refresher: refresher, logger: logger}
}

// CreateLoan borrows one copy of book after confirmation. It returns the
// server's confirmation message.
func (w *Workflow) CreateLoan(ctx context.Context, book domain.Book) (string, error) {
	token := w.tokens.Token()
	if token == "" {
		return "", session.ErrNoSession
	}
	if book.StockQuantity <= 0 {
		return "", ErrOutOfStock
	}
	if w.confirm != nil {
		ok, err := w.confirm.Confirm(ctx, fmt.Sprintf("Borrow %q?", book.Title))
		if err != nil {
			return "", fmt.Errorf("confirm loan: %w", err)
		}
		if !ok {
			return "", ErrCancelled
		}
	}

	msg, err := w.api.CreateTransaction(ctx, token, []apiclient.LoanItem{{BookID: book.ID, Quantity: 1}})
	if err != nil {
		text := apiclient.ServerMessage(err)
		if text == "" {
			text = msgLoanFailed
		}
		w.logger.Warn("loan failed", "book_id", book.ID, "message", text, "err", err)
		return "", &Error{Message: text, Err: err}
	}
	w.logger.Info("loan created", "book_id", book.ID)
	if w.refresher != nil {
		if err := w.refresher.Refresh(ctx); err != nil {
			w.logger.Warn("refresh after loan failed", "err", err)
		}
	}
	return msg, nil
}

// ListTransactions returns the loan history.
func (w *Workflow) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	token := w.tokens.Token()
	if token == "" {
		return nil, session.ErrNoSession
	}
	txs, err := w.api.ListTransactions(ctx, token)
	if err != nil {
		return nil, wrap("could not load transactions", err)
	}
	return txs, nil
}

// GetTransaction returns one transaction.
func (w *Workflow) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	token := w.tokens.Token()
	if token == "" {
		return domain.Transaction{}, session.ErrNoSession
	}
	tx, err := w.api.GetTransaction(ctx, token, id)
	if err != nil {
		return domain.Transaction{}, wrap("could not load transaction", err)
	}
	return tx, nil
}

func wrap(fallback string, err error) error {
	msg := apiclient.ServerMessage(err)
	if msg == "" {
		msg = fallback
	}
	return &Error{Message: msg, Err: err}
}
