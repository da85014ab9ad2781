package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"librarycatalog/pkg/domain"
)

// LoanItem is one line of a transaction request.
type LoanItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// CreateTransaction records a loan. Success requires an explicit success=true;
// the returned message is the server's confirmation text.
func (c *Client) CreateTransaction(ctx context.Context, token string, items []LoanItem) (string, error) {
	payload := map[string]any{"items": items}
	var resp ack
	if err := c.doJSON(ctx, http.MethodPost, "/transactions", token, nil, payload, &resp); err != nil {
		return "", err
	}
	if err := checkSuccess(resp, http.StatusOK, true); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ListTransactions returns the caller's loan history.
func (c *Client) ListTransactions(ctx context.Context, token string) ([]domain.Transaction, error) {
	var resp envelope[[]domain.Transaction]
	if err := c.doJSON(ctx, http.MethodGet, "/transactions", token, nil, nil, &resp); err != nil {
		return nil, err
	}
	if err := checkSuccess(resp, http.StatusOK, false); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []domain.Transaction{}, nil
	}
	return resp.Data, nil
}

// GetTransaction returns one transaction with its items.
func (c *Client) GetTransaction(ctx context.Context, token, id string) (domain.Transaction, error) {
	var resp envelope[domain.Transaction]
	if err := c.doJSON(ctx, http.MethodGet, "/transactions/"+url.PathEscape(id), token, nil, nil, &resp); err != nil {
		return domain.Transaction{}, err
	}
	if err := checkSuccess(resp, http.StatusOK, false); err != nil {
		return domain.Transaction{}, err
	}
	return resp.Data, nil
}
