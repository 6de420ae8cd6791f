package api

import (
	"context"
	"net/http"

	"wedding-planner/internal/models"
)

// CreateWedding asks the server for a new wedding with a fresh code
func (c *Client) CreateWedding(ctx context.Context) (models.Wedding, error) {
	return c.wedding(ctx, http.MethodPost, "/weddings/create", nil)
}

// OpenWedding fails with NotFound when the code is unknown or expired
func (c *Client) OpenWedding(ctx context.Context, code string) (models.Wedding, error) {
	return c.wedding(ctx, http.MethodPost, "/weddings/open", models.CodeRequest{Code: code})
}

func (c *Client) RenewWedding(ctx context.Context, code string) (models.Wedding, error) {
	return c.wedding(ctx, http.MethodPost, "/weddings/renew", models.CodeRequest{Code: code})
}

func (c *Client) DeleteWedding(ctx context.Context, code string) error {
	_, err := c.do(ctx, http.MethodDelete, "/weddings", "", models.CodeRequest{Code: code})
	return err
}

// ShareWedding has the server send code to phone over WhatsApp
func (c *Client) ShareWedding(ctx context.Context, code, phone string) error {
	_, err := c.do(ctx, http.MethodPost, "/weddings/share", "", models.ShareRequest{Code: code, Phone: phone})
	return err
}

func (c *Client) wedding(ctx context.Context, method, path string, body any) (models.Wedding, error) {
	var w models.Wedding
	raw, err := c.do(ctx, method, path, "", body)
	if err != nil {
		return w, err
	}
	err = decode(raw, &w)
	return w, err
}
