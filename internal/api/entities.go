package api

import (
	"context"
	"net/http"

	"wedding-planner/internal/models"
)

func (c *Client) ListCities(ctx context.Context) ([]models.City, error) {
	var out []models.City
	err := c.fetch(ctx, PathCities, &out)
	return out, err
}

func (c *Client) CreateCity(ctx context.Context, name string) (models.City, error) {
	var out models.City
	err := c.write(ctx, http.MethodPost, PathCities, models.CityRequest{Name: name}, &out)
	return out, err
}

func (c *Client) UpdateCity(ctx context.Context, id int64, name string) (models.City, error) {
	var out models.City
	err := c.write(ctx, http.MethodPatch, PathCities, models.CityRequest{ID: id, Name: name}, &out)
	return out, err
}

func (c *Client) DeleteCity(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, PathCities, models.CityRequest{ID: id}, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := c.fetch(ctx, PathCategories, &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, name string, typ models.ColumnType) (models.Category, error) {
	var out models.Category
	err := c.write(ctx, http.MethodPost, PathCategories, models.CategoryRequest{Name: name, Type: typ}, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, name string, typ models.ColumnType) (models.Category, error) {
	var out models.Category
	err := c.write(ctx, http.MethodPatch, PathCategories, models.CategoryRequest{ID: id, Name: name, Type: typ}, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, PathCategories, models.CategoryRequest{ID: id}, nil)
}

func (c *Client) ListGuests(ctx context.Context) ([]models.Guest, error) {
	var out []models.Guest
	err := c.fetch(ctx, PathGuests, &out)
	return out, err
}

func (c *Client) CreateGuest(ctx context.Context, name string, cityID *int64) (models.Guest, error) {
	var out models.Guest
	err := c.write(ctx, http.MethodPost, PathGuests, models.GuestRequest{Name: &name, CityID: cityID}, &out)
	return out, err
}

// UpdateGuest renames the guest when name is set and always replaces its city
func (c *Client) UpdateGuest(ctx context.Context, id int64, name *string, cityID *int64) (models.Guest, error) {
	var out models.Guest
	err := c.write(ctx, http.MethodPatch, PathGuests, models.GuestRequest{ID: id, Name: name, CityID: cityID}, &out)
	return out, err
}

func (c *Client) DeleteGuest(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, PathGuests, models.GuestRequest{ID: id}, nil)
}

func (c *Client) SetCheck(ctx context.Context, guestID, categoryID int64, checked bool) (models.Check, error) {
	var out models.Check
	req := models.CheckRequest{GuestID: guestID, CategoryID: categoryID, Checked: checked}
	err := c.write(ctx, http.MethodPost, PathChecks, req, &out)
	return out, err
}

func (c *Client) fetch(ctx context.Context, path string, out any) error {
	raw, err := c.do(ctx, http.MethodGet, path, c.code, nil)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

func (c *Client) write(ctx context.Context, method, path string, body, out any) error {
	raw, err := c.Send(ctx, method, path, body)
	if err != nil || out == nil {
		return err
	}
	return decode(raw, out)
}
