package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
)

// Cities

func (s *Storage) ListCities(ctx context.Context, weddingID int64) ([]models.City, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM cities WHERE wedding_id = $1 ORDER BY lower(name), id`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	out := []models.City{}
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Storage) CreateCity(ctx context.Context, weddingID int64, name string) (models.City, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.City{}, err
	}
	if taken, err := nameTaken(ctx, s.db, "cities", weddingID, name, 0); err != nil {
		return models.City{}, err
	} else if taken {
		return models.City{}, apperr.Newf(apperr.Conflict, "city %q already exists", name)
	}

	c := models.City{Name: name}
	err = s.db.QueryRowContext(ctx, `INSERT INTO cities (wedding_id, name) VALUES ($1, $2) RETURNING id`, weddingID, name).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.City{}, apperr.Newf(apperr.Conflict, "city %q already exists", name)
		}
		return models.City{}, fmt.Errorf("failed to create city: %w", err)
	}
	return c, nil
}

func (s *Storage) UpdateCity(ctx context.Context, weddingID, id int64, name string) (models.City, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.City{}, err
	}
	if err := owned(ctx, s.db, "cities", weddingID, id, "city"); err != nil {
		return models.City{}, err
	}
	if taken, err := nameTaken(ctx, s.db, "cities", weddingID, name, id); err != nil {
		return models.City{}, err
	} else if taken {
		return models.City{}, apperr.Newf(apperr.Conflict, "city %q already exists", name)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE cities SET name = $1 WHERE id = $2 AND wedding_id = $3`, name, id, weddingID); err != nil {
		if isUniqueViolation(err) {
			return models.City{}, apperr.Newf(apperr.Conflict, "city %q already exists", name)
		}
		return models.City{}, fmt.Errorf("failed to update city: %w", err)
	}
	return models.City{ID: id, Name: name}, nil
}

// DeleteCity removes a city. Its guests stay, with no city.
func (s *Storage) DeleteCity(ctx context.Context, weddingID, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := owned(ctx, tx, "cities", weddingID, id, "city"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE guests SET city_id = NULL WHERE city_id = $1 AND wedding_id = $2`, id, weddingID); err != nil {
			return fmt.Errorf("failed to detach guests: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cities WHERE id = $1 AND wedding_id = $2`, id, weddingID); err != nil {
			return fmt.Errorf("failed to delete city: %w", err)
		}
		return nil
	})
}

// Categories

func (s *Storage) ListCategories(ctx context.Context, weddingID int64) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type FROM categories WHERE wedding_id = $1 ORDER BY id`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Storage) CreateCategory(ctx context.Context, weddingID int64, name string, typ models.ColumnType) (models.Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.Category{}, err
	}
	typ, err = columnType(typ, models.ColumnCheckbox)
	if err != nil {
		return models.Category{}, err
	}
	if taken, err := nameTaken(ctx, s.db, "categories", weddingID, name, 0); err != nil {
		return models.Category{}, err
	} else if taken {
		return models.Category{}, apperr.Newf(apperr.Conflict, "column %q already exists", name)
	}

	c := models.Category{Name: name, Type: typ}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO categories (wedding_id, name, type) VALUES ($1, $2, $3) RETURNING id`,
		weddingID, name, string(typ),
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Category{}, apperr.Newf(apperr.Conflict, "column %q already exists", name)
		}
		return models.Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

// UpdateCategory renames a category and optionally changes its type.
// An empty typ keeps the current one.
func (s *Storage) UpdateCategory(ctx context.Context, weddingID, id int64, name string, typ models.ColumnType) (models.Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.Category{}, err
	}

	var current models.ColumnType
	err = s.db.QueryRowContext(ctx, `SELECT type FROM categories WHERE id = $1 AND wedding_id = $2`, id, weddingID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Category{}, apperr.New(apperr.NotFound, "column not found")
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to look up category: %w", err)
	}
	if typ, err = columnType(typ, current); err != nil {
		return models.Category{}, err
	}
	if taken, err := nameTaken(ctx, s.db, "categories", weddingID, name, id); err != nil {
		return models.Category{}, err
	} else if taken {
		return models.Category{}, apperr.Newf(apperr.Conflict, "column %q already exists", name)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE categories SET name = $1, type = $2 WHERE id = $3 AND wedding_id = $4`,
		name, string(typ), id, weddingID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Category{}, apperr.Newf(apperr.Conflict, "column %q already exists", name)
		}
		return models.Category{}, fmt.Errorf("failed to update category: %w", err)
	}
	return models.Category{ID: id, Name: name, Type: typ}, nil
}

// DeleteCategory removes a category and every check in its column
func (s *Storage) DeleteCategory(ctx context.Context, weddingID, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := owned(ctx, tx, "categories", weddingID, id, "column"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM checks WHERE category_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete checks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND wedding_id = $2`, id, weddingID); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
}

// Guests

func (s *Storage) ListGuests(ctx context.Context, weddingID int64) ([]models.Guest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, city_id FROM guests WHERE wedding_id = $1 ORDER BY id`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	out := []models.Guest{}
	for rows.Next() {
		var (
			g    models.Guest
			city sql.NullInt64
		)
		if err := rows.Scan(&g.ID, &g.Name, &city); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		g.CityID = pointer(city)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Storage) CreateGuest(ctx context.Context, weddingID int64, name string, cityID *int64) (models.Guest, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.Guest{}, err
	}
	if cityID != nil {
		if err := owned(ctx, s.db, "cities", weddingID, *cityID, "city"); err != nil {
			return models.Guest{}, err
		}
	}

	g := models.Guest{Name: name, CityID: cityID}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO guests (wedding_id, name, city_id) VALUES ($1, $2, $3) RETURNING id`,
		weddingID, name, nullable(cityID),
	).Scan(&g.ID)
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to create guest: %w", err)
	}
	return g, nil
}

// UpdateGuest renames a guest when name is set and always replaces its city.
func (s *Storage) UpdateGuest(ctx context.Context, weddingID, id int64, name *string, cityID *int64) (models.Guest, error) {
	var current string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM guests WHERE id = $1 AND wedding_id = $2`, id, weddingID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Guest{}, apperr.New(apperr.NotFound, "guest not found")
	}
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to look up guest: %w", err)
	}

	if name != nil {
		if current, err = cleanName(*name); err != nil {
			return models.Guest{}, err
		}
	}
	if cityID != nil {
		if err := owned(ctx, s.db, "cities", weddingID, *cityID, "city"); err != nil {
			return models.Guest{}, err
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE guests SET name = $1, city_id = $2 WHERE id = $3 AND wedding_id = $4`,
		current, nullable(cityID), id, weddingID,
	)
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to update guest: %w", err)
	}
	return models.Guest{ID: id, Name: current, CityID: cityID}, nil
}

func (s *Storage) DeleteGuest(ctx context.Context, weddingID, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := owned(ctx, tx, "guests", weddingID, id, "guest"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM checks WHERE guest_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete checks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM guests WHERE id = $1 AND wedding_id = $2`, id, weddingID); err != nil {
			return fmt.Errorf("failed to delete guest: %w", err)
		}
		return nil
	})
}

// Checks

func (s *Storage) ListChecks(ctx context.Context, weddingID int64) ([]models.Check, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.guest_id, c.category_id, c.checked
		   FROM checks c
		   JOIN guests g ON g.id = c.guest_id
		  WHERE g.wedding_id = $1
		  ORDER BY c.guest_id, c.category_id`,
		weddingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	defer rows.Close()

	out := []models.Check{}
	for rows.Next() {
		var c models.Check
		if err := rows.Scan(&c.GuestID, &c.CategoryID, &c.Checked); err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetCheck stores the value of a (guest, category) cell, creating it on first use
func (s *Storage) SetCheck(ctx context.Context, weddingID, guestID, categoryID int64, checked bool) (models.Check, error) {
	if guestID <= 0 || categoryID <= 0 {
		return models.Check{}, apperr.New(apperr.Validation, "guestId and categoryId required")
	}
	if err := owned(ctx, s.db, "guests", weddingID, guestID, "guest"); err != nil {
		return models.Check{}, err
	}
	if err := owned(ctx, s.db, "categories", weddingID, categoryID, "column"); err != nil {
		return models.Check{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (guest_id, category_id, checked) VALUES ($1, $2, $3)
		 ON CONFLICT (guest_id, category_id) DO UPDATE SET checked = excluded.checked`,
		guestID, categoryID, checked,
	)
	if err != nil {
		return models.Check{}, fmt.Errorf("failed to set check: %w", err)
	}
	return models.Check{GuestID: guestID, CategoryID: categoryID, Checked: checked}, nil
}

func columnType(typ, fallback models.ColumnType) (models.ColumnType, error) {
	typ = models.ColumnType(strings.ToLower(strings.TrimSpace(string(typ))))
	if typ == "" {
		return fallback, nil
	}
	if !typ.Valid() {
		return "", apperr.Newf(apperr.Validation, "unknown column type %q", typ)
	}
	return typ, nil
}
