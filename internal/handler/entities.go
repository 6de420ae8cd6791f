package handler

import (
	"github.com/gofiber/fiber/v2"

	"wedding-planner/internal/models"
)

// Cities

func (h *Handler) ListCities(c *fiber.Ctx) error {
	cities, err := h.storage.ListCities(c.UserContext(), weddingID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(cities)
}

func (h *Handler) CreateCity(c *fiber.Ctx) error {
	var req models.CityRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	city, err := h.storage.CreateCity(c.UserContext(), weddingID(c), req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(city)
}

func (h *Handler) UpdateCity(c *fiber.Ctx) error {
	var req models.CityRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := requireID(req.ID); err != nil {
		return h.fail(c, err)
	}
	city, err := h.storage.UpdateCity(c.UserContext(), weddingID(c), req.ID, req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(city)
}

func (h *Handler) DeleteCity(c *fiber.Ctx) error {
	var req models.CityRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := requireID(req.ID); err != nil {
		return h.fail(c, err)
	}
	if err := h.storage.DeleteCity(c.UserContext(), weddingID(c), req.ID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(models.OK{OK: true})
}

// Categories

func (h *Handler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.storage.ListCategories(c.UserContext(), weddingID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(categories)
}

func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	var req models.CategoryRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	category, err := h.storage.CreateCategory(c.UserContext(), weddingID(c), req.Name, req.Type)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(category)
}

func (h *Handler) UpdateCategory(c *fiber.Ctx) error {
	var req models.CategoryRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := requireID(req.ID); err != nil {
		return h.fail(c, err)
	}
	category, err := h.storage.UpdateCategory(c.UserContext(), weddingID(c), req.ID, req.Name, req.Type)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(category)
}

func (h *Handler) DeleteCategory(c *fiber.Ctx) error {
	var req models.CategoryRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := requireID(req.ID); err != nil {
		return h.fail(c, err)
	}
	if err := h.storage.DeleteCategory(c.UserContext(), weddingID(c), req.ID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(models.OK{OK: true})
}

// Guests

func (h *Handler) ListGuests(c *fiber.Ctx) error {
	guests, err := h.storage.ListGuests(c.UserContext(), weddingID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(guests)
}

func (h *Handler) CreateGuest(c *fiber.Ctx) error {
	var req models.GuestRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	guest, err := h.storage.CreateGuest(c.UserContext(), weddingID(c), name, req.CityID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(guest)
}

func (h *Handler) UpdateGuest(c *fiber.Ctx) error {
	var req models.GuestRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := requireID(req.ID); err != nil {
		return h.fail(c, err)
	}
	guest, err := h.storage.UpdateGuest(c.UserContext(), weddingID(c), req.ID, req.Name, req.CityID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(guest)
}

func (h *Handler) DeleteGuest(c *fiber.Ctx) error {
	var req models.GuestRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := requireID(req.ID); err != nil {
		return h.fail(c, err)
	}
	if err := h.storage.DeleteGuest(c.UserContext(), weddingID(c), req.ID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(models.OK{OK: true})
}

// Checks

func (h *Handler) SetCheck(c *fiber.Ctx) error {
	var req models.CheckRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	check, err := h.storage.SetCheck(c.UserContext(), weddingID(c), req.GuestID, req.CategoryID, req.Checked)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(check)
}
