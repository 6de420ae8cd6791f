package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"wedding-planner/internal/apperr"
	"wedding-planner/internal/code"
	"wedding-planner/internal/models"
)

// CreateWedding creates a wedding under a freshly generated code, retrying
// a bounded number of times when the code is taken
func (h *Handler) CreateWedding(c *fiber.Ctx) error {
	ctx := c.UserContext()
	expiresAt := h.now().Add(h.config.WeddingTTL)

	for attempt := 1; attempt <= h.config.CodeAttempts; attempt++ {
		candidate := code.Generate(h.config.CodeLength)
		w, err := h.storage.CreateWedding(ctx, candidate, expiresAt)
		if errors.Is(err, apperr.ErrConflict) {
			h.log.Debug().Int("attempt", attempt).Msg("Code collision, retrying")
			continue
		}
		if err != nil {
			return h.fail(c, err)
		}

		h.log.Info().Str("code", w.Code).Time("expires_at", w.ExpiresAt).Msg("Wedding created")
		return c.JSON(w)
	}

	return h.fail(c, apperr.Newf(apperr.Internal, "could not generate code after %d attempts", h.config.CodeAttempts))
}

// OpenWedding checks that a code belongs to a live wedding
func (h *Handler) OpenWedding(c *fiber.Ctx) error {
	wcode, err := bodyCode(c)
	if err != nil {
		return h.fail(c, err)
	}

	w, err := h.storage.FindWedding(c.UserContext(), wcode)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(w)
}

// RenewWedding pushes the expiry of a wedding a full TTL into the future
func (h *Handler) RenewWedding(c *fiber.Ctx) error {
	wcode, err := bodyCode(c)
	if err != nil {
		return h.fail(c, err)
	}

	w, err := h.storage.RenewWedding(c.UserContext(), wcode, h.now().Add(h.config.WeddingTTL))
	if err != nil {
		return h.fail(c, err)
	}

	h.log.Info().Str("code", w.Code).Time("expires_at", w.ExpiresAt).Msg("Wedding renewed")
	return c.JSON(fiber.Map{"code": w.Code, "expiresAt": w.ExpiresAt})
}

// DeleteWedding removes a wedding with its whole guest list
func (h *Handler) DeleteWedding(c *fiber.Ctx) error {
	wcode, err := bodyCode(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.storage.DeleteWedding(c.UserContext(), wcode); err != nil {
		return h.fail(c, err)
	}

	h.log.Info().Str("code", wcode).Msg("Wedding deleted")
	return c.JSON(models.Message{Message: "Wedding and related data deleted successfully"})
}

// ShareWedding sends the code of a live wedding to a phone over WhatsApp
func (h *Handler) ShareWedding(c *fiber.Ctx) error {
	if h.sharer == nil {
		return h.fail(c, apperr.New(apperr.Transient, "sharing is disabled"))
	}

	var req models.ShareRequest
	if err := parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	wcode := code.Normalize(req.Code)
	if !code.IsValid(wcode) {
		return h.fail(c, apperr.New(apperr.Validation, "invalid code"))
	}
	if req.Phone == "" {
		return h.fail(c, apperr.New(apperr.Validation, "phone required"))
	}

	ctx := c.UserContext()
	w, err := h.storage.FindWedding(ctx, wcode)
	if err != nil {
		return h.fail(c, err)
	}
	data, err := h.storage.Bootstrap(ctx, w.ID)
	if err != nil {
		return h.fail(c, err)
	}

	summary := fmt.Sprintf("%d guests, %d cities, %d columns", len(data.Guests), len(data.Cities), len(data.Categories))
	if err := h.sharer.ShareWedding(ctx, req.Phone, w, summary); err != nil {
		return h.fail(c, apperr.Wrap(apperr.Transient, "failed to share code", err))
	}
	return c.JSON(models.Message{Message: "Code shared"})
}

func bodyCode(c *fiber.Ctx) (string, error) {
	var req models.CodeRequest
	if err := parse(c, &req); err != nil {
		return "", err
	}
	wcode := code.Normalize(req.Code)
	if !code.IsValid(wcode) {
		return "", apperr.New(apperr.Validation, "invalid code")
	}
	return wcode, nil
}
