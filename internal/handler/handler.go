package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"wedding-planner/internal/apperr"
	"wedding-planner/internal/code"
	"wedding-planner/internal/models"
)

// CodeHeader carries the wedding code on every scoped request
const CodeHeader = "X-Wedding-Code"

const weddingKey = "wedding_id"

// Store is the persistence the handlers need
type Store interface {
	Ping(ctx context.Context) error

	CreateWedding(ctx context.Context, code string, expiresAt time.Time) (models.Wedding, error)
	FindWedding(ctx context.Context, code string) (models.Wedding, error)
	RenewWedding(ctx context.Context, code string, expiresAt time.Time) (models.Wedding, error)
	DeleteWedding(ctx context.Context, code string) error
	Bootstrap(ctx context.Context, weddingID int64) (models.Bootstrap, error)

	ListCities(ctx context.Context, weddingID int64) ([]models.City, error)
	CreateCity(ctx context.Context, weddingID int64, name string) (models.City, error)
	UpdateCity(ctx context.Context, weddingID, id int64, name string) (models.City, error)
	DeleteCity(ctx context.Context, weddingID, id int64) error

	ListCategories(ctx context.Context, weddingID int64) ([]models.Category, error)
	CreateCategory(ctx context.Context, weddingID int64, name string, typ models.ColumnType) (models.Category, error)
	UpdateCategory(ctx context.Context, weddingID, id int64, name string, typ models.ColumnType) (models.Category, error)
	DeleteCategory(ctx context.Context, weddingID, id int64) error

	ListGuests(ctx context.Context, weddingID int64) ([]models.Guest, error)
	CreateGuest(ctx context.Context, weddingID int64, name string, cityID *int64) (models.Guest, error)
	UpdateGuest(ctx context.Context, weddingID, id int64, name *string, cityID *int64) (models.Guest, error)
	DeleteGuest(ctx context.Context, weddingID, id int64) error

	SetCheck(ctx context.Context, weddingID, guestID, categoryID int64, checked bool) (models.Check, error)
}

// Sharer delivers a wedding code to a phone
type Sharer interface {
	ShareWedding(ctx context.Context, phone string, w models.Wedding, summary string) error
}

type Config struct {
	WeddingTTL   time.Duration
	CodeLength   int
	CodeAttempts int
}

type Handler struct {
	storage Store
	sharer  Sharer
	config  *Config
	log     zerolog.Logger
	now     func() time.Time
}

// NewHandler creates the API handler. sharer may be nil when sharing is off.
func NewHandler(storage Store, sharer Sharer, cfg *Config, log zerolog.Logger) *Handler {
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 6
	}
	if cfg.CodeLength == 0 {
		cfg.CodeLength = code.DefaultLength
	}
	if cfg.WeddingTTL <= 0 {
		cfg.WeddingTTL = 15 * 24 * time.Hour
	}
	return &Handler{
		storage: storage,
		sharer:  sharer,
		config:  cfg,
		log:     log.With().Str("component", "api").Logger(),
		now:     time.Now,
	}
}

// Register mounts every endpoint on r
func (h *Handler) Register(r fiber.Router) {
	r.Get("/health", h.Health)
	r.Get("/bootstrap", h.Bootstrap)

	r.Post("/weddings/create", h.CreateWedding)
	r.Post("/weddings/open", h.OpenWedding)
	r.Post("/weddings/renew", h.RenewWedding)
	r.Post("/weddings/share", h.ShareWedding)
	r.Delete("/weddings", h.DeleteWedding)
	r.Post("/weddings/delete", h.DeleteWedding)

	r.Get("/cities", h.requireWedding, h.ListCities)
	r.Post("/cities", h.requireWedding, h.CreateCity)
	r.Patch("/cities", h.requireWedding, h.UpdateCity)
	r.Delete("/cities", h.requireWedding, h.DeleteCity)

	r.Get("/categories", h.requireWedding, h.ListCategories)
	r.Post("/categories", h.requireWedding, h.CreateCategory)
	r.Patch("/categories", h.requireWedding, h.UpdateCategory)
	r.Delete("/categories", h.requireWedding, h.DeleteCategory)

	r.Get("/guests", h.requireWedding, h.ListGuests)
	r.Post("/guests", h.requireWedding, h.CreateGuest)
	r.Patch("/guests", h.requireWedding, h.UpdateGuest)
	r.Delete("/guests", h.requireWedding, h.DeleteGuest)

	r.Post("/checks", h.requireWedding, h.SetCheck)
}

// Health answers the connectivity probe
func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.storage.Ping(c.UserContext()); err != nil {
		return h.fail(c, apperr.Wrap(apperr.Transient, "database unavailable", err))
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Bootstrap returns the whole dataset of the wedding in the code header.
// Missing, malformed, unknown and expired codes all get the empty dataset.
func (h *Handler) Bootstrap(c *fiber.Ctx) error {
	empty := models.EmptyBootstrap()

	wcode := code.Normalize(c.Get(CodeHeader))
	if !code.IsValid(wcode) {
		return c.JSON(empty)
	}

	w, err := h.storage.FindWedding(c.UserContext(), wcode)
	if err != nil {
		if apperr.Definitive(err) {
			return c.JSON(empty)
		}
		return h.fail(c, err)
	}

	data, err := h.storage.Bootstrap(c.UserContext(), w.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(data)
}

// requireWedding resolves the code header to a live wedding for the next handler
func (h *Handler) requireWedding(c *fiber.Ctx) error {
	raw := c.Get(CodeHeader)
	if raw == "" {
		return h.fail(c, apperr.New(apperr.Validation, "wedding code required"))
	}
	wcode := code.Normalize(raw)
	if !code.IsValid(wcode) {
		return h.fail(c, apperr.New(apperr.Validation, "invalid code"))
	}

	w, err := h.storage.FindWedding(c.UserContext(), wcode)
	if err != nil {
		return h.fail(c, err)
	}
	c.Locals(weddingKey, w.ID)
	return c.Next()
}

func weddingID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(weddingKey).(int64)
	return id
}

// fail writes err as {"error": ...} with the status of its kind
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := apperr.Status(err)
	msg := apperr.Message(err)
	if apperr.KindOf(err) == apperr.Internal {
		h.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Request failed")
		var ae *apperr.Error
		if !errors.As(err, &ae) || ae.Msg == "" {
			msg = "server error"
		}
	}
	return c.Status(status).JSON(models.ErrorBody{Error: msg})
}

func parse(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	return nil
}

func requireID(id int64) error {
	if id <= 0 {
		return apperr.New(apperr.Validation, "id required")
	}
	return nil
}
