package fiscalyears

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-budget/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/default", h.current)
	r.Get("/{id}", h.show)
	r.Patch("/{id}", h.update)
	r.Post("/{id}/default", h.setDefault)
	r.Post("/{id}/transition", h.transition)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), httpx.ListFilters(r))
	if err != nil {
		h.fail(w, "list fiscal years", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	fy, err := h.service.Default(r.Context())
	if err != nil {
		h.fail(w, "default fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusOK, fy)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	fy, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusOK, fy)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	fy, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, "create fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, fy)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	fy, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusOK, fy)
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	fy, err := h.service.SetDefault(r.Context(), id)
	if err != nil {
		h.fail(w, "set default fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusOK, fy)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input TransitionInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	fy, err := h.service.Transition(r.Context(), id, input)
	if err != nil {
		h.fail(w, "transition fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusOK, fy)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
