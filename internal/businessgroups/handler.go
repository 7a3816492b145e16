package businessgroups

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

// MountRoutes attaches /business-groups routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/unassigned", h.unassigned)
	r.Post("/dissociate", h.dissociate)
	r.Post("/transfer", h.transfer)
	r.Get("/{id}", h.show)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/companies", h.companies)
	r.Get("/{id}/history", h.history)
	r.Post("/{id}/associate", h.associate)
}

// MountCompanyRoutes attaches membership views under /companies.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Get("/{id}/history", h.companyHistory)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context(), httpx.ListFilters(r))
	if err != nil {
		h.fail(w, "list business groups", err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input GroupInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.CreateGroup(r.Context(), input)
	if err != nil {
		h.fail(w, "create business group", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.GetGroup(r.Context(), id)
	if err != nil {
		h.fail(w, "get business group", err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input GroupUpdate
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.UpdateGroup(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update business group", err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteGroup(r.Context(), id); err != nil {
		h.fail(w, "delete business group", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) companies(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.CompaniesByGroup(r.Context(), id)
	if err != nil {
		h.fail(w, "companies by group", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) unassigned(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.UnassignedCompanies(r.Context())
	if err != nil {
		h.fail(w, "unassigned companies", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.MembershipHistory(r.Context(), id)
	if err != nil {
		h.fail(w, "group history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) companyHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.CompanyHistory(r.Context(), id)
	if err != nil {
		h.fail(w, "company history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

type associateBody struct {
	CompanyID int64  `json:"company_id"`
	Reason    string `json:"reason"`
}

func (h *Handler) associate(w http.ResponseWriter, r *http.Request) {
	groupID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body associateBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Associate(r.Context(), AssociateInput{CompanyID: body.CompanyID, GroupID: groupID, Reason: body.Reason})
	if err != nil {
		h.fail(w, "associate company", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) dissociate(w http.ResponseWriter, r *http.Request) {
	var input DissociateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Dissociate(r.Context(), input)
	if err != nil {
		h.fail(w, "dissociate company", err)
		return
	}
	if entry == nil {
		httpx.NoContent(w)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var input TransferInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.Transfer(r.Context(), input)
	if err != nil {
		h.fail(w, "transfer company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
