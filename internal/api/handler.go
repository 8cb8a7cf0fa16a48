// Package api provides the HTTP handlers of the group REST API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"groupman/internal/service/group"
)

// Handler serves the user and admin group routes.
type Handler struct {
	federation *group.Federation
	mutation   *group.MutationService
	status     *group.StatusService
	admin      *group.AdminService
	logger     *slog.Logger
}

// NewHandler creates a Handler over the group services.
func NewHandler(
	federation *group.Federation,
	mutation *group.MutationService,
	status *group.StatusService,
	admin *group.AdminService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		federation: federation,
		mutation:   mutation,
		status:     status,
		admin:      admin,
		logger:     logger.With("component", "api"),
	}
}

// GroupRoutes mounts the caller-scoped routes. Callers must be
// authenticated before these handlers run.
func (h *Handler) GroupRoutes(r chi.Router) {
	r.Post("/", h.createGroup)
	r.Route("/f", func(r chi.Router) {
		r.Get("/", h.getGroupsByIDs)
		r.Get("/editable", h.listEditable)
		r.Get("/usable", h.listUsable)
		r.Get("/membership", h.listMembership)
		r.Get("/membership-ids", h.listMembershipIDs)
		r.Get("/status", h.getStatus)
	})
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getGroup)
		r.Put("/", h.updateGroup)
		r.Patch("/", h.patchGroup)
		r.Delete("/", h.deleteGroup)
	})
}

// AdminRoutes mounts the administrative routes. The admin role must be
// enforced before these handlers run.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.adminListGroups)
		r.Post("/", h.adminAddGroup)
		r.Get("/f", h.adminGetGroupsByIDs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.adminGetGroup)
			r.Put("/", h.adminModifyGroup)
			r.Delete("/", h.adminRemoveGroup)
		})
	})
	r.Get("/audit", h.adminListAudit)
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
