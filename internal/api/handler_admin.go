package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"groupman/internal/domain"
)

func (h *Handler) adminListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.admin.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsToAPI(groups))
}

func (h *Handler) adminGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.admin.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToAPI(*g))
}

func (h *Handler) adminGetGroupsByIDs(w http.ResponseWriter, r *http.Request) {
	groups, err := h.admin.GetByIDs(r.Context(), idsFromQuery(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsToAPI(groups))
}

func (h *Handler) adminAddGroup(w http.ResponseWriter, r *http.Request) {
	var body GroupRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	g, err := h.admin.Add(r.Context(), callerFrom(r), body.toCreate())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupToAPI(*g))
}

func (h *Handler) adminModifyGroup(w http.ResponseWriter, r *http.Request) {
	var body GroupRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	g, err := h.admin.Modify(r.Context(), callerFrom(r), chi.URLParam(r, "id"), body.toInput())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToAPI(*g))
}

func (h *Handler) adminRemoveGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Remove(r.Context(), callerFrom(r), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminListAudit(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	entries, total, err := h.admin.Audit(r.Context(), page)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	out := AuditPage{
		Entries:       make([]AuditEntry, len(entries)),
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
		Total:         total,
	}
	for i, e := range entries {
		out.Entries[i] = auditEntryToAPI(e)
	}
	writeJSON(w, http.StatusOK, out)
}
