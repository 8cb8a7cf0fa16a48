package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var body GroupRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	g, err := h.mutation.Create(r.Context(), callerFrom(r), body.toCreate())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupToAPI(*g))
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.federation.ResolveByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToAPI(*g))
}

func (h *Handler) getGroupsByIDs(w http.ResponseWriter, r *http.Request) {
	groups, err := h.federation.ResolveByIDs(r.Context(), idsFromQuery(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsToAPI(groups))
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	var body GroupRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	g, err := h.mutation.Update(r.Context(), callerFrom(r), chi.URLParam(r, "id"), body.toInput())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToAPI(*g))
}

func (h *Handler) patchGroup(w http.ResponseWriter, r *http.Request) {
	var body GroupPatchRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	g, err := h.mutation.Patch(r.Context(), callerFrom(r), chi.URLParam(r, "id"), body.toPatch())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToAPI(*g))
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.mutation.Delete(r.Context(), callerFrom(r), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEditable(w http.ResponseWriter, r *http.Request) {
	groups, err := h.federation.ListOwnedBy(r.Context(), callerFrom(r).Name)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsToAPI(groups))
}

func (h *Handler) listUsable(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	groups, err := h.federation.ListUsableBy(r.Context(), caller.Name, h.federation.AllowsDirectory(caller))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsToAPI(groups))
}

func (h *Handler) listMembership(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	groups, err := h.federation.ListMembershipOf(r.Context(), caller.Name, h.federation.AllowsDirectory(caller))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsToAPI(groups))
}

func (h *Handler) listMembershipIDs(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	ids, err := h.federation.MembershipIDs(r.Context(), caller.Name, h.federation.AllowsDirectory(caller))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	st, err := h.status.Status(r.Context(), caller.Name, h.federation.AllowsDirectory(caller))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		OwnedCount:      st.OwnedCount,
		MembershipCount: st.MembershipCount,
		MaxOwnedGroups:  st.MaxOwnedGroups,
	})
}
