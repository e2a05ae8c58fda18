package http

import (
	"net/http"

	"cardauth/internal/dto"
)

func (h *Handler) listInvites(w http.ResponseWriter, r *http.Request) {
	list, err := h.invites.ListByIssuer(r.Context(), mustPrincipal(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createInvite(w http.ResponseWriter, r *http.Request) {
	out, err := h.invites.Create(r.Context(), mustPrincipal(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) validateInvite(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateInviteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.invites.Validate(r.Context(), req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ValidateInviteResponse{Valid: true})
}
