package http

import (
	"net/http"

	"cardauth/internal/authz"
	"cardauth/internal/domain"
	"cardauth/internal/dto"
	"cardauth/internal/netutil"
)

const (
	msgResetRequested        = "If an account exists for that email, a password reset link has been sent."
	msgVerificationRequested = "If an account exists for that email and it is not yet verified, a verification link has been sent."
	msgPasswordReset         = "Your password has been reset. You can now sign in."
)

type userEnvelope struct {
	User dto.UserResponse `json:"user"`
}

func clientIP(r *http.Request, trustProxy bool) string {
	return netutil.ClientIP(r, trustProxy)
}

func (h *Handler) meta(r *http.Request) dto.ClientMeta {
	return dto.ClientMeta{IP: clientIP(r, h.opts.TrustProxy), UserAgent: r.UserAgent()}
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.auth.Signup(r.Context(), req, h.meta(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.resolver.SetSessionCookie(w, res.Session)
	writeJSON(w, http.StatusOK, res.AuthResponse)
}

func (h *Handler) signin(w http.ResponseWriter, r *http.Request) {
	var req dto.SigninRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.auth.SignIn(r.Context(), req, h.meta(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.resolver.SetSessionCookie(w, res.Session)
	writeJSON(w, http.StatusOK, res.AuthResponse)
}

func (h *Handler) signout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), h.resolver.SessionID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	h.resolver.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: msgResetRequested})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: msgPasswordReset})
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.auth.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{User: dto.NewUserResponse(u)})
}

func (h *Handler) requestVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.RequestEmailVerification(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: msgVerificationRequested})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	u, err := h.auth.Me(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{User: dto.NewUserResponse(u)})
}

func (h *Handler) updateMilestones(w http.ResponseWriter, r *http.Request) {
	var req dto.MilestonesRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.auth.UpdateMilestones(r.Context(), mustPrincipal(r).ID, domain.Milestones(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{User: dto.NewUserResponse(u)})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DeleteAccount(r.Context(), mustPrincipal(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	h.resolver.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// mustPrincipal is only called behind Required/RequiredUserID, which always
// attach one.
func mustPrincipal(r *http.Request) domain.Principal {
	p, _ := authz.PrincipalFrom(r.Context())
	return p
}
