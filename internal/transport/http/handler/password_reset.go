package handler

import (
	"encoding/json"
	"net/http"

	"github.com/auth-api-nosql/internal/application/reset"
	"github.com/auth-api-nosql/internal/pkg/validate"
)

// forgotPasswordMessage is returned for every well-formed forgot-password
// request. One constant for both the known-account and unknown-account paths,
// so the two responses are byte-identical.
const forgotPasswordMessage = "If the email exists, password reset instructions have been sent."

// PasswordResetHandler handles the three-step password reset flow.
type PasswordResetHandler struct {
	svc reset.Service
}

func NewPasswordResetHandler(svc reset.Service) *PasswordResetHandler {
	return &PasswordResetHandler{svc: svc}
}

func (h *PasswordResetHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.RequestReset(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: forgotPasswordMessage})
}

func (h *PasswordResetHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req reset.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, err := h.svc.VerifyCode(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyEnvelope{Message: "code valid", Token: token})
}

func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req reset.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset successful"})
}
