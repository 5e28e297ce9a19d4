package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/verimobi/phone-verify/internal/domain"
	"github.com/verimobi/phone-verify/internal/http/response"
	"github.com/verimobi/phone-verify/pkg/logger"
)

// RequestCode handles verification code requests
func (h *Handlers) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req domain.IssueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.verifyService.IssueCode(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Verification code sent",
	})
}

// VerifyCode handles verification code confirmation
func (h *Handlers) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.verifyService.ConfirmCode(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Phone verified",
	})
}

// SetPassword handles password commits for verified phones
func (h *Handlers) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.CommitPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.verifyService.CommitPassword(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password saved",
	})
}

// DebugStore dumps both tables without hash columns. Wired up only when the
// server runs in dev mode; never expose this outside development.
func (h *Handlers) DebugStore(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.verifyRepo.ListAttempts(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list verification attempts", "error", err)
		response.InternalError(w, "Internal server error")
		return
	}

	accounts, err := h.accountRepo.ListAccounts(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list accounts", "error", err)
		response.InternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"phone_verifications": attempts,
		"accounts":            accounts,
	})
}

// writeServiceError maps engine errors onto HTTP status codes: validation
// and state-machine failures are 400s, cooldown rejections 429, everything
// else a generic 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var rateLimitErr *domain.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, validationErr.Error())
	case errors.As(err, &rateLimitErr):
		response.RateLimitWithWait(w, "Too many requests. Please wait before requesting another code.", rateLimitErr.WaitSeconds)
	case errors.Is(err, domain.ErrNoPendingCode):
		response.WriteError(w, http.StatusBadRequest, "No pending code for this phone", response.CodeNoPendingCode)
	case errors.Is(err, domain.ErrInvalidCode):
		response.WriteError(w, http.StatusBadRequest, "Invalid code", response.CodeInvalidCode)
	case errors.Is(err, domain.ErrNotVerified):
		response.WriteError(w, http.StatusBadRequest, "Phone not verified", response.CodeNotVerified)
	default:
		logger.ErrorContext(r.Context(), "Verification request failed", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
	}
}
