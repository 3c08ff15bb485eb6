package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	mfaerrors "github.com/tendant/simple-mfa/pkg/errors"
	"github.com/tendant/simple-mfa/pkg/mfa"
)

// MfaService is the part of mfa.Service the HTTP API needs
type MfaService interface {
	IssueCodeForUserID(ctx context.Context, userID string) (mfa.IssueResult, error)
	VerifyCode(ctx context.Context, rawCode string) (mfa.VerifyResult, error)
}

// Handler serves the passcode issue and verify endpoints
type Handler struct {
	service MfaService
}

// NewHandler creates a new MFA API handler
func NewHandler(service MfaService) *Handler {
	return &Handler{
		service: service,
	}
}

// Routes returns a router with POST /issue and POST /verify. verifyLimiter,
// when not nil, wraps only the verify endpoint.
func Routes(h *Handler, verifyLimiter func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/issue", h.IssueCode)
	if verifyLimiter != nil {
		r.With(verifyLimiter).Post("/verify", h.VerifyCode)
	} else {
		r.Post("/verify", h.VerifyCode)
	}

	return r
}

// IssueCode handles POST /issue
func (h *Handler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req IssueCodeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: string(mfaerrors.ErrCodeInvalidInput), Error: "Invalid request body"})
		return
	}

	res, err := h.service.IssueCodeForUserID(r.Context(), req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, IssueCodeResponse{Channel: string(res.Channel)})
}

// VerifyCode handles POST /verify
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: string(mfaerrors.ErrCodeInvalidInput), Error: "Invalid request body"})
		return
	}

	res, err := h.service.VerifyCode(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, VerifyCodeResponse{UserRef: res.UserRef})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := mfaerrors.GetCode(err)
	status := mfaerrors.MapErrorCodeToHTTPStatus(code)

	message := "An error occurred, please try again later"
	switch {
	case mfaerrors.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
	case status >= http.StatusInternalServerError:
		slog.Error("Unexpected MFA error", "err", err)
	default:
		var structured *mfaerrors.Error
		if errors.As(err, &structured) {
			message = structured.Message
		}
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: string(code), Error: message})
}
