// Package handler はサンドボックスのHTTPハンドラを提供する。
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"card-registration-kit/internal/domain"
	"card-registration-kit/internal/middleware"
	"card-registration-kit/internal/usecase"
	"card-registration-kit/pkg/httputil"
)

const maxFormBytes = 4 << 10

var registrationIDRegex = regexp.MustCompile(`^[a-fA-F0-9-]{1,36}$`)

// Recorder はサンドボックスのメトリクスを記録する。
type Recorder interface {
	ObservePreregistration()
	ObserveTokenization(result string)
}

// SandboxHandler はサンドボックスのHTTPハンドラを提供する。
type SandboxHandler struct {
	service  *usecase.SandboxService
	recorder Recorder
}

// NewSandboxHandler は新しいSandboxHandlerを生成する。
func NewSandboxHandler(service *usecase.SandboxService, recorder Recorder) *SandboxHandler {
	return &SandboxHandler{service: service, recorder: recorder}
}

// PreregistrationResponse は事前登録状態のレスポンス形式。
type PreregistrationResponse struct {
	ID        string `json:"Id"`
	Status    string `json:"Status"`
	CreatedAt string `json:"CreationDate"`
	UpdatedAt string `json:"UpdateDate"`
}

// CreatePreregistration はカード登録の事前登録を発行する。
func (h *SandboxHandler) CreatePreregistration(w http.ResponseWriter, r *http.Request) {
	rc, err := h.service.CreatePreregistration(r.Context())
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "CREATE_PREREGISTRATION", "", middleware.ResultFailed)
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	h.recorder.ObservePreregistration()
	middleware.WriteAuditLog(r.Context(), "CREATE_PREREGISTRATION", rc.ID, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusCreated, rc)
}

// GetPreregistration は事前登録の状態を返す。
func (h *SandboxHandler) GetPreregistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !registrationIDRegex.MatchString(id) {
		httputil.Error(w, http.StatusBadRequest, "INVALID_ID", "invalid registration ID format")
		return
	}

	p, err := h.service.GetPreregistration(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPreregistrationNotFound) {
			httputil.Error(w, http.StatusNotFound, "NOT_FOUND", "card registration not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	httputil.JSON(w, http.StatusOK, PreregistrationResponse{
		ID:        p.ID,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// Tokenize はフォームで送られたカード情報をトークン化する。
// 失敗は200で errorCode=<code> を返す。
func (h *SandboxHandler) Tokenize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.recorder.ObserveTokenization(domain.PlatformCodeInvalidData)
		httputil.Text(w, http.StatusOK, "errorCode="+domain.PlatformCodeInvalidData)
		return
	}

	body, err := h.service.Tokenize(r.Context(), usecase.TokenizeRequest{
		Data:               r.PostForm.Get("data"),
		AccessKeyRef:       r.PostForm.Get("accessKeyRef"),
		CardNumber:         r.PostForm.Get("cardNumber"),
		CardExpirationDate: r.PostForm.Get("cardExpirationDate"),
		CardCvx:            r.PostForm.Get("cardCvx"),
	})
	if err != nil {
		code := usecase.PlatformErrorCode(err)
		if code == "" {
			h.recorder.ObserveTokenization("error")
			middleware.WriteAuditLog(r.Context(), "TOKENIZE", "", middleware.ResultFailed)
			httputil.Text(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.recorder.ObserveTokenization(code)
		middleware.WriteAuditLog(r.Context(), "TOKENIZE", "", middleware.ResultFailed, "error_code", code)
		httputil.Text(w, http.StatusOK, "errorCode="+code)
		return
	}

	h.recorder.ObserveTokenization("ok")
	middleware.WriteAuditLog(r.Context(), "TOKENIZE", "", middleware.ResultSuccess)
	httputil.Text(w, http.StatusOK, body)
}
