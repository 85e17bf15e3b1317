// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"card-registration-kit/internal/capability"
	"card-registration-kit/internal/domain"
	"card-registration-kit/internal/transport"
	"card-registration-kit/internal/validation"
)

const errorCodePrefix = "errorCode="

// SessionState はカード登録セッションの状態を表す。
type SessionState string

const (
	SessionStateIdle      SessionState = "IDLE"
	SessionStateInFlight  SessionState = "IN_FLIGHT"
	SessionStateCompleted SessionState = "COMPLETED"
	SessionStateFailed    SessionState = "FAILED"
)

// Sender はトークン化エンドポイントへのHTTP交換のインターフェース。
type Sender interface {
	Send(ctx context.Context, r transport.Request) <-chan transport.Result
}

// RegistrationSession は1件のカード登録コンテキストを保持し、検証とトークン化を行う。
// 同一セッションでの並行したRegisterCardは調整しない。
type RegistrationSession struct {
	sender Sender
	host   capability.Host
	now    func() time.Time
	tracer trace.Tracer

	mu    sync.RWMutex
	rc    *domain.RegistrationContext
	state SessionState
}

// SessionOption はRegistrationSessionの設定を変更する。
type SessionOption func(*RegistrationSession)

// WithClock は有効期限の検証に使う現在時刻の取得関数を設定する。
func WithClock(now func() time.Time) SessionOption {
	return func(s *RegistrationSession) {
		s.now = now
	}
}

// NewRegistrationSession は新しいRegistrationSessionを生成する。
func NewRegistrationSession(sender Sender, host capability.Host, opts ...SessionOption) *RegistrationSession {
	s := &RegistrationSession{
		sender: sender,
		host:   host,
		now:    time.Now,
		tracer: otel.Tracer("card-registration-kit/usecase"),
		state:  SessionStateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init はカード登録コンテキストを保存する。検証もネットワーク呼び出しも行わない。
func (s *RegistrationSession) Init(rc domain.RegistrationContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rc = &rc
	s.state = SessionStateIdle
}

// State は最後に遷移した状態を返す。
func (s *RegistrationSession) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *RegistrationSession) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// RegisterCard はカード情報を検証し、トークン化エンドポイントに送信する。
// ネットワーク呼び出しの完了を待たずに返り、結果はRegistrationでちょうど1回だけ受け取れる。
func (s *RegistrationSession) RegisterCard(ctx context.Context, card domain.CardInput) *Registration {
	reg := newRegistration()

	s.mu.RLock()
	rc := s.rc
	s.mu.RUnlock()

	ctx, span := s.tracer.Start(ctx, "RegistrationSession.RegisterCard",
		trace.WithAttributes(attribute.String("card.type", string(card.Type))))

	if rc == nil {
		s.fail(ctx, span, reg, "", domain.NewResultError(domain.CodeNotInitialized, "Card registration is not initialized"))
		return reg
	}
	span.SetAttributes(attribute.String("registration.id", rc.ID))

	if !capability.SupportsCrossOriginRequests(s.host) {
		s.fail(ctx, span, reg, rc.ID, domain.NewResultError(domain.CodeCrossOriginUnsupported,
			"Host does not support making cross-origin requests"))
		return reg
	}

	if err := validation.ValidateCardInput(card, s.now()); err != nil {
		re, ok := domain.AsResultError(err)
		if !ok {
			re = domain.NewResultError(domain.CodeTokenProcessing, err.Error())
		}
		s.fail(ctx, span, reg, rc.ID, re)
		return reg
	}

	s.setState(SessionStateInFlight)
	slog.InfoContext(ctx, "card tokenization started", "registration_id", rc.ID)

	results := s.sender.Send(ctx, transport.Request{
		Method:      http.MethodPost,
		URL:         rc.CardRegistrationURL,
		CrossOrigin: true,
		Fields: url.Values{
			"data":               {rc.PreregistrationData},
			"accessKeyRef":       {rc.AccessKey},
			"cardNumber":         {card.Number},
			"cardExpirationDate": {card.Expiry},
			"cardCvx":            {card.CVV},
		},
	})

	go func() {
		res, ok := <-results
		if !ok {
			s.fail(ctx, span, reg, rc.ID, domain.NewResultError(domain.CodeTokenProcessing, domain.MessageTokenProcessing))
			return
		}
		if res.Err != nil {
			s.fail(ctx, span, reg, rc.ID, exchangeFailure(res))
			return
		}
		token, re := tokenizationResult(rc.ID, res)
		if re != nil {
			s.fail(ctx, span, reg, rc.ID, re)
			return
		}

		s.setState(SessionStateCompleted)
		slog.InfoContext(ctx, "card tokenization completed", "registration_id", rc.ID)
		span.End()
		reg.resolve(token, nil)
	}()

	return reg
}

func (s *RegistrationSession) fail(ctx context.Context, span trace.Span, reg *Registration, registrationID string, re *domain.ResultError) {
	s.setState(SessionStateFailed)
	slog.WarnContext(ctx, "card tokenization failed",
		"registration_id", registrationID,
		"result_code", re.ResultCode,
		"result_message", re.ResultMessage,
	)
	span.SetAttributes(attribute.String("result.code", re.ResultCode))
	span.SetStatus(codes.Error, re.ResultMessage)
	span.End()
	reg.resolve(nil, re)
}

// tokenizationResult はエンドポイントが返した本文を解釈する。
func tokenizationResult(registrationID string, res transport.Result) (*domain.TokenizationResult, *domain.ResultError) {
	if res.Body == "" {
		return nil, domain.NewResultError(domain.CodeTokenProcessing, domain.MessageTokenProcessing).WithResponse(res.Response)
	}
	if strings.HasPrefix(res.Body, errorCodePrefix) {
		code := strings.TrimPrefix(res.Body, errorCodePrefix)
		if code == "" {
			code = domain.CodeTokenProcessing
		}
		return nil, domain.NewResultError(code, domain.MessageTokenProcessing).WithResponse(res.Response)
	}
	return &domain.TokenizationResult{ID: registrationID, RegistrationData: res.Body}, nil
}

// exchangeFailure は交換の失敗をResultErrorに変換する。構造化済みのエラーはそのまま返す。
func exchangeFailure(res transport.Result) *domain.ResultError {
	if re, ok := domain.AsResultError(res.Err); ok {
		return re
	}
	if res.Response == nil || res.Response.StatusCode == 0 {
		return domain.NewResultError(domain.CodeRequestBlocked,
			"An HTTP request was blocked by the User's computer (probably due to an antivirus)").WithResponse(res.Response)
	}
	return domain.NewResultError(domain.CodeTokenProcessing, domain.MessageTokenProcessing).WithResponse(res.Response)
}
