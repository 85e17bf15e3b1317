package usecase

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"card-registration-kit/internal/domain"
	"card-registration-kit/internal/validation"
)

const secretSize = 32

// PreregistrationRepository は事前登録のデータアクセスのインターフェース。
type PreregistrationRepository interface {
	Create(ctx context.Context, p *domain.Preregistration) error
	FindByID(ctx context.Context, id string) (*domain.Preregistration, error)
	FindByPreregistrationData(ctx context.Context, data string) (*domain.Preregistration, error)
	MarkTokenized(ctx context.Context, id string) (bool, error)
}

// Sealer はカード参照を暗号化するインターフェース。
type Sealer interface {
	Seal(ctx context.Context, plaintext []byte) ([]byte, error)
}

// TokenizeRequest はトークン化エンドポイントが受け取るフォームの内容。
type TokenizeRequest struct {
	Data               string
	AccessKeyRef       string
	CardNumber         string
	CardExpirationDate string
	CardCvx            string
}

// sealedCard は封印されるカード参照。CVVは含めない。
type sealedCard struct {
	RegistrationID string `json:"rid"`
	Last4          string `json:"last4"`
	Expiry         string `json:"exp"`
	IssuedAt       int64  `json:"iat"`
}

// SandboxService はローカル検証用の決済プラットフォームの代替を提供する。
type SandboxService struct {
	repo      PreregistrationRepository
	sealer    Sealer
	publicURL string
	now       func() time.Time
}

// NewSandboxService は新しいSandboxServiceを生成する。
// publicURLはクライアントに返すトークン化エンドポイントの基点。
func NewSandboxService(repo PreregistrationRepository, sealer Sealer, publicURL string) *SandboxService {
	return &SandboxService{
		repo:      repo,
		sealer:    sealer,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// TokenizeURL はクライアントがカード情報を送信するURLを返す。
func (s *SandboxService) TokenizeURL() string {
	return s.publicURL + "/v1/tokenize"
}

func randomSecret() (string, error) {
	b := make([]byte, secretSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreatePreregistration は事前登録を発行し、クライアントに渡すコンテキストを返す。
func (s *SandboxService) CreatePreregistration(ctx context.Context) (*domain.RegistrationContext, error) {
	data, err := randomSecret()
	if err != nil {
		return nil, err
	}
	accessKey, err := randomSecret()
	if err != nil {
		return nil, err
	}

	p := &domain.Preregistration{
		PreregistrationData: data,
		AccessKey:           accessKey,
		Status:              domain.PreregistrationStatusCreated,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("saving preregistration: %w", err)
	}

	return &domain.RegistrationContext{
		ID:                  p.ID,
		CardRegistrationURL: s.TokenizeURL(),
		PreregistrationData: p.PreregistrationData,
		AccessKey:           p.AccessKey,
	}, nil
}

// GetPreregistration はIDで事前登録を取得する。
func (s *SandboxService) GetPreregistration(ctx context.Context, id string) (*domain.Preregistration, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding preregistration: %w", err)
	}
	if p == nil {
		return nil, domain.ErrPreregistrationNotFound
	}
	return p, nil
}

// Tokenize はカード情報を検証して封印し、登録データ文字列を返す。
// 事前登録は1回だけ使用できる。
func (s *SandboxService) Tokenize(ctx context.Context, req TokenizeRequest) (string, error) {
	p, err := s.repo.FindByPreregistrationData(ctx, req.Data)
	if err != nil {
		return "", fmt.Errorf("finding preregistration: %w", err)
	}
	if p == nil {
		return "", domain.ErrPreregistrationNotFound
	}
	if subtle.ConstantTimeCompare([]byte(p.AccessKey), []byte(req.AccessKeyRef)) != 1 {
		return "", domain.ErrAccessKeyMismatch
	}
	if p.Status != domain.PreregistrationStatusCreated {
		return "", domain.ErrPreregistrationConsumed
	}

	if err := s.validateCard(req); err != nil {
		return "", err
	}

	marked, err := s.repo.MarkTokenized(ctx, p.ID)
	if err != nil {
		return "", fmt.Errorf("marking preregistration: %w", err)
	}
	if !marked {
		return "", domain.ErrPreregistrationConsumed
	}

	number := strings.TrimSpace(req.CardNumber)
	payload, err := json.Marshal(sealedCard{
		RegistrationID: p.ID,
		Last4:          number[max(0, len(number)-4):],
		Expiry:         strings.TrimSpace(req.CardExpirationDate),
		IssuedAt:       s.now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encoding card reference: %w", err)
	}
	sealed, err := s.sealer.Seal(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("sealing card reference: %w", err)
	}

	slog.InfoContext(ctx, "card tokenized",
		"operation", "tokenize",
		"registration_id", p.ID,
	)
	return "data=" + base64.StdEncoding.EncodeToString(sealed), nil
}

// validateCard はカード種別を受け取らないため、CVVは3桁または4桁を許容する。
func (s *SandboxService) validateCard(req TokenizeRequest) error {
	if validation.ValidateCardNumber(req.CardNumber) != nil {
		return domain.ErrInvalidCardNumber
	}
	if validation.ValidateExpiry(req.CardExpirationDate, domain.CardTypeAmex, s.now()) != nil {
		return domain.ErrInvalidCardExpiry
	}
	if validation.ValidateCVV(req.CardCvx, domain.CardTypeAmex) != nil {
		return domain.ErrInvalidCardCVX
	}
	return nil
}

// PlatformErrorCode はトークン化のエラーを errorCode= で返すコードに変換する。
// 対応するコードが無い場合は空文字を返す。
func PlatformErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrPreregistrationNotFound), errors.Is(err, domain.ErrAccessKeyMismatch):
		return domain.PlatformCodeInvalidData
	case errors.Is(err, domain.ErrPreregistrationConsumed):
		return domain.PlatformCodeDataConsumed
	case errors.Is(err, domain.ErrInvalidCardNumber):
		return domain.PlatformCodeInvalidCardNumber
	case errors.Is(err, domain.ErrInvalidCardExpiry):
		return domain.PlatformCodeInvalidExpiry
	case errors.Is(err, domain.ErrInvalidCardCVX):
		return domain.PlatformCodeInvalidCVX
	}
	return ""
}
