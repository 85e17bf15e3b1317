// Package transport は1回のHTTP交換を実行し、結果を統一された成功/失敗の形式で返す。
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"card-registration-kit/internal/capability"
	"card-registration-kit/internal/domain"
)

// ErrExchangeFailed は構造化コードを持たない交換の失敗。
// 呼び出し側がResponseからResultCodeを決める。
var ErrExchangeFailed = errors.New("http exchange failed")

const formContentType = "application/x-www-form-urlencoded"

// Request は1回のHTTP交換の内容。
type Request struct {
	Method      string // http.MethodGet または http.MethodPost
	URL         string
	CrossOrigin bool
	Fields      url.Values
}

// Result はSendの結果。Errがnilなら成功。
type Result struct {
	Body     string
	Response *domain.RawResponse
	Err      error
}

// RequestPolicy は送信前のリクエストを検査する。エラーを返すと送信されない。
type RequestPolicy func(*http.Request) error

// Transport はホストの機能に応じた経路でHTTP交換を実行する。
type Transport struct {
	sameOrigin  Exchanger
	crossOrigin Exchanger
	policy      RequestPolicy
}

// Option はTransportの設定を変更する。
type Option func(*Transport)

// WithExchanger は全ての経路を指定したExchangerに置き換える。
func WithExchanger(e Exchanger) Option {
	return func(t *Transport) {
		t.sameOrigin = e
		t.crossOrigin = e
	}
}

// WithRequestPolicy は送信前のポリシーを設定する。
func WithRequestPolicy(p RequestPolicy) Option {
	return func(t *Transport) {
		t.policy = p
	}
}

// New はhostの機能から経路を一度だけ選択してTransportを生成する。
func New(client *http.Client, host capability.Host, opts ...Option) *Transport {
	standard := &StandardExchanger{Client: client}
	t := &Transport{sameOrigin: standard, crossOrigin: standard}
	if host.UsesLegacyPath() {
		t.crossOrigin = &LegacyExchanger{Client: client}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewHTTPClient はトレース付きのHTTPクライアントを生成する。
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Send はリクエストを送信する。返されるチャネルはちょうど1回だけ結果を受け取り、その後closeされる。
func (t *Transport) Send(ctx context.Context, r Request) <-chan Result {
	out := make(chan Result, 1)

	httpReq, err := t.build(ctx, r)
	if err != nil {
		out <- constructionFailure(r.CrossOrigin, err)
		close(out)
		return out
	}

	exchanger := t.sameOrigin
	if r.CrossOrigin {
		exchanger = t.crossOrigin
	}

	go func() {
		defer close(out)
		defer func() {
			if p := recover(); p != nil {
				out <- constructionFailure(r.CrossOrigin, fmt.Errorf("%v", p))
			}
		}()

		res := exchanger.Exchange(httpReq)
		status := 0
		if res.Response != nil {
			status = res.Response.StatusCode
		}
		slog.DebugContext(ctx, "http exchange completed",
			"method", httpReq.Method,
			"host", httpReq.URL.Host,
			"cross_origin", r.CrossOrigin,
			"status", status,
			"failed", res.Err != nil,
		)
		out <- res
	}()
	return out
}

// build はURLエンコードしたパラメータからhttp.Requestを組み立てる。
func (t *Transport) build(ctx context.Context, r Request) (*http.Request, error) {
	params := r.Fields.Encode()

	var req *http.Request
	var err error
	switch r.Method {
	case http.MethodGet:
		target := r.URL
		if params != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + params
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, r.URL, strings.NewReader(params))
		if err == nil {
			req.Header.Set("Content-Type", formContentType)
		}
	default:
		return nil, fmt.Errorf("unsupported method %q", r.Method)
	}
	if err != nil {
		return nil, err
	}

	if t.policy != nil {
		if err := t.policy(req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// constructionFailure は送信前の例外を、空のハンドル付きの失敗結果にする。
func constructionFailure(crossOrigin bool, err error) Result {
	handle := &domain.RawResponse{}
	return Result{Err: constructionError(crossOrigin, err).WithResponse(handle), Response: handle}
}

// constructionError は送信前の例外を構造化された失敗に変換する。
func constructionError(crossOrigin bool, err error) *domain.ResultError {
	code, msg := domain.CodeRequestFailed, "An HTTP request failed"
	if crossOrigin {
		code, msg = domain.CodeCrossOriginFailed, "A cross-origin HTTP request failed"
	}
	if err != nil && err.Error() != "" {
		msg += ": " + err.Error()
	}
	return domain.NewResultError(code, msg)
}
