package transport

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"card-registration-kit/internal/domain"
)

// Exchanger は組み立て済みのリクエストで1回だけネットワーク呼び出しを行う。
type Exchanger interface {
	Exchange(req *http.Request) Result
}

// StandardExchanger は2xxを成功、それ以外を失敗として扱う通常の経路。
type StandardExchanger struct {
	Client *http.Client
}

// Exchange はリクエストを送信する。
func (e *StandardExchanger) Exchange(req *http.Request) Result {
	raw, err := roundTrip(e.Client, req)
	if err != nil {
		return Result{Response: raw, Err: err}
	}
	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		return Result{Response: raw, Err: fmt.Errorf("%w: status %d", ErrExchangeFailed, raw.StatusCode)}
	}
	return Result{Body: raw.Body, Response: raw}
}

// LegacyExchanger はレスポンスを受信できれば常に成功とする旧式のクロスドメイン経路。
// ステータスコードを参照できない環境の挙動に合わせている。
type LegacyExchanger struct {
	Client *http.Client
}

// Exchange はリクエストを送信する。
func (e *LegacyExchanger) Exchange(req *http.Request) Result {
	raw, err := roundTrip(e.Client, req)
	if err != nil {
		return Result{Response: raw, Err: err}
	}
	return Result{Body: raw.Body, Response: raw}
}

// roundTrip はレスポンスを読み切ってRawResponseに変換する。
// ネットワークエラーの場合はStatusCode 0のRawResponseを返す。
func roundTrip(client *http.Client, req *http.Request) (*domain.RawResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return &domain.RawResponse{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	raw := &domain.RawResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return raw, fmt.Errorf("%w: reading response: %v", ErrExchangeFailed, err)
	}
	raw.Body = string(body)
	return raw, nil
}

// HTTPSOnly はループバック以外への平文HTTPを拒否するRequestPolicy。
func HTTPSOnly(req *http.Request) error {
	if req.URL.Scheme == "https" {
		return nil
	}
	if req.URL.Scheme == "http" && isLoopback(req.URL.Hostname()) {
		return nil
	}
	return fmt.Errorf("insecure request to %s blocked", req.URL.Host)
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
