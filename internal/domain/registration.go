package domain

import (
	"net/http"
	"net/url"
	"strings"
)

// RegistrationContext は事前登録（外部の初期化処理）で得られるカード登録のコンテキスト。
type RegistrationContext struct {
	ID                  string `json:"Id"`
	CardRegistrationURL string `json:"CardRegistrationURL"`
	PreregistrationData string `json:"PreregistrationData"`
	AccessKey           string `json:"AccessKey"`
}

// TokenizationResult はトークン化の結果。呼び出し元が決済プラットフォームで登録を完了するために使う。
type TokenizationResult struct {
	ID               string `json:"Id"`
	RegistrationData string `json:"RegistrationData"`
}

// RawResponse はHTTP交換の生のレスポンス。StatusCode 0 はレスポンスを受信できなかったことを表す。
type RawResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       string
}

// CompletionURL は登録完了（第2ステップ）で呼び出すプラットフォームのエンドポイントを返す。
func CompletionURL(baseURL, clientID, registrationID string) string {
	return strings.TrimRight(baseURL, "/") + "/v2.01/" + url.PathEscape(clientID) +
		"/cardregistrations/" + url.PathEscape(registrationID)
}
