// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import (
	"log/slog"
	"strings"
)

// CardType はカードブランドの種別を表す。CVVの桁数と有効期限チェックの要否を決める。
type CardType string

const (
	// CardTypeAmex はAmerican Expressカード。
	CardTypeAmex CardType = "AMEX"
	// CardTypeCBVisaMastercard はCB/Visa/Mastercardカード。
	CardTypeCBVisaMastercard CardType = "CB_VISA_MASTERCARD"
	// CardTypeMaestro はMaestroカード（有効期限・CVVのチェック対象外）。
	CardTypeMaestro CardType = "MAESTRO"
	// CardTypeBCMC はBancontact/Mister Cashカード（有効期限・CVVのチェック対象外）。
	CardTypeBCMC CardType = "BCMC"
)

// ExemptFromExpiryAndCVV はカード種別が有効期限・CVVの検証を免除されるかを返す。
func (t CardType) ExemptFromExpiryAndCVV() bool {
	return t == CardTypeMaestro || t == CardTypeBCMC
}

// ParseCardType は大文字小文字を区別せずにカード種別を解釈する。
func ParseCardType(s string) (CardType, error) {
	switch t := CardType(strings.ToUpper(strings.TrimSpace(s))); t {
	case CardTypeAmex, CardTypeCBVisaMastercard, CardTypeMaestro, CardTypeBCMC:
		return t, nil
	}
	return "", ErrUnknownCardType
}

// CardInput はトークン化のために呼び出し元から渡されるカード情報。
// 1回の検証→トークン化の呼び出しの間だけ保持し、永続化もログ出力もしない。
type CardInput struct {
	Number string
	Type   CardType
	Expiry string // MMYY
	CVV    string
}

// String はカード情報を伏せた文字列を返す。
func (c CardInput) String() string {
	return "CardInput{type=" + string(c.Type) + ", redacted}"
}

// LogValue はslogに渡された場合もカード情報を出力しない。
func (c CardInput) LogValue() slog.Value {
	return slog.GroupValue(slog.String("type", string(c.Type)))
}
