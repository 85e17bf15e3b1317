// Package capability はホスト環境がクロスオリジンリクエストを実行できるかを判定する。
package capability

import (
	"fmt"
	"strings"
)

// Host はホスト環境のネットワーク機能を表す。
type Host struct {
	// NativeRuntime はブラウザ以外（モバイルアプリ、サーバープロセスなど）で動作していることを表す。
	NativeRuntime bool
	// CredentialedCORS はクレデンシャル付きクロスオリジンリクエストをサポートすることを表す。
	CredentialedCORS bool
	// LegacyCrossDomain は旧式のクロスドメインリクエスト機構を持つことを表す。
	LegacyCrossDomain bool
}

// ホストのプリセット。
var (
	Native        = Host{NativeRuntime: true}
	Browser       = Host{CredentialedCORS: true}
	LegacyBrowser = Host{LegacyCrossDomain: true}
	Restricted    = Host{}
)

// SupportsCrossOriginRequests はホストがクロスオリジンリクエストを実行できるかを返す。
func SupportsCrossOriginRequests(h Host) bool {
	if h.NativeRuntime {
		return true
	}
	if h.CredentialedCORS {
		return true
	}
	return h.LegacyCrossDomain
}

// UsesLegacyPath はクロスオリジンリクエストに旧式の経路を使う必要があるかを返す。
func (h Host) UsesLegacyPath() bool {
	return !h.NativeRuntime && !h.CredentialedCORS && h.LegacyCrossDomain
}

// ParseHost は設定値からホストのプリセットを返す。空文字はnativeとして扱う。
func ParseHost(name string) (Host, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "native":
		return Native, nil
	case "browser":
		return Browser, nil
	case "legacy-browser":
		return LegacyBrowser, nil
	case "restricted":
		return Restricted, nil
	}
	return Host{}, fmt.Errorf("unknown host runtime %q", name)
}
