// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// 監査ログの結果。
const (
	ResultSuccess = "SUCCESS"
	ResultFailed  = "FAILED"
)

// WriteAuditLog はサンドボックス操作の監査ログを出力する。カード情報は渡さないこと。
func WriteAuditLog(ctx context.Context, operation, registrationID, result string, attrs ...any) {
	args := []any{
		"operation", operation,
		"registration_id", registrationID,
		"result", result,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	}
	slog.InfoContext(ctx, "sandbox operation completed", append(args, attrs...)...)
}
