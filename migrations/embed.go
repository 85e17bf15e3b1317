// Package migrations はサンドボックスのスキーマ定義SQLを埋め込む。
package migrations

import "embed"

// FS はバージョン順に適用される {version}_{name}.sql を保持する。
//
//go:embed *.sql
var FS embed.FS
