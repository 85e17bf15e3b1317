package domain

import "time"

// MigrationStatus はスキーマ変更の適用状態を表す
type MigrationStatus string

const (
	MigrationStatusPending MigrationStatus = "pending"
	MigrationStatusApplied MigrationStatus = "applied"
)

// Migration は埋め込みSQLファイル1つ分のスキーマ変更
type Migration struct {
	Version   string          // 例: "001"
	Name      string          // ファイル名から抽出
	Source    string          // 埋め込みFS上のパス
	AppliedAt *time.Time      // 未適用の場合はnil
	Status    MigrationStatus
}
