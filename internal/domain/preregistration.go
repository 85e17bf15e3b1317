package domain

import "time"

// PreregistrationStatus はサンドボックスの事前登録の状態を表す。
type PreregistrationStatus string

const (
	// PreregistrationStatusCreated はトークン化待ちの事前登録。
	PreregistrationStatusCreated PreregistrationStatus = "CREATED"
	// PreregistrationStatusTokenized はトークン化済み（再利用不可）の事前登録。
	PreregistrationStatusTokenized PreregistrationStatus = "TOKENIZED"
)

// Preregistration はサンドボックスが発行したカード登録の事前登録。カード情報は含まない。
type Preregistration struct {
	ID                  string
	PreregistrationData string
	AccessKey           string
	Status              PreregistrationStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
