package domain

import "errors"

var (
	// ErrUnknownCardType はカード種別が未対応の場合のエラー。
	ErrUnknownCardType = errors.New("unknown card type")

	// ErrPreregistrationNotFound は事前登録が存在しない場合のエラー。
	ErrPreregistrationNotFound = errors.New("preregistration not found")

	// ErrAccessKeyMismatch は事前登録データとアクセスキーが一致しない場合のエラー。
	ErrAccessKeyMismatch = errors.New("access key mismatch")

	// ErrPreregistrationConsumed は事前登録が既にトークン化済みの場合のエラー。
	ErrPreregistrationConsumed = errors.New("preregistration already consumed")

	// ErrInvalidCardNumber はサンドボックスが受け取ったカード番号が不正な場合のエラー。
	ErrInvalidCardNumber = errors.New("invalid card number")

	// ErrInvalidCardExpiry はサンドボックスが受け取った有効期限が不正な場合のエラー。
	ErrInvalidCardExpiry = errors.New("invalid card expiration date")

	// ErrInvalidCardCVX はサンドボックスが受け取ったCVVが不正な場合のエラー。
	ErrInvalidCardCVX = errors.New("invalid card cvx")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrInvalidMigrationFile はマイグレーションファイルのフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")
)

// 呼び出し元に返すResultCode。
const (
	CodeCrossOriginUnsupported = "009999"
	CodeNotInitialized         = "009998"
	CodeCardNumberFormat       = "105202"
	CodeExpiryDate             = "105203"
	CodeCVVFormat              = "105204"
	CodeRequestBlocked         = "001596"
	CodeRequestFailed          = "001597"
	CodeCrossOriginFailed      = "001598"
	CodeTokenProcessing        = "001599"
)

// サンドボックスのトークン化エンドポイントが errorCode= で返すコード。
const (
	PlatformCodeInvalidCardNumber = "02625"
	PlatformCodeInvalidExpiry     = "02626"
	PlatformCodeInvalidCVX        = "02627"
	PlatformCodeInvalidData       = "09101"
	PlatformCodeDataConsumed      = "09104"
)

// 検証エラーのResultMessage。
const (
	MessageCardNumberFormat = "CARD_NUMBER_FORMAT_ERROR"
	MessageExpiryFormat     = "EXPIRY_DATE_FORMAT_ERROR"
	MessagePastExpiry       = "PAST_EXPIRY_DATE_ERROR"
	MessageCVVFormat        = "CVV_FORMAT_ERROR"
	MessageTokenProcessing  = "Token processing error"
)

// ResultError はカード登録の失敗を呼び出し元に伝える統一エラー形式。
type ResultError struct {
	ResultCode    string       `json:"ResultCode"`
	ResultMessage string       `json:"ResultMessage"`
	Response      *RawResponse `json:"-"`
}

// NewResultError は新しいResultErrorを生成する。
func NewResultError(code, message string) *ResultError {
	return &ResultError{ResultCode: code, ResultMessage: message}
}

// Error はerrorインターフェースを実装する。
func (e *ResultError) Error() string {
	return e.ResultCode + ": " + e.ResultMessage
}

// WithResponse は生のレスポンスを付与したコピーを返す。
func (e *ResultError) WithResponse(resp *RawResponse) *ResultError {
	c := *e
	c.Response = resp
	return &c
}

// AsResultError はerrから*ResultErrorを取り出す。
func AsResultError(err error) (*ResultError, bool) {
	var re *ResultError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
