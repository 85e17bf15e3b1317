// Package validation はネットワーク呼び出し前にカード情報を検証する。
// 検証関数はすべて純粋関数で、nilが有効、*domain.ResultErrorが無効を表す。
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"card-registration-kit/internal/domain"
)

var numericOnly = regexp.MustCompile(`^[0-9]+$`)

// ValidateCardInput はカード番号→有効期限→CVVの順に検証し、最初の失敗を返す。
func ValidateCardInput(card domain.CardInput, now time.Time) error {
	if err := ValidateCardNumber(card.Number); err != nil {
		return err
	}
	if err := ValidateExpiry(card.Expiry, card.Type, now); err != nil {
		return err
	}
	return ValidateCVV(card.CVV, card.Type)
}

// ValidateCardNumber はカード番号が数字のみでLuhnチェックを満たすか検証する。
func ValidateCardNumber(number string) error {
	number = strings.TrimSpace(number)
	if !numericOnly.MatchString(number) || !Luhn(number) {
		return domain.NewResultError(domain.CodeCardNumberFormat, domain.MessageCardNumberFormat)
	}
	return nil
}

// Luhn は数字列のチェックディジットを検証する。
func Luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			if d *= 2; d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateExpiry はMMYY形式の有効期限がnow時点で過去でないか検証する。
// MAESTROとBCMCは常に有効。
func ValidateExpiry(expiry string, cardType domain.CardType, now time.Time) error {
	if cardType.ExemptFromExpiryAndCVV() {
		return nil
	}

	month, year, ok := parseMMYY(strings.TrimSpace(expiry))
	if !ok {
		return domain.NewResultError(domain.CodeExpiryDate, domain.MessageExpiryFormat)
	}

	if year > now.Year() || (year == now.Year() && month >= int(now.Month())) {
		return nil
	}
	return domain.NewResultError(domain.CodeExpiryDate, domain.MessagePastExpiry)
}

func parseMMYY(s string) (month, year int, ok bool) {
	if len(s) != 4 || !numericOnly.MatchString(s) {
		return 0, 0, false
	}
	month, _ = strconv.Atoi(s[:2])
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	yy, _ := strconv.Atoi(s[2:])
	return month, 2000 + yy, true
}

// ValidateCVV はカード種別に応じたCVVの桁数を検証する。
// AMEXは3桁または4桁、CB_VISA_MASTERCARDは3桁。MAESTROとBCMCは常に有効。
func ValidateCVV(cvv string, cardType domain.CardType) error {
	if cardType.ExemptFromExpiryAndCVV() {
		return nil
	}
	cvv = strings.TrimSpace(cvv)
	cardType = domain.CardType(strings.TrimSpace(string(cardType)))

	if numericOnly.MatchString(cvv) {
		switch {
		case cardType == domain.CardTypeAmex && (len(cvv) == 3 || len(cvv) == 4):
			return nil
		case cardType == domain.CardTypeCBVisaMastercard && len(cvv) == 3:
			return nil
		}
	}
	return domain.NewResultError(domain.CodeCVVFormat, domain.MessageCVVFormat)
}
