package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseCardType(t *testing.T) {
	tests := []struct {
		in      string
		want    CardType
		wantErr bool
	}{
		{"AMEX", CardTypeAmex, false},
		{" cb_visa_mastercard ", CardTypeCBVisaMastercard, false},
		{"maestro", CardTypeMaestro, false},
		{"BCMC", CardTypeBCMC, false},
		{"DINERS", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCardType(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownCardType) {
				t.Errorf("ParseCardType(%q): want ErrUnknownCardType, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseCardType(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCardInput_Redacted(t *testing.T) {
	card := CardInput{Number: "4242424242424242", Type: CardTypeAmex, Expiry: "1230", CVV: "123"}

	for _, s := range []string{card.String(), fmt.Sprint(card), card.LogValue().String()} {
		if strings.Contains(s, "4242") || strings.Contains(s, "123") {
			t.Errorf("card data leaked: %s", s)
		}
	}
}

func TestResultError(t *testing.T) {
	base := NewResultError(CodeTokenProcessing, MessageTokenProcessing)
	withResp := base.WithResponse(&RawResponse{StatusCode: 500})

	if base.Response != nil {
		t.Error("WithResponse must not modify the receiver")
	}
	if withResp.Response.StatusCode != 500 {
		t.Errorf("want status 500, got %d", withResp.Response.StatusCode)
	}

	wrapped := fmt.Errorf("tokenize: %w", withResp)
	re, ok := AsResultError(wrapped)
	if !ok || re.ResultCode != CodeTokenProcessing {
		t.Errorf("want wrapped ResultError, got %v", wrapped)
	}

	b, err := json.Marshal(withResp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"ResultCode":"001599","ResultMessage":"Token processing error"}` {
		t.Errorf("unexpected json %s", b)
	}
}

func TestRegistrationContext_DecodesInitInput(t *testing.T) {
	in := `{"Id":"reg-1","cardRegistrationURL":"https://tokenizer.example/pay","preregistrationData":"pre","accessKey":"key"}`

	var rc RegistrationContext
	if err := json.Unmarshal([]byte(in), &rc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rc.ID != "reg-1" || rc.CardRegistrationURL != "https://tokenizer.example/pay" ||
		rc.PreregistrationData != "pre" || rc.AccessKey != "key" {
		t.Errorf("unexpected context %+v", rc)
	}
}

func TestCompletionURL(t *testing.T) {
	got := CompletionURL("https://api.sandbox.mangopay.com/", "my client", "123")
	want := "https://api.sandbox.mangopay.com/v2.01/my%20client/cardregistrations/123"
	if got != want {
		t.Errorf("want %s, got %s", want, got)
	}
}
