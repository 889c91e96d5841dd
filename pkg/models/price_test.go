package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPrice_KeepsSourceText(t *testing.T) {
	a := MustPrice("100.50")
	b := MustPrice("100.5")

	if !a.Equal(b.Decimal) {
		t.Errorf("Expected 100.50 and 100.5 to be numerically equal")
	}
	if a.Text() != "100.50" || b.Text() != "100.5" {
		t.Errorf("Expected the source texts to survive parsing. Got: %q / %q", a.Text(), b.Text())
	}
}

func TestPrice_JSONRoundTripKeepsText(t *testing.T) {
	data, err := json.Marshal(MustPrice("100.50"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"100.50"` {
		t.Errorf("Expected the literal on the wire. Got: %s", data)
	}

	var back Price
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Text() != "100.50" {
		t.Errorf("Expected 100.50 after the round trip. Got: %q", back.Text())
	}
	if !back.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("Expected the numeric value to survive the round trip")
	}
}

func TestPrice_UnmarshalAcceptsBareNumber(t *testing.T) {
	var p Price
	if err := json.Unmarshal([]byte(`99.75`), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.Text() != "99.75" {
		t.Errorf("Expected 99.75. Got: %q", p.Text())
	}
}

func TestPrice_UnmarshalRejectsGarbage(t *testing.T) {
	var p Price
	if err := json.Unmarshal([]byte(`"not-a-price"`), &p); err == nil {
		t.Errorf("Expected a non-decimal literal to be rejected")
	}
}

func TestPrice_ZeroValueFallsBackToDecimalForm(t *testing.T) {
	var p Price
	if p.Text() != "0" {
		t.Errorf("Expected the zero value to print as 0. Got: %q", p.Text())
	}
}
