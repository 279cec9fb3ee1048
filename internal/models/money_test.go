package models

import (
	"encoding/json"
	"testing"
)

func TestNewMoneyFromCents(t *testing.T) {
	if got := NewMoneyFromCents(12345).String(); got != "123.45" {
		t.Fatalf("unexpected money: %s", got)
	}
	if got := NewMoneyFromCents(0).String(); got != "0.00" {
		t.Fatalf("unexpected zero money: %s", got)
	}
}

func TestMoneyUnmarshalAcceptsStringAndNumber(t *testing.T) {
	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"10.555","b":7.1}`), &payload); err != nil {
		t.Fatalf("unmarshal money failed: %v", err)
	}
	if payload.A.String() != "10.56" {
		t.Fatalf("unexpected a: %s", payload.A.String())
	}
	if payload.B.String() != "7.10" {
		t.Fatalf("unexpected b: %s", payload.B.String())
	}
}

func TestOrderIsPaymentSettled(t *testing.T) {
	cases := map[string]bool{
		"pending":    false,
		"processing": true,
		"completed":  true,
		"failed":     false,
	}
	for status, want := range cases {
		order := &Order{Status: status}
		if got := order.IsPaymentSettled(); got != want {
			t.Fatalf("status %s: got=%v want=%v", status, got, want)
		}
	}
	var nilOrder *Order
	if nilOrder.IsPaymentSettled() {
		t.Fatalf("nil order should not be settled")
	}
}
