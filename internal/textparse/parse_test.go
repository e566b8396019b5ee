package textparse

import (
	"testing"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

const ukNote = `ACME Fasteners Ltd
From: ACME Fasteners Ltd
DELIVERY NOTE
Delivery Date: 03/04/2024
Deliver To: Unit 4, Riverside Estate
Leeds LS11 5QR

Qty   Description        Unit Price   Amount
10    Steel bolts M8     £0.25        £2.50
4     Hex nuts M8        £0.10        £0.40

Total: £2.90
Received by: ________
`

func TestParse_UKNote(t *testing.T) {
	res := Parse(ukNote)

	if res.Sender != "ACME Fasteners Ltd" {
		t.Errorf("sender = %q", res.Sender)
	}
	if res.Address != "Unit 4, Riverside Estate Leeds LS11 5QR" {
		t.Errorf("address = %q", res.Address)
	}
	if res.Date != "03/04/2024" {
		t.Errorf("date = %q", res.Date)
	}
	if res.DateOrder != entity.DateOrderDMY {
		t.Errorf("date order = %q, want DMY from UK postcode", res.DateOrder)
	}
	if res.Total != "£2.90" {
		t.Errorf("total = %q", res.Total)
	}
	want := []entity.RawLineItem{
		{Description: "Steel bolts M8", Quantity: "10", UnitPrice: "£0.25"},
		{Description: "Hex nuts M8", Quantity: "4", UnitPrice: "£0.10"},
	}
	if len(res.Items) != len(want) {
		t.Fatalf("items = %+v", res.Items)
	}
	for i := range want {
		if res.Items[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, res.Items[i], want[i])
		}
	}
}

func TestAddress_USFreeform(t *testing.T) {
	text := "Thanks for your order\n1200 Market Street, Springfield, IL 62701\n"
	got := Address(text)
	if got != "1200 Market Street, Springfield, IL 62701" {
		t.Fatalf("address = %q", got)
	}
	if DateOrderHint(text, got) != entity.DateOrderMDY {
		t.Fatal("US zip should hint MDY")
	}
}

func TestAddress_UnknownIsMiss(t *testing.T) {
	if got := Address("Ship To: Unknown\n"); got != "" {
		t.Fatalf("address = %q, want empty", got)
	}
}

func TestDate_MonthName(t *testing.T) {
	tests := map[string]string{
		"Despatch Date  March 5, 2024":    "March 5, 2024",
		"printed on 5th Mar 2024 by clerk": "5th Mar 2024",
		"ref 2024-03-05 batch":             "2024-03-05",
		"no date here":                     "",
	}
	for in, want := range tests {
		if got := Date(in); got != want {
			t.Errorf("Date(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDateOrderHint_ExplicitFormat(t *testing.T) {
	if got := DateOrderHint("Date (MM/DD/YYYY): 03/04/2024", ""); got != entity.DateOrderMDY {
		t.Fatalf("hint = %q", got)
	}
}

func TestItems_NoHeader(t *testing.T) {
	if items := Items("10 bolts\n4 nuts\n"); len(items) != 0 {
		t.Fatalf("items without a table header should be ignored, got %+v", items)
	}
}

func TestParse_EmptyText(t *testing.T) {
	res := Parse("")
	if !res.Empty() {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
