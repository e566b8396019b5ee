package normalize

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"$1,234.50", 1234.50, true},
		{"1.234,50 €", 1234.50, true},
		{"12,50", 12.50, true},
		{"1,234", 1234, true},
		{"1,234,567.8", 1234567.8, true},
		{"£ 7", 7, true},
		{"USD 19.99", 19.99, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{"n/a", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"-5.00", 0, false},
		{"$-5.00", 0, false},
		{"(12.00)", 0, false},
		{"free", 0, false},
		{"€1 234,50", 1234.50, true},
		{"1 234 567.89 USD", 1234567.89, true},
		{"1\u00a0250,00 €", 1250, true},
		{"12abc34", 0, false},
		{"10 20", 0, false},
		{"1234 567", 0, false},
		{"$5.00 / 2 units", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		if ok != tt.valid {
			t.Errorf("ParseAmount(%q) valid = %v, want %v", tt.in, ok, tt.valid)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"10", 10, true},
		{"x3", 3, true},
		{"12 pcs", 12, true},
		{"2.5", 2.5, true},
		{"1,000", 1000, true},
		{"many", 0, false},
		{"3 x 4", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseQuantity(tt.in)
		if ok != tt.valid || (ok && got != tt.want) {
			t.Errorf("ParseQuantity(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}

func TestParseDate(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name     string
		in       string
		hint     entity.DateOrder
		fallback entity.DateOrder
		want     time.Time
		problem  DateProblem
	}{
		{"iso", "2024-03-04", "", "", d(2024, 3, 4), DateOK},
		{"slashed iso", "2024/03/04", "", "", d(2024, 3, 4), DateOK},
		{"iso single digits", "2024-3-5", "", "", d(2024, 3, 5), DateOK},
		{"slashed single digits", "2024/3/5", "", "", d(2024, 3, 5), DateOK},
		{"dotted single digits", "2024.12.5", "", "", d(2024, 12, 5), DateOK},
		{"year first impossible", "2024-2-30", "", "", time.Time{}, DateUnparseable},
		{"month name", "4 March 2024", "", "", d(2024, 3, 4), DateOK},
		{"short month ordinal", "Mar 4th, 2024", "", "", d(2024, 3, 4), DateOK},
		{"dd-mon-yyyy", "04-Mar-2024", "", "", d(2024, 3, 4), DateOK},
		{"rfc1123z", "Mon, 04 Mar 2024 10:15:00 +0000", "", "", d(2024, 3, 4), DateOK},
		{"day > 12 forces dmy", "25/12/2023", "", "", d(2023, 12, 25), DateOK},
		{"day > 12 forces mdy", "12/25/2023", "", "", d(2023, 12, 25), DateOK},
		{"ambiguous with hint", "03/04/2024", entity.DateOrderDMY, "", d(2024, 4, 3), DateOK},
		{"ambiguous with fallback", "03/04/2024", "", entity.DateOrderMDY, d(2024, 3, 4), DateOK},
		{"hint beats fallback", "03/04/2024", entity.DateOrderMDY, entity.DateOrderDMY, d(2024, 3, 4), DateOK},
		{"ambiguous unresolved", "03/04/2024", "", "", time.Time{}, DateAmbiguous},
		{"same day and month", "05.05.24", "", "", d(2024, 5, 5), DateOK},
		{"impossible date", "31/02/2024", "", "", time.Time{}, DateUnparseable},
		{"garbage", "next tuesday", "", "", time.Time{}, DateUnparseable},
		{"empty", "  ", "", "", time.Time{}, DateEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, problem := ParseDate(tt.in, tt.hint, tt.fallback)
			if problem != tt.problem {
				t.Fatalf("problem = %q, want %q", problem, tt.problem)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("date = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitItems(t *testing.T) {
	text := "Description  Qty  Unit Price\n" +
		"Steel bolts M8  100  $0.25\n" +
		"Washers\t50\t0.10\n" +
		"  zinc plated\n" +
		"5 Pallet wrap $12.00 $60.00\n"
	items, ok := SplitItems(text)
	if !ok {
		t.Fatal("expected split to succeed")
	}
	want := []entity.RawLineItem{
		{Description: "Steel bolts M8", Quantity: "100", UnitPrice: "$0.25"},
		{Description: "Washers zinc plated", Quantity: "50", UnitPrice: "0.10"},
		{Description: "Pallet wrap", Quantity: "5", UnitPrice: "$12.00"},
	}
	if len(items) != len(want) {
		t.Fatalf("got %d items: %+v", len(items), items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestSplitItems_Unsplittable(t *testing.T) {
	items, ok := SplitItems("assorted hardware as per order")
	if ok {
		t.Fatal("expected ok=false")
	}
	if len(items) != 1 || items[0].Description != "assorted hardware as per order" {
		t.Fatalf("unsplittable text must be kept as one item, got %+v", items)
	}
}

func TestNormalize_CompleteRecord(t *testing.T) {
	n := NewNormalizer(Config{}, nil)
	doc := entity.SourceDocument{Name: "note.pdf", Fingerprint: "fp"}
	res := entity.ExtractionResult{
		Sender:  "ACME Ltd",
		Address: "1 High Street\nLeeds LS1 1AA",
		Date:    "2024-03-04",
		Items: []entity.RawLineItem{
			{Description: "Bolts", Quantity: "10", UnitPrice: "$1,234.50"},
		},
		Total:    "12345.00",
		Strategy: constants.StrategyVision,
	}
	rec := n.Normalize(doc, res)
	if rec.Incomplete {
		t.Fatalf("expected complete record, issues: %+v", rec.Issues)
	}
	if rec.Address != "1 High Street Leeds LS1 1AA" {
		t.Errorf("address = %q", rec.Address)
	}
	if !rec.Items[0].UnitPriceValid || rec.Items[0].UnitPrice != 1234.50 {
		t.Errorf("unit price = %+v", rec.Items[0])
	}
	if rec.SourceStrategy != constants.StrategyVision || rec.Fingerprint != "fp" {
		t.Errorf("provenance not carried: %+v", rec)
	}
}

func TestNormalize_InvalidPriceIsNotZero(t *testing.T) {
	n := NewNormalizer(Config{}, nil)
	rec := n.Normalize(entity.SourceDocument{}, entity.ExtractionResult{
		Sender: "s", Address: "a", Date: "2024-01-01",
		Items: []entity.RawLineItem{{Description: "Thing", Quantity: "1", UnitPrice: "n/a"}},
	})
	if rec.Items[0].UnitPriceValid {
		t.Fatal("n/a must not be a valid price")
	}
	if !rec.Incomplete {
		t.Fatal("invalid unit price must mark the record incomplete")
	}
}

func TestNormalize_SpaceGroupedPrice(t *testing.T) {
	n := NewNormalizer(Config{}, nil)
	rec := n.Normalize(entity.SourceDocument{}, entity.ExtractionResult{
		Sender: "s", Address: "a", Date: "2024-01-01",
		Items: []entity.RawLineItem{
			{Description: "Crate", Quantity: "1", UnitPrice: "€1 234,50"},
			{Description: "Lid", Quantity: "1", UnitPrice: "12abc34"},
		},
	})
	if it := rec.Items[0]; !it.UnitPriceValid || it.UnitPrice != 1234.50 {
		t.Errorf("grouped price = %+v", it)
	}
	if rec.Items[1].UnitPriceValid {
		t.Errorf("two numbers must not yield a price: %+v", rec.Items[1])
	}
	if !rec.Incomplete {
		t.Error("unparseable price must mark the record incomplete")
	}
}

func TestNormalize_MetadataFallback(t *testing.T) {
	n := NewNormalizer(Config{}, nil)
	doc := entity.SourceDocument{Meta: entity.OriginMeta{
		Sender: `"ACME Dispatch" <dispatch@acme.test>`,
		Date:   time.Date(2024, 5, 6, 14, 30, 0, 0, time.FixedZone("BST", 3600)),
	}}
	rec := n.Normalize(doc, entity.ExtractionResult{
		Address: "Unit 4",
		Items:   []entity.RawLineItem{{Description: "Box", Quantity: "1", UnitPrice: "2"}},
	})
	if rec.Sender != "dispatch@acme.test" {
		t.Errorf("sender = %q", rec.Sender)
	}
	if !rec.DateValid || rec.DateString() != "2024-05-06" {
		t.Errorf("date = %v valid=%v", rec.Date, rec.DateValid)
	}
	if rec.Incomplete {
		t.Errorf("unexpected issues: %+v", rec.Issues)
	}
}

func TestNormalize_MalformedDateKeepsRaw(t *testing.T) {
	n := NewNormalizer(Config{}, nil)
	rec := n.Normalize(entity.SourceDocument{}, entity.ExtractionResult{
		Sender: "s", Address: "a", Date: "32/13/2024",
		Items: []entity.RawLineItem{{Description: "x", Quantity: "1", UnitPrice: "1"}},
	})
	if rec.DateValid || rec.DateRaw != "32/13/2024" || !rec.Incomplete {
		t.Fatalf("unexpected date handling: %+v", rec)
	}
	if rec.DateString() != "32/13/2024" {
		t.Fatalf("DateString = %q", rec.DateString())
	}
}

func TestNormalize_ItemsTextUnsplittableFlagged(t *testing.T) {
	n := NewNormalizer(Config{}, nil)
	rec := n.Normalize(entity.SourceDocument{}, entity.ExtractionResult{
		Sender: "s", Address: "a", Date: "2024-01-01",
		ItemsText: "various parts",
	})
	if len(rec.Items) != 1 || rec.Items[0].Description != "various parts" {
		t.Fatalf("items = %+v", rec.Items)
	}
	if !rec.Incomplete {
		t.Fatal("unsplittable item text must be flagged")
	}
}

func TestNormalize_LostPagesMarkIncomplete(t *testing.T) {
	n := NewNormalizer(Config{}, nil)
	full := entity.ExtractionResult{
		Sender: "s", Address: "a", Date: "2024-01-01",
		Items: []entity.RawLineItem{{Description: "x", Quantity: "1", UnitPrice: "1"}},
	}

	tests := []struct {
		name       string
		warnings   []string
		incomplete bool
	}{
		{"no warnings", nil, false},
		{"tool noise", []string{"Estimating resolution as 300"}, false},
		{"page failed", []string{"page 2: tesseract: exit status 1"}, true},
		{"pages not sent", []string{entity.PagesSkippedWarning(2, 4, "not sent to openai")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := full
			res.Warnings = tt.warnings
			rec := n.Normalize(entity.SourceDocument{}, res)
			if rec.Incomplete != tt.incomplete {
				t.Fatalf("incomplete = %v, want %v (issues %+v)", rec.Incomplete, tt.incomplete, rec.Issues)
			}
			if tt.incomplete && rec.Issues[0].Field != entity.FieldExtraction {
				t.Errorf("issues = %+v", rec.Issues)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	s := strings.Repeat("é", 10)
	got := truncate(s, 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a rune: %q", got)
	}
	if got != "éééé…" {
		t.Errorf("truncate = %q", got)
	}
	if truncate("short", 10) != "short" {
		t.Error("short strings must be returned unchanged")
	}
}

func TestNormalize_EmptyResultNeverPanics(t *testing.T) {
	n := NewNormalizer(Config{}, nil)
	rec := n.Normalize(entity.SourceDocument{}, entity.ExtractionResult{})
	if !rec.Incomplete {
		t.Fatal("empty result must be incomplete")
	}
}

func TestEmailAddress(t *testing.T) {
	tests := map[string]string{
		`"ACME" <a@b.test>`:      "a@b.test",
		"plain@b.test":           "plain@b.test",
		"Broken Name <x@y.test":  "Broken Name <x@y.test",
		"Weird, Name <w@n.test>": "w@n.test",
		"":                       "",
	}
	for in, want := range tests {
		if got := EmailAddress(in); got != want {
			t.Errorf("EmailAddress(%q) = %q, want %q", in, got, want)
		}
	}
}
