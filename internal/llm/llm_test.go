package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLocateJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		ok   bool
	}{
		{"bare", `{"sender":"Acme"}`, true},
		{"fenced", "```json\n{\"sender\":\"Acme\"}\n```", true},
		{"prose", `Here is the data: {"a":{"b":1}} hope that helps`, true},
		{"none", "I could not read this image.", false},
		{"broken", `{"sender": "Acme"`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := LocateJSON(tc.in)
			if ok != tc.ok {
				t.Fatalf("LocateJSON(%q) ok=%v, want %v", tc.in, ok, tc.ok)
			}
		})
	}
}

func TestDecodeResult_Synonyms(t *testing.T) {
	content := `{
		"shipping_address": {"line1": "1 High St", "line2": "Leeds"},
		"date": "03/04/2024",
		"from": "Acme Ltd",
		"products": [
			{"description": "Bolts", "quantity": 10, "price": "$2.50"},
			{"name": "Nuts", "qty": "5"},
			"Washers"
		],
		"total_price": 30.5,
		"date_order": "dmy",
		"strategy": "text_recognition"
	}`
	res, raw, err := DecodeResult("test", content)
	if err != nil {
		t.Fatalf("DecodeResult: %v (raw %s)", err, raw)
	}
	if res.Sender != "Acme Ltd" || res.Address != "1 High St, Leeds" || res.Total != "30.5" {
		t.Errorf("unexpected scalars: %+v", res)
	}
	if res.DateOrder != "DMY" {
		t.Errorf("date order = %q", res.DateOrder)
	}
	if res.Strategy != "" {
		t.Errorf("provider must not set strategy, got %q", res.Strategy)
	}
	if len(res.Items) != 3 {
		t.Fatalf("items = %+v", res.Items)
	}
	if res.Items[0].Quantity != "10" || res.Items[0].UnitPrice != "$2.50" {
		t.Errorf("item 0 = %+v", res.Items[0])
	}
	if res.Items[1].Description != "Nuts" || res.Items[1].Quantity != "5" {
		t.Errorf("item 1 = %+v", res.Items[1])
	}
	if res.Items[2].Description != "Washers" {
		t.Errorf("item 2 = %+v", res.Items[2])
	}
}

func TestDecodeResult_ItemsAsText(t *testing.T) {
	res, _, err := DecodeResult("test", `{"sender":"Acme","items":"10 Bolts\n5 Nuts"}`)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if len(res.Items) != 0 || res.ItemsText != "10 Bolts\n5 Nuts" {
		t.Fatalf("got %+v", res)
	}
}

func TestDecodeResult_Failures(t *testing.T) {
	cases := []struct {
		name    string
		content string
		kind    ErrorKind
	}{
		{"empty", "   ", KindEmpty},
		{"no json", "sorry, cannot help", KindMalformed},
		{"all nulls", `{"sender": null, "address": ""}`, KindEmpty},
		{"wrong types", `{"items": [{"description": "x"}], "date_order": 5, "total": true}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeResult("test", tc.content)
			if tc.kind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if KindOf(err) != tc.kind {
				t.Fatalf("kind = %q, want %q (err %v)", KindOf(err), tc.kind, err)
			}
		})
	}
}

func TestClassifyHTTP(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   ErrorKind
	}{
		{429, `{"error":{"code":"insufficient_quota"}}`, KindQuota},
		{400, `{"error":{"code":"insufficient_quota"}}`, KindQuota},
		{404, `{"error":{"code":"model_not_found"}}`, KindModel},
		{401, `{}`, KindAuth},
		{500, `oops`, KindTransport},
	}
	for _, tc := range cases {
		if got := ClassifyHTTP(tc.status, []byte(tc.body)); got != tc.want {
			t.Errorf("ClassifyHTTP(%d, %s) = %q, want %q", tc.status, tc.body, got, tc.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	pe := &ProviderError{Provider: "x", Kind: KindQuota, Err: errors.New("q")}
	if KindOf(fmt.Errorf("wrapped: %w", pe)) != KindQuota {
		t.Error("KindOf should see through wrapping")
	}
	if KindOf(context.DeadlineExceeded) != KindTimeout {
		t.Error("deadline should classify as timeout")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain errors have no kind")
	}
}

func TestSendJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header")
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]any{"a": 1},
		map[string]string{"Authorization": "Bearer k"}, nil)
	var se *StatusError
	if !errors.As(err, &se) || status != 429 || se.Status != 429 {
		t.Fatalf("status=%d err=%v", status, err)
	}
	if !strings.Contains(string(raw), "insufficient_quota") {
		t.Errorf("body not returned: %s", raw)
	}
}

func TestDataURL(t *testing.T) {
	if got := DataURL("image/png", []byte("hi")); got != "data:image/png;base64,aGk=" {
		t.Fatalf("DataURL = %s", got)
	}
}
