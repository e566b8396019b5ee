package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/joseph-ayodele/deliverynotes/internal/llm"
)

type fakeRaster struct {
	calls int
	err   error
}

func (f *fakeRaster) RasterizeFirstPageBytes(context.Context, string, string, []byte) ([]byte, error) {
	f.calls++
	return []byte("png"), f.err
}

func reply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func newTestClient(t *testing.T, h http.HandlerFunc, raster Rasterizer) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o"}, raster, nil)
}

func TestExtractDocument_Image(t *testing.T) {
	var sawImage atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b, _ := json.Marshal(body)
		sawImage.Store(strings.Contains(string(b), "data:image/jpeg;base64,"))
		_, _ = w.Write([]byte(reply("```json\n" + `{"sender":"Acme","address":"1 High St","date":"2024-04-03","products":[{"description":"Bolts","quantity":"10","price":"2.50"}]}` + "\n```")))
	}, nil)

	res, raw, err := c.ExtractDocument(context.Background(), llm.VisionRequest{Name: "a.jpg", MIMEType: "image/jpeg", Data: []byte("jpg")})
	if err != nil {
		t.Fatalf("ExtractDocument: %v", err)
	}
	if !sawImage.Load() {
		t.Error("request did not carry the image data URL")
	}
	if res.Sender != "Acme" || len(res.Items) != 1 || res.Items[0].UnitPrice != "2.50" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Method != "openai:gpt-4o" || len(raw) == 0 {
		t.Errorf("method=%q raw=%q", res.Method, raw)
	}
}

func TestExtractDocument_PDFRasterized(t *testing.T) {
	raster := &fakeRaster{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(reply(`{"sender":"Acme"}`)))
	}, raster)

	if _, _, err := c.ExtractDocument(context.Background(), llm.VisionRequest{Name: "a.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")}); err != nil {
		t.Fatalf("ExtractDocument: %v", err)
	}
	if raster.calls != 1 {
		t.Errorf("rasterizer calls = %d", raster.calls)
	}
}

func TestExtractDocument_StructuringCall(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if n == 1 {
			_, _ = w.Write([]byte(reply("The note is from Acme Ltd and ships 10 bolts.")))
			return
		}
		if _, ok := body["response_format"]; !ok {
			t.Error("structuring call should force json_object")
		}
		_, _ = w.Write([]byte(reply(`{"sender":"Acme Ltd","items":[{"description":"bolts","quantity":"10"}]}`)))
	}, nil)

	res, _, err := c.ExtractDocument(context.Background(), llm.VisionRequest{Name: "a.png", MIMEType: "image/png", Data: []byte("png")})
	if err != nil {
		t.Fatalf("ExtractDocument: %v", err)
	}
	if calls.Load() != 2 || res.Sender != "Acme Ltd" {
		t.Fatalf("calls=%d res=%+v", calls.Load(), res)
	}
}

func TestExtractDocument_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   llm.ErrorKind
	}{
		{"quota", 429, `{"error":{"code":"insufficient_quota"}}`, llm.KindQuota},
		{"model", 404, `{"error":{"code":"model_not_found"}}`, llm.KindModel},
		{"auth", 401, `{"error":{"code":"invalid_api_key"}}`, llm.KindAuth},
		{"server", 500, `oops`, llm.KindTransport},
		{"no choices", 200, `{"choices":[]}`, llm.KindEmpty},
		{"not json", 200, `<html>`, llm.KindMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, nil)
			_, _, err := c.ExtractDocument(context.Background(), llm.VisionRequest{Name: "a.png", MIMEType: "image/png", Data: []byte("png")})
			var pe *llm.ProviderError
			if !errors.As(err, &pe) || pe.Kind != tc.kind {
				t.Fatalf("err = %v, want kind %q", err, tc.kind)
			}
		})
	}
}

func TestExtractDocument_UnsupportedMIME(t *testing.T) {
	c := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"}, nil, nil)
	_, _, err := c.ExtractDocument(context.Background(), llm.VisionRequest{Name: "a.docx", Data: []byte("x")})
	if llm.KindOf(err) != llm.KindMalformed {
		t.Fatalf("err = %v", err)
	}
}
