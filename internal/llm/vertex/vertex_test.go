package vertex

import (
	"context"
	"log/slog"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/deliverynotes/internal/llm"
)

type fakeModel struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
	}}}
}

func newTestClient(m generator) *Client {
	return &Client{model: m, name: "gemini-test", logger: slog.Default()}
}

func TestExtractDocument_InlinePDF(t *testing.T) {
	m := &fakeModel{resp: textResponse(`{"sender":"Acme","shipping_address":"1 High St","items":[{"description":"Bolts","quantity":"10"}]}`)}
	c := newTestClient(m)

	res, _, err := c.ExtractDocument(context.Background(), llm.VisionRequest{Name: "n.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("ExtractDocument: %v", err)
	}
	if res.Address != "1 High St" || res.Method != "vertex:gemini-test" {
		t.Errorf("unexpected result %+v", res)
	}
	blob, ok := m.parts[0].(genai.Blob)
	if !ok || blob.MIMEType != "application/pdf" {
		t.Errorf("first part = %#v", m.parts[0])
	}
}

func TestExtractDocument_Errors(t *testing.T) {
	cases := []struct {
		name string
		m    *fakeModel
		kind llm.ErrorKind
	}{
		{"quota", &fakeModel{err: status.Error(codes.ResourceExhausted, "quota")}, llm.KindQuota},
		{"auth", &fakeModel{err: status.Error(codes.PermissionDenied, "denied")}, llm.KindAuth},
		{"model", &fakeModel{err: status.Error(codes.NotFound, "no model")}, llm.KindModel},
		{"no candidates", &fakeModel{resp: &genai.GenerateContentResponse{}}, llm.KindEmpty},
		{"prose", &fakeModel{resp: textResponse("cannot read")}, llm.KindMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := newTestClient(tc.m).ExtractDocument(context.Background(),
				llm.VisionRequest{Name: "n.png", MIMEType: "image/png", Data: []byte("png")})
			if llm.KindOf(err) != tc.kind {
				t.Fatalf("kind = %q, want %q (%v)", llm.KindOf(err), tc.kind, err)
			}
		})
	}
}
