package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/fingerprint"
)

type fakeMail struct {
	mu          sync.Mutex
	profileErr  error
	ids         []string
	messages    map[string]*gmailapi.Message
	attachments map[string]string
	fetched     []string
}

func (f *fakeMail) Profile(context.Context) (string, error) { return "ops@example.test", f.profileErr }

func (f *fakeMail) Search(context.Context, string, int64) ([]string, error) { return f.ids, nil }

func (f *fakeMail) Message(_ context.Context, id string) (*gmailapi.Message, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, errors.New("404")
	}
	return m, nil
}

func (f *fakeMail) Attachment(_ context.Context, _, attID string) (string, error) {
	d, ok := f.attachments[attID]
	if !ok {
		return "", errors.New("no attachment")
	}
	return d, nil
}

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func message(id string, parts ...*gmailapi.MessagePart) *gmailapi.Message {
	return &gmailapi.Message{
		Id: id,
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "Acme Dispatch <dispatch@acme.test>"},
				{Name: "Subject", Value: "Delivery note 1001"},
				{Name: "Date", Value: "Wed, 03 Apr 2024 09:15:00 +0100"},
			},
			Parts: parts,
		},
	}
}

func TestList_WalksPartsInOrder(t *testing.T) {
	api := &fakeMail{
		ids: []string{"msg0000001aaaa", "msg0000002bbbb", "missing"},
		messages: map[string]*gmailapi.Message{
			"msg0000001aaaa": message("msg0000001aaaa",
				&gmailapi.MessagePart{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("hello")}},
				&gmailapi.MessagePart{
					MimeType: "multipart/mixed",
					Parts: []*gmailapi.MessagePart{
						{Filename: "note.pdf", MimeType: "application/pdf", Body: &gmailapi.MessagePartBody{AttachmentId: "att-pdf"}},
						{Filename: "readme.docx", MimeType: "application/msword", Body: &gmailapi.MessagePartBody{AttachmentId: "att-doc"}},
						{MimeType: "image/png", Body: &gmailapi.MessagePartBody{AttachmentId: "att-png"}},
					},
				},
			),
			"msg0000002bbbb": message("msg0000002bbbb",
				&gmailapi.MessagePart{Filename: "scan.JPG", MimeType: "image/jpeg", Body: &gmailapi.MessagePartBody{Data: b64("jpeg-bytes")}},
			),
		},
		attachments: map[string]string{"att-pdf": b64("%PDF-1.4"), "att-png": b64("png-bytes")},
	}
	dir := t.TempDir()
	src := newSource(api, Config{AttachmentsDir: dir, Concurrency: 2}, nil)

	docs, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	names := []string{}
	for _, d := range docs {
		names = append(names, d.Name)
	}
	want := []string{"note_msg00000.pdf", "inline_msg00000_image_1.png", "scan_msg00000.JPG"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	pdf := docs[0]
	if string(pdf.Data) != "%PDF-1.4" || pdf.Fingerprint != fingerprint.Of([]byte("%PDF-1.4")) {
		t.Errorf("pdf doc = %+v", pdf)
	}
	if pdf.Meta.Sender != "Acme Dispatch <dispatch@acme.test>" || pdf.Meta.Date.IsZero() || pdf.Meta.MessageID != "msg0000001aaaa" {
		t.Errorf("meta = %+v", pdf.Meta)
	}
	if pdf.Path != filepath.Join(dir, "note_msg00000.pdf") {
		t.Errorf("path = %s", pdf.Path)
	}
	if b, err := os.ReadFile(pdf.Path); err != nil || string(b) != "%PDF-1.4" {
		t.Errorf("saved attachment = %q, %v", b, err)
	}
	if docs[2].MIMEType != "image/jpeg" {
		t.Errorf("mime = %s", docs[2].MIMEType)
	}
}

func TestList_ConnectionFailure(t *testing.T) {
	src := newSource(&fakeMail{profileErr: errors.New("invalid_grant")}, Config{}, nil)
	if _, err := src.List(context.Background()); !errors.Is(err, common.ErrSourceUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestAttachmentName(t *testing.T) {
	cases := []struct {
		id, file string
		inline   bool
		want     string
	}{
		{"18c2f0a9b7d1e2f3", "DN-1001.pdf", false, "DN-1001_18c2f0a9.pdf"},
		{"abc", "photo.png", false, "photo_abc.png"},
		{"18c2f0a9b7d1e2f3", "image_0.png", true, "inline_18c2f0a9_image_0.png"},
		{"18c2f0a9b7d1e2f3", "../../etc/x.pdf", false, "x_18c2f0a9.pdf"},
	}
	for _, tc := range cases {
		if got := attachmentName(tc.id, tc.file, tc.inline); got != tc.want {
			t.Errorf("attachmentName(%q, %q) = %q, want %q", tc.id, tc.file, got, tc.want)
		}
	}
}

func TestDecodeBase64URL_Unpadded(t *testing.T) {
	raw := base64.RawURLEncoding.EncodeToString([]byte("ab"))
	b, err := decodeBase64URL(raw)
	if err != nil || string(b) != "ab" {
		t.Fatalf("decode = %q, %v", b, err)
	}
}
