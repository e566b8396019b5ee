// Package gmail lists delivery-note attachments from a Gmail mailbox.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/fingerprint"
)

const user = "me"

type Config struct {
	Query          string // default "subject:delivery note"
	MaxResults     int64  // page size for search
	AttachmentsDir string // where attachments are written; empty keeps them in memory only
	Concurrency    int    // parallel message fetches, default 4
}

// mailAPI is the part of the Gmail service the source needs.
type mailAPI interface {
	Profile(ctx context.Context) (string, error)
	Search(ctx context.Context, query string, pageSize int64) ([]string, error)
	Message(ctx context.Context, id string) (*gmailapi.Message, error)
	Attachment(ctx context.Context, messageID, attachmentID string) (string, error)
}

// Source yields attachments of messages matching the query, oldest search hit first.
type Source struct {
	api    mailAPI
	cfg    Config
	logger *slog.Logger
}

func NewSource(svc *gmailapi.Service, cfg Config, logger *slog.Logger) *Source {
	return newSource(&service{svc: svc}, cfg, logger)
}

func newSource(api mailAPI, cfg Config, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Query == "" {
		cfg.Query = "subject:delivery note"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Source{api: api, cfg: cfg, logger: logger}
}

func (s *Source) Name() string { return "gmail:" + s.cfg.Query }

// CheckConnection verifies the credentials by reading the mailbox profile.
func (s *Source) CheckConnection(ctx context.Context) error {
	email, err := s.api.Profile(ctx)
	if err != nil {
		return common.SourceUnavailable("gmail connection check", err)
	}
	s.logger.Info("source.gmail.connected", "email", email)
	return nil
}

// List searches, fetches messages with bounded concurrency, and returns their
// attachments in search order. A message that cannot be fetched is skipped.
func (s *Source) List(ctx context.Context) ([]entity.SourceDocument, error) {
	if err := s.CheckConnection(ctx); err != nil {
		return nil, err
	}
	ids, err := s.api.Search(ctx, s.cfg.Query, s.cfg.MaxResults)
	if err != nil {
		return nil, common.SourceUnavailable("gmail search", err)
	}
	s.logger.Info("source.gmail.search", "query", s.cfg.Query, "messages", len(ids))

	if s.cfg.AttachmentsDir != "" {
		if err := os.MkdirAll(s.cfg.AttachmentsDir, 0o755); err != nil {
			return nil, common.SourceUnavailable("create attachments dir", err)
		}
	}

	perMsg := make([][]entity.SourceDocument, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			docs, err := s.fetch(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("source.gmail.message_failed", "message_id", id, "error", err)
				return nil
			}
			perMsg[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []entity.SourceDocument
	for _, docs := range perMsg {
		out = append(out, docs...)
	}
	s.logger.Info("source.gmail.listed", "documents", len(out))
	return out, nil
}

func (s *Source) fetch(ctx context.Context, id string) ([]entity.SourceDocument, error) {
	msg, err := s.api.Message(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	meta := metaFromHeaders(msg)

	var docs []entity.SourceDocument
	for _, ref := range collectAttachments(msg) {
		data, err := s.partData(ctx, id, ref.part)
		if err != nil {
			s.logger.Warn("source.gmail.attachment_failed", "message_id", id, "filename", ref.filename, "error", err)
			continue
		}
		name := attachmentName(id, ref.filename, ref.inline)
		doc := entity.SourceDocument{
			Name:        name,
			Data:        data,
			MIMEType:    ref.mimeType,
			Fingerprint: fingerprint.Of(data),
			Meta:        meta,
		}
		if s.cfg.AttachmentsDir != "" {
			p := filepath.Join(s.cfg.AttachmentsDir, name)
			if err := os.WriteFile(p, data, 0o644); err != nil {
				s.logger.Warn("source.gmail.save_failed", "path", p, "error", err)
			} else {
				doc.Path = p
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Source) partData(ctx context.Context, msgID string, p *gmailapi.MessagePart) ([]byte, error) {
	if p.Body == nil {
		return nil, fmt.Errorf("part has no body")
	}
	raw := p.Body.Data
	if raw == "" {
		if p.Body.AttachmentId == "" {
			return nil, fmt.Errorf("part has neither data nor attachment id")
		}
		var err error
		if raw, err = s.api.Attachment(ctx, msgID, p.Body.AttachmentId); err != nil {
			return nil, fmt.Errorf("get attachment: %w", err)
		}
	}
	return decodeBase64URL(raw)
}

type attachmentRef struct {
	part     *gmailapi.MessagePart
	filename string
	mimeType string
	inline   bool
}

// collectAttachments walks the MIME tree depth-first. Parts with a filename are
// attachments; unnamed image parts with an attachment id are inline images.
// Only supported formats are kept.
func collectAttachments(msg *gmailapi.Message) []attachmentRef {
	var refs []attachmentRef
	var walk func(parts []*gmailapi.MessagePart)
	walk = func(parts []*gmailapi.MessagePart) {
		for _, p := range parts {
			if p == nil {
				continue
			}
			mimeType := strings.ToLower(p.MimeType)
			switch {
			case p.Filename != "":
				if mt := constants.MIMEForName(p.Filename); mt != "" {
					refs = append(refs, attachmentRef{part: p, filename: p.Filename, mimeType: mt})
				}
			case strings.HasPrefix(mimeType, "image/") && p.Body != nil && p.Body.AttachmentId != "":
				if ext := constants.ExtForMIME(mimeType); ext != "" {
					name := fmt.Sprintf("image_%d.%s", len(refs), ext)
					refs = append(refs, attachmentRef{part: p, filename: name, mimeType: mimeType, inline: true})
				}
			}
			walk(p.Parts)
		}
	}
	if msg.Payload != nil {
		walk(msg.Payload.Parts)
	}
	return refs
}

// attachmentName makes names unique per message: <base>_<msgid8><ext>, or
// inline_<msgid8>_<base><ext> for inline images.
func attachmentName(msgID, filename string, inline bool) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	short := msgID
	if len(short) > 8 {
		short = short[:8]
	}
	if inline {
		return "inline_" + short + "_" + base + ext
	}
	return base + "_" + short + ext
}

func metaFromHeaders(msg *gmailapi.Message) entity.OriginMeta {
	meta := entity.OriginMeta{MessageID: msg.Id}
	if msg.Payload == nil {
		return meta
	}
	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			meta.Sender = h.Value
		case "subject":
			meta.Subject = h.Value
		case "date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				meta.Date = t
			}
		}
	}
	if meta.Date.IsZero() && msg.InternalDate > 0 {
		meta.Date = time.UnixMilli(msg.InternalDate).UTC()
	}
	return meta
}

func decodeBase64URL(s string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// service adapts *gmailapi.Service to mailAPI.
type service struct {
	svc *gmailapi.Service
}

func (a *service) Profile(ctx context.Context) (string, error) {
	p, err := a.svc.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return p.EmailAddress, nil
}

func (a *service) Search(ctx context.Context, query string, pageSize int64) ([]string, error) {
	var ids []string
	err := a.svc.Users.Messages.List(user).Q(query).MaxResults(pageSize).Pages(ctx, func(r *gmailapi.ListMessagesResponse) error {
		for _, m := range r.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	})
	return ids, err
}

func (a *service) Message(ctx context.Context, id string) (*gmailapi.Message, error) {
	return a.svc.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
}

func (a *service) Attachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	b, err := a.svc.Users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return b.Data, nil
}
