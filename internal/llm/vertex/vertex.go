package vertex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/llm"
)

// Config for the Gemini client on Vertex AI.
type Config struct {
	ProjectID string
	Region    string // default us-central1
	Model     string // default gemini-1.5-pro
}

// generator is the slice of *genai.GenerativeModel we call.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements llm.VisionExtractor with Gemini. PDFs and images are sent inline.
type Client struct {
	model  generator
	name   string
	base   *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("vertex: project id cannot be empty")
	}
	if cfg.Region == "" {
		cfg.Region = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := base.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.BuildSystemPrompt())},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &Client{model: model, name: cfg.Model, base: base, logger: logger}, nil
}

func (c *Client) Name() string { return "vertex" }

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

// ExtractDocument implements llm.VisionExtractor.
func (c *Client) ExtractDocument(ctx context.Context, req llm.VisionRequest) (entity.ExtractionResult, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = constants.MIMEForName(req.Name)
	}
	if constants.FormatForMIME(mimeType) == "" {
		return entity.ExtractionResult{}, nil, &llm.ProviderError{Provider: c.Name(), Kind: llm.KindMalformed, Err: fmt.Errorf("unsupported mime type %q", mimeType)}
	}
	if !llm.FitsVisionLimit(req.Data) {
		return entity.ExtractionResult{}, nil, &llm.ProviderError{Provider: c.Name(), Kind: llm.KindMalformed, Err: fmt.Errorf("document exceeds %d MB", constants.MaxVisionMBDefault)}
	}

	c.logger.Info("llm.vision.start", "req_id", rid, "provider", c.Name(), "model", c.name, "name", req.Name, "mime", mimeType, "bytes", len(req.Data))

	resp, err := c.model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: req.Data},
		genai.Text(llm.BuildUserPrompt(req)),
	)
	if err != nil {
		kind := llm.ClassifyGRPC(err)
		switch kind {
		case llm.KindQuota:
			c.logger.Error("llm.vision.quota_exceeded", "req_id", rid, "provider", c.Name(), "error", err)
		case llm.KindModel:
			c.logger.Error("llm.vision.model_not_found", "req_id", rid, "model", c.name, "error", err)
		default:
			c.logger.Error("llm.vision.rpc_error", "req_id", rid, "error", err, "kind", kind,
				"elapsed_ms", time.Since(start).Milliseconds())
		}
		return entity.ExtractionResult{}, nil, &llm.ProviderError{Provider: c.Name(), Kind: kind, Err: err}
	}

	content, err := responseText(resp)
	if err != nil {
		c.logger.Error("llm.vision.no_candidates", "req_id", rid, "error", err)
		return entity.ExtractionResult{}, nil, &llm.ProviderError{Provider: c.Name(), Kind: llm.KindEmpty, Err: err}
	}

	out, raw, err := llm.DecodeResult(c.Name(), content)
	if err != nil {
		c.logger.Error("llm.vision.decode_failed", "req_id", rid, "error", err, "kind", llm.KindOf(err),
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractionResult{}, raw, err
	}
	out.Method = c.Name() + ":" + c.name

	c.logger.Info("llm.vision.ok",
		"req_id", rid,
		"sender", out.Sender,
		"date", out.Date,
		"items", len(out.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, raw, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("empty candidate text")
	}
	return b.String(), nil
}
