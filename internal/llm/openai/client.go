package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/llm"
)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractDocument implements llm.VisionExtractor using chat/completions with an inline image.
// PDFs are rasterized to their first page. When the model answers in prose instead of JSON,
// a second text-only call asks it to structure its own answer.
func (c *Client) ExtractDocument(ctx context.Context, req llm.VisionRequest) (entity.ExtractionResult, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.vision.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"name", req.Name,
		"mime", req.MIMEType,
		"bytes", len(req.Data),
	)

	if c.cfg.APIKey == "" {
		c.logger.Error("llm.vision.missing_api_key", "req_id", rid)
		return entity.ExtractionResult{}, nil, &llm.ProviderError{Provider: c.Name(), Kind: llm.KindAuth, Err: errors.New("OPENAI_API_KEY not set")}
	}

	img, mimeType, err := c.image(ctx, req)
	if err != nil {
		c.logger.Error("llm.vision.prepare_failed", "req_id", rid, "error", err)
		return entity.ExtractionResult{}, nil, err
	}

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt() + "\n\nJSON Schema:\n" + mustJSON(llm.BuildDeliveryNoteSchema())},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": llm.BuildUserPrompt(req)},
				{"type": "image_url", "image_url": map[string]any{"url": llm.DataURL(mimeType, img)}},
			}},
		},
	}

	content, err := c.complete(ctx, rid, body)
	if err != nil {
		return entity.ExtractionResult{}, nil, err
	}

	if _, ok := llm.LocateJSON(content); !ok && strings.TrimSpace(content) != "" {
		c.logger.Warn("llm.vision.no_json", "req_id", rid, "content_len", len(content))
		content, err = c.structure(ctx, rid, content)
		if err != nil {
			return entity.ExtractionResult{}, nil, err
		}
	}

	out, raw, err := llm.DecodeResult(c.Name(), content)
	if err != nil {
		c.logger.Error("llm.vision.decode_failed",
			"req_id", rid, "error", err, "kind", llm.KindOf(err),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractionResult{}, raw, err
	}
	out.Method = c.Name() + ":" + c.cfg.Model

	c.logger.Info("llm.vision.ok",
		"req_id", rid,
		"sender", out.Sender,
		"date", out.Date,
		"items", len(out.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, raw, nil
}

// structure asks for JSON from free text a previous call returned.
func (c *Client) structure(ctx context.Context, rid, text string) (string, error) {
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildStructuringPrompt(text)},
		},
	}
	return c.complete(ctx, rid, body)
}

func (c *Client) complete(ctx context.Context, rid string, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body,
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}, c.logger)
	if err != nil {
		kind := llm.KindTransport
		var se *llm.StatusError
		switch {
		case errors.As(err, &se):
			kind = llm.ClassifyHTTP(se.Status, se.Body)
		case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
			kind = llm.KindTimeout
		}
		switch kind {
		case llm.KindQuota:
			c.logger.Error("llm.vision.quota_exceeded", "req_id", rid, "status", status,
				"hint", "check billing details or upgrade the plan")
		case llm.KindModel:
			c.logger.Error("llm.vision.model_not_found", "req_id", rid, "model", c.cfg.Model,
				"hint", "the configured model may not exist or may not accept images")
		default:
			c.logger.Error("llm.vision.http_error", "req_id", rid, "status", status, "error", err)
		}
		return "", &llm.ProviderError{Provider: c.Name(), Kind: kind, Status: status, Err: err}
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.vision.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.KindMalformed, Status: status, Err: fmt.Errorf("decode openai response: %w", err)}
	}
	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		c.logger.Error("llm.vision.no_choices", "req_id", rid, "raw_bytes", len(raw))
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.KindEmpty, Status: status, Err: errors.New("no content in openai response")}
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

// MaxPDFPages reports that only page 1 of a PDF is rasterized and sent.
func (c *Client) MaxPDFPages() int { return 1 }

// image returns the bytes and MIME type to attach.
func (c *Client) image(ctx context.Context, req llm.VisionRequest) ([]byte, string, error) {
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = constants.MIMEForName(req.Name)
	}
	switch constants.FormatForMIME(mimeType) {
	case constants.IMAGE:
		if !llm.FitsVisionLimit(req.Data) {
			return nil, "", &llm.ProviderError{Provider: c.Name(), Kind: llm.KindMalformed, Err: fmt.Errorf("image exceeds %d MB", constants.MaxVisionMBDefault)}
		}
		return req.Data, mimeType, nil
	case constants.PDF:
		if c.raster == nil {
			return nil, "", &llm.ProviderError{Provider: c.Name(), Kind: llm.KindMalformed, Err: errors.New("pdf input needs a rasterizer")}
		}
		png, err := c.raster.RasterizeFirstPageBytes(ctx, req.Name, req.Path, req.Data)
		if err != nil {
			return nil, "", &llm.ProviderError{Provider: c.Name(), Kind: llm.KindMalformed, Err: fmt.Errorf("rasterize pdf: %w", err)}
		}
		return png, "image/png", nil
	default:
		return nil, "", &llm.ProviderError{Provider: c.Name(), Kind: llm.KindMalformed, Err: fmt.Errorf("unsupported mime type %q", mimeType)}
	}
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
