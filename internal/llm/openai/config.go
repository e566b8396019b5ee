package openai

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the OpenAI client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // must accept image input, e.g. "gpt-4o"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

// Rasterizer renders the first page of a PDF to PNG. The chat API only takes images.
type Rasterizer interface {
	RasterizeFirstPageBytes(ctx context.Context, name, path string, data []byte) ([]byte, error)
}

type Client struct {
	cfg    Config
	http   *http.Client
	raster Rasterizer
	logger *slog.Logger
}

func NewClient(cfg Config, raster Rasterizer, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		raster: raster,
		logger: logger,
	}
}

// Name identifies the provider in logs and on records.
func (c *Client) Name() string { return "openai" }
