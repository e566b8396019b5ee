package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

// Config holds all application configuration
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Gmail      GmailConfig      `yaml:"gmail"`
	Extraction ExtractionConfig `yaml:"extraction"`
	OCR        OCRConfig        `yaml:"ocr"`
	LLM        LLMConfig        `yaml:"llm"`
	Vertex     VertexConfig     `yaml:"vertex"`
	Index      IndexConfig      `yaml:"index"`
	Output     OutputConfig     `yaml:"output"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// SourceConfig selects where documents come from.
type SourceConfig struct {
	Local         bool          `yaml:"local"`
	LocalDir      string        `yaml:"local_dir"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// GmailConfig holds mailbox search and OAuth settings.
type GmailConfig struct {
	CredentialsFile  string `yaml:"credentials_file"`
	TokenFile        string `yaml:"token_file"`
	Query            string `yaml:"query"`
	MaxResults       int64  `yaml:"max_results"`
	AttachmentsDir   string `yaml:"attachments_dir"`
	FetchConcurrency int    `yaml:"fetch_concurrency"`
}

// ExtractionConfig drives the strategy selector.
type ExtractionConfig struct {
	Provider       string        `yaml:"provider"` // openai | vertex
	ForceOCR       bool          `yaml:"force_ocr"`
	AllowFallback  bool          `yaml:"allow_fallback"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	VisionRPS      float64       `yaml:"vision_rps"`
	DateOrder      string        `yaml:"date_order"` // DMY | MDY | "" (leave ambiguous dates unparsed)
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string `yaml:"tesseract"`
	Pdftotext     string `yaml:"pdftotext"`
	Pdftoppm      string `yaml:"pdftoppm"`
	TesseractLang string `yaml:"lang"`
	TessdataDir   string `yaml:"tessdata_dir"`
	DPI           int    `yaml:"dpi"`
	MaxPages      int    `yaml:"max_pages"`
	TSVConfidence bool   `yaml:"tsv_confidence"` // second tesseract pass for word confidences
}

// LLMConfig holds OpenAI-related configuration
type LLMConfig struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// VertexConfig holds Gemini-on-Vertex settings.
type VertexConfig struct {
	ProjectID string `yaml:"project_id"`
	Region    string `yaml:"region"`
	Model     string `yaml:"model"`
}

// IndexConfig locates the fingerprint index.
type IndexConfig struct {
	DBPath              string `yaml:"db_path"`
	FirestoreProject    string `yaml:"firestore_project"`
	FirestoreCollection string `yaml:"firestore_collection"`
}

// OutputConfig selects sinks and write semantics.
type OutputConfig struct {
	CSVPath           string `yaml:"csv_path"`
	XLSXPath          string `yaml:"xlsx_path"`
	SheetID           string `yaml:"sheet_id"`
	SheetName         string `yaml:"sheet_name"`
	SheetsCredentials string `yaml:"sheets_credentials"`
	Mode              string `yaml:"mode"`
}

// ArchiveConfig controls document retention after processing.
type ArchiveConfig struct {
	KeepAttachments bool   `yaml:"keep_attachments"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			LocalDir:      "data/notes",
			WatchDebounce: 500 * time.Millisecond,
		},
		Gmail: GmailConfig{
			CredentialsFile:  "credentials/credentials.json",
			TokenFile:        "credentials/token.json",
			Query:            "subject:delivery note",
			MaxResults:       100,
			AttachmentsDir:   "data/attachments",
			FetchConcurrency: 4,
		},
		Extraction: ExtractionConfig{
			Provider:       "openai",
			AllowFallback:  true,
			AttemptTimeout: 60 * time.Second,
			VisionRPS:      1,
		},
		OCR: OCRConfig{
			TesseractLang: "eng",
			DPI:           300,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o",
			BaseURL:     "https://api.openai.com/v1",
			Temperature: 0,
			Timeout:     45 * time.Second,
		},
		Vertex: VertexConfig{
			Region: "us-central1",
			Model:  "gemini-1.5-pro",
		},
		Index: IndexConfig{
			DBPath:              "data/output/deliverynotes.db",
			FirestoreCollection: "delivery_note_fingerprints",
		},
		Output: OutputConfig{
			CSVPath:           "data/output/delivery_notes.csv",
			SheetName:         "DeliveryNotes",
			SheetsCredentials: "credentials/service_account.json",
			Mode:              constants.ModeAppend,
		},
		Archive: ArchiveConfig{
			KeepAttachments: true,
			Prefix:          "delivery-notes/",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file, a .env
// file and finally environment variables. CLI flags are applied by the caller.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError(CodeConfig, "parse config file", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError(CodeConfig, "load .env", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Source.LocalDir = getEnv("DN_LOCAL_DIR", c.Source.LocalDir)

	c.Gmail.CredentialsFile = getEnv("GMAIL_CREDENTIALS", c.Gmail.CredentialsFile)
	c.Gmail.TokenFile = getEnv("GMAIL_TOKEN_FILE", c.Gmail.TokenFile)
	c.Gmail.Query = getEnv("GMAIL_SEARCH_QUERY", c.Gmail.Query)
	c.Gmail.AttachmentsDir = getEnv("DN_ATTACHMENTS_DIR", c.Gmail.AttachmentsDir)
	c.Gmail.FetchConcurrency = getEnvAsInt("GMAIL_FETCH_CONCURRENCY", c.Gmail.FetchConcurrency)

	c.Extraction.Provider = getEnv("DN_VISION_PROVIDER", c.Extraction.Provider)
	c.Extraction.AttemptTimeout = getEnvAsDuration("DN_ATTEMPT_TIMEOUT", c.Extraction.AttemptTimeout)
	c.Extraction.VisionRPS = getEnvAsFloat("DN_VISION_RPS", c.Extraction.VisionRPS)
	c.Extraction.DateOrder = getEnv("DN_DATE_ORDER", c.Extraction.DateOrder)

	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)

	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)

	c.Vertex.ProjectID = getEnv("GOOGLE_CLOUD_PROJECT", c.Vertex.ProjectID)
	c.Vertex.Region = getEnv("VERTEX_REGION", c.Vertex.Region)
	c.Vertex.Model = getEnv("VERTEX_MODEL", c.Vertex.Model)

	c.Index.DBPath = getEnv("DN_INDEX_DB", c.Index.DBPath)
	c.Index.FirestoreProject = getEnv("FIRESTORE_PROJECT", c.Index.FirestoreProject)
	c.Index.FirestoreCollection = getEnv("FIRESTORE_COLLECTION", c.Index.FirestoreCollection)

	c.Output.SheetID = getEnv("SHEET_ID", c.Output.SheetID)
	c.Output.SheetsCredentials = getEnv("SHEETS_CREDENTIALS", c.Output.SheetsCredentials)
	c.Output.Mode = getEnv("DN_OUTPUT_MODE", c.Output.Mode)

	c.Archive.Bucket = getEnv("DN_ARCHIVE_BUCKET", c.Archive.Bucket)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks cross-field constraints after flags have been applied.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("output.mode", c.Output.Mode, Required, OneOf(constants.ModeAppend, constants.ModeOverwrite))
	v.Field("extraction.provider", c.Extraction.Provider, OneOf("openai", "vertex"))
	v.Field("extraction.date_order", strings.ToUpper(c.Extraction.DateOrder), OneOf("", "DMY", "MDY"))
	v.Field("extraction.attempt_timeout", float64(c.Extraction.AttemptTimeout), Positive)
	v.Check(c.Output.CSVPath != "" || c.Output.XLSXPath != "" || c.Output.SheetID != "",
		"output", "", "at least one of csv_path, xlsx_path, sheet_id is required")
	if c.Source.Local {
		v.Field("source.local_dir", c.Source.LocalDir, Required)
	} else {
		v.Field("gmail.credentials_file", c.Gmail.CredentialsFile, Required)
		v.Check(!c.Source.Watch, "source.watch", c.Source.Watch, "watch mode requires a local source")
	}
	if !c.Extraction.ForceOCR {
		switch c.Extraction.Provider {
		case "openai":
			v.Check(c.LLM.APIKey != "" || c.Extraction.AllowFallback, "OPENAI_API_KEY", "", "is required when fallback is disabled")
		case "vertex":
			v.Field("vertex.project_id", c.Vertex.ProjectID, Required)
		}
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// String renders a redacted summary for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("local=%t provider=%s force_ocr=%t fallback=%t mode=%s csv=%q xlsx=%q sheet=%q index=%q",
		c.Source.Local, c.Extraction.Provider, c.Extraction.ForceOCR, c.Extraction.AllowFallback,
		c.Output.Mode, c.Output.CSVPath, c.Output.XLSXPath, c.Output.SheetID, c.Index.DBPath)
}
