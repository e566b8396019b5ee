package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// CSVSink writes rows to a local CSV file.
type CSVSink struct {
	path   string
	mode   string
	f      *os.File
	w      *csv.Writer
	logger *slog.Logger
}

func NewCSVSink(path, mode string, logger *slog.Logger) *CSVSink {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = constants.ModeAppend
	}
	return &CSVSink{path: path, mode: mode, logger: logger}
}

func (s *CSVSink) Name() string { return "csv:" + s.path }

// Open creates or truncates the file per mode. The header is written when the
// file is new, empty, or overwritten.
func (s *CSVSink) Open(_ context.Context) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.SinkUnavailable("create output dir", err)
		}
	}
	flags := os.O_CREATE | os.O_WRONLY
	if s.mode == constants.ModeOverwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(s.path, flags, 0o644)
	if err != nil {
		return common.SinkUnavailable("open csv", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return common.SinkUnavailable("stat csv", err)
	}
	s.f = f
	s.w = csv.NewWriter(f)

	if st.Size() == 0 {
		if err := s.flush([][]string{Header}); err != nil {
			_ = f.Close()
			return common.SinkUnavailable("write csv header", err)
		}
	}
	s.logger.Info("sink.csv.open", "path", s.path, "mode", s.mode, "existing_bytes", st.Size())
	return nil
}

func (s *CSVSink) Write(_ context.Context, recs []entity.DeliveryRecord) error {
	if s.w == nil {
		return common.SinkWriteFailed("csv sink not open", nil)
	}
	rows := Rows(recs)
	if err := s.flush(rows); err != nil {
		return common.SinkWriteFailed("write csv rows", err)
	}
	s.logger.Debug("sink.csv.write", "path", s.path, "rows", len(rows))
	return nil
}

func (s *CSVSink) flush(rows [][]string) error {
	for _, r := range rows {
		if err := s.w.Write(r); err != nil {
			return err
		}
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	return s.f.Sync()
}

func (s *CSVSink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f, s.w = nil, nil
	if err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	return nil
}
