package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// DefaultSheet is the worksheet name used by the XLSX and Sheets sinks.
const DefaultSheet = "DeliveryNotes"

// XLSXSink keeps a workbook open for the run and saves it after every batch.
type XLSXSink struct {
	path   string
	mode   string
	sheet  string
	f      *excelize.File
	row    int // next empty row, 1-based
	logger *slog.Logger
}

func NewXLSXSink(path, mode, sheet string, logger *slog.Logger) *XLSXSink {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = constants.ModeAppend
	}
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSXSink{path: path, mode: mode, sheet: sheet, logger: logger}
}

func (s *XLSXSink) Name() string { return "xlsx:" + s.path }

func (s *XLSXSink) Open(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return common.SinkUnavailable("create output dir", err)
	}

	var f *excelize.File
	if s.mode == constants.ModeAppend {
		existing, err := excelize.OpenFile(s.path)
		switch {
		case err == nil:
			f = existing
		case errors.Is(err, fs.ErrNotExist):
		default:
			return common.SinkUnavailable("open xlsx", err)
		}
	}
	if f == nil {
		f = excelize.NewFile()
	}

	idx, err := f.GetSheetIndex(s.sheet)
	if err != nil {
		_ = f.Close()
		return common.SinkUnavailable("read xlsx", err)
	}
	if idx == -1 {
		if idx, err = f.NewSheet(s.sheet); err != nil {
			_ = f.Close()
			return common.SinkUnavailable("create worksheet", err)
		}
		// a fresh workbook carries an unused default sheet
		if s.sheet != "Sheet1" {
			if i, _ := f.GetSheetIndex("Sheet1"); i != -1 {
				_ = f.DeleteSheet("Sheet1")
				idx, _ = f.GetSheetIndex(s.sheet)
			}
		}
	}
	f.SetActiveSheet(idx)

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		_ = f.Close()
		return common.SinkUnavailable("read worksheet", err)
	}
	s.f = f
	s.row = len(rows) + 1
	if len(rows) == 0 {
		s.writeRow(Header)
		_ = f.SetColWidth(s.sheet, "A", "A", 28) // sender
		_ = f.SetColWidth(s.sheet, "B", "B", 48) // address
		_ = f.SetColWidth(s.sheet, "C", "C", 14) // date
		_ = f.SetColWidth(s.sheet, "D", "D", 40) // item
		_ = f.SetColWidth(s.sheet, "E", "F", 12) // qty, price
		_ = f.SetColWidth(s.sheet, "G", "H", 16) // flags
		if err := f.SaveAs(s.path); err != nil {
			return common.SinkUnavailable("save xlsx", err)
		}
	}
	s.logger.Info("sink.xlsx.open", "path", s.path, "mode", s.mode, "sheet", s.sheet, "next_row", s.row)
	return nil
}

func (s *XLSXSink) writeRow(values []string) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, s.row)
		_ = s.f.SetCellValue(s.sheet, cell, v)
	}
	s.row++
}

func (s *XLSXSink) Write(_ context.Context, recs []entity.DeliveryRecord) error {
	if s.f == nil {
		return common.SinkWriteFailed("xlsx sink not open", nil)
	}
	start := time.Now()
	first := s.row
	rows := Rows(recs)
	for _, r := range rows {
		s.writeRow(r)
	}
	if err := s.f.SaveAs(s.path); err != nil {
		// the rows stay in memory; rewind so a later batch does not leave a gap
		for r := first; r < s.row; r++ {
			_ = s.f.RemoveRow(s.sheet, first)
		}
		s.row = first
		return common.SinkWriteFailed("save xlsx", err)
	}
	s.logger.Debug("sink.xlsx.write",
		"path", s.path,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *XLSXSink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return fmt.Errorf("close xlsx: %w", err)
	}
	return nil
}
