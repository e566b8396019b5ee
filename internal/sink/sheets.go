package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// sheetsAPI is the part of the Sheets service the sink needs.
type sheetsAPI interface {
	SheetID(ctx context.Context, spreadsheetID, title string) (id int64, found bool, err error)
	AddSheet(ctx context.Context, spreadsheetID, title string) (int64, error)
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
	BoldRow(ctx context.Context, spreadsheetID string, sheetID, row int64) error
}

// SheetsSink appends rows to a Google Sheets worksheet.
type SheetsSink struct {
	api           sheetsAPI
	spreadsheetID string
	sheet         string
	mode          string
	logger        *slog.Logger
}

// NewSheetsSink authenticates with a service-account key file.
func NewSheetsSink(ctx context.Context, credentialsFile, spreadsheetID, sheet, mode string, logger *slog.Logger) (*SheetsSink, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, common.SinkUnavailable("read sheets credentials", err)
	}
	config, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, common.SinkUnavailable("parse sheets credentials", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, common.SinkUnavailable("create sheets service", err)
	}
	return newSheetsSink(&sheetsService{svc: svc}, spreadsheetID, sheet, mode, logger), nil
}

func newSheetsSink(api sheetsAPI, spreadsheetID, sheet, mode string, logger *slog.Logger) *SheetsSink {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = DefaultSheet
	}
	if mode == "" {
		mode = constants.ModeAppend
	}
	return &SheetsSink{api: api, spreadsheetID: spreadsheetID, sheet: sheet, mode: mode, logger: logger}
}

func (s *SheetsSink) Name() string { return "sheets:" + s.spreadsheetID }

func (s *SheetsSink) rng(a1 string) string {
	return fmt.Sprintf("'%s'!%s", s.sheet, a1)
}

// Open creates the worksheet when missing, clears it in overwrite mode, and
// writes a bold header row when the sheet is empty.
func (s *SheetsSink) Open(ctx context.Context) error {
	sheetID, found, err := s.api.SheetID(ctx, s.spreadsheetID, s.sheet)
	if err != nil {
		return common.SinkUnavailable("read spreadsheet", err)
	}
	if !found {
		if sheetID, err = s.api.AddSheet(ctx, s.spreadsheetID, s.sheet); err != nil {
			return common.SinkUnavailable("create worksheet", err)
		}
		s.logger.Info("sink.sheets.worksheet_created", "spreadsheet_id", s.spreadsheetID, "sheet", s.sheet)
	}

	if s.mode == constants.ModeOverwrite {
		if err := s.api.Clear(ctx, s.spreadsheetID, s.rng("A:H")); err != nil {
			return common.SinkUnavailable("clear worksheet", err)
		}
	}

	head, err := s.api.Get(ctx, s.spreadsheetID, s.rng("A1:H1"))
	if err != nil {
		return common.SinkUnavailable("read header", err)
	}
	if len(head) == 0 {
		if err := s.api.Append(ctx, s.spreadsheetID, s.rng("A1"), [][]any{toAny(Header)}); err != nil {
			return common.SinkUnavailable("write header", err)
		}
		if err := s.api.BoldRow(ctx, s.spreadsheetID, sheetID, 0); err != nil {
			s.logger.Warn("sink.sheets.header_format_failed", "error", err)
		}
	}
	s.logger.Info("sink.sheets.open", "spreadsheet_id", s.spreadsheetID, "sheet", s.sheet, "mode", s.mode)
	return nil
}

func (s *SheetsSink) Write(ctx context.Context, recs []entity.DeliveryRecord) error {
	rows := Rows(recs)
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = toAny(r)
	}
	if err := s.api.Append(ctx, s.spreadsheetID, s.rng("A1"), values); err != nil {
		return common.SinkWriteFailed("append rows", err)
	}
	s.logger.Debug("sink.sheets.write", "spreadsheet_id", s.spreadsheetID, "rows", len(rows))
	return nil
}

func (s *SheetsSink) Close() error { return nil }

// sheetsService adapts *sheets.Service to sheetsAPI.
type sheetsService struct {
	svc *sheets.Service
}

func (a *sheetsService) SheetID(ctx context.Context, spreadsheetID, title string) (int64, bool, error) {
	ss, err := a.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

func (a *sheetsService) AddSheet(ctx context.Context, spreadsheetID, title string) (int64, error) {
	resp, err := a.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("add sheet: empty reply")
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

func (a *sheetsService) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	vr, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for _, row := range vr.Values {
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out, nil
}

func (a *sheetsService) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := a.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (a *sheetsService) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (a *sheetsService) BoldRow(ctx context.Context, spreadsheetID string, sheetID, row int64) error {
	_, err := a.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:         sheetID,
					StartRowIndex:   row,
					EndRowIndex:     row + 1,
					ForceSendFields: []string{"SheetId", "StartRowIndex"},
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
				},
				Fields: "userEnteredFormat.textFormat.bold",
			},
		}},
	}).Context(ctx).Do()
	return err
}
