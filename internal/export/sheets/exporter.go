// Package sheets implements the spreadsheet exporter on the Google Sheets
// API. Each export lands on its own tab with a frozen header row.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/matchaops/cafeleads/internal/export"
	"github.com/matchaops/cafeleads/internal/leads"
)

var header = []any{
	"Name",
	"City",
	"Address",
	"Website",
	"Instagram Handle",
	"Instagram URL",
	"TikTok Handle",
	"TikTok URL",
	"Source",
	"Date Added",
	"Notes",
}

// Exporter writes lead rows to a Google Spreadsheet.
type Exporter struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New builds an Exporter authenticated with a service-account credentials file.
func New(ctx context.Context, spreadsheetID, credentialsPath string) (*Exporter, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("export.spreadsheet_id is required")
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("build sheets service: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Export creates the destination tab (reusing it when it already exists) and
// writes the header plus one row per lead.
func (e *Exporter) Export(ctx context.Context, destination string, rows []leads.Lead) error {
	if err := e.ensureTab(ctx, destination); err != nil {
		return err
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, header)
	for _, l := range rows {
		values = append(values, leadRow(l))
	}

	_, err := e.svc.Spreadsheets.Values.
		Update(e.spreadsheetID, fmt.Sprintf("'%s'!A1", destination), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write rows to %q: %w", destination, err)
	}
	return nil
}

func (e *Exporter) ensureTab(ctx context.Context, title string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
			},
		}},
	}
	_, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do()
	if err == nil {
		return nil
	}
	// A tab of the same name from an earlier export is fine to append onto.
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && strings.Contains(gerr.Message, "already exists") {
		return nil
	}
	return fmt.Errorf("create tab %q: %w", title, err)
}

func leadRow(l leads.Lead) []any {
	instagramURL := ""
	if l.InstagramHandle != "" {
		instagramURL = "https://www.instagram.com/" + l.InstagramHandle + "/"
	}
	tiktokURL := ""
	if l.TikTokHandle != "" {
		tiktokURL = "https://www.tiktok.com/@" + l.TikTokHandle
	}
	created := ""
	if !l.CreatedAt.IsZero() {
		created = l.CreatedAt.Format("2006-01-02")
	}
	return []any{
		l.Name,
		l.City,
		l.Address,
		l.Website,
		l.InstagramHandle,
		instagramURL,
		l.TikTokHandle,
		tiktokURL,
		export.SourceLabel(l.Source),
		created,
		l.Notes,
	}
}
