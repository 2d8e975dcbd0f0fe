package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/groupwatch/internal/biz/domain"
)

func exportFixture(t *testing.T) (*ExportUsecase, *mockAlertLogRepo) {
	t.Helper()
	config := newMockConfigRepo()
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	logs := newMockAlertLogRepo()

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	entries := []*domain.AlertEntry{
		{
			Timestamp:     base,
			GroupID:       "g1",
			GroupName:     "Drivers",
			Contact:       "Alice",
			ContactNumber: "447700900001@c.us",
			Text:          "fare £50, airport run",
			AlertType:     domain.AlertTypeKeyword,
			MediaType:     domain.MsgTypeChat,
			KeywordsFound: []string{"fare", "£"},
		},
		{
			Timestamp:     base.Add(time.Minute),
			GroupID:       "g1",
			GroupName:     "Drivers",
			Contact:       "Bob, the driver",
			ContactNumber: "447700900002@c.us",
			Text:          "tarifa 30",
			AlertType:     domain.AlertTypeKeyword,
			MediaType:     domain.MsgTypeChat,
			KeywordsFound: []string{"tarifa"},
		},
	}
	for _, e := range entries {
		if err := logs.Append(context.Background(), "g1", e, 0); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return NewExportUsecase(config, logs), logs
}

// The JSON export round-trips: parsing it reconstructs the same entry
// set the store returns.
func TestExportJSONRoundTrip(t *testing.T) {
	uc, logs := exportFixture(t)

	payload, contentType, err := uc.Export(context.Background(), "g1", FormatJSON)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}

	var parsed struct {
		Group     *domain.MonitoredGroup `json:"group"`
		Logs      []*domain.AlertEntry   `json:"logs"`
		TotalLogs int                    `json:"totalLogs"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if parsed.Group == nil || parsed.Group.ID != "g1" {
		t.Fatalf("group metadata missing: %+v", parsed.Group)
	}

	stored, _ := logs.ReadAll(context.Background(), "g1")
	if parsed.TotalLogs != len(stored) || len(parsed.Logs) != len(stored) {
		t.Fatalf("exported %d logs, store has %d", len(parsed.Logs), len(stored))
	}
	for i, e := range parsed.Logs {
		want := stored[i]
		if e.Text != want.Text || e.Contact != want.Contact ||
			e.AlertType != want.AlertType || !e.Timestamp.Equal(want.Timestamp) {
			t.Errorf("entry %d mismatch:\n got %+v\nwant %+v", i, e, want)
		}
		if len(e.KeywordsFound) != len(want.KeywordsFound) {
			t.Errorf("entry %d keywords = %v, want %v", i, e.KeywordsFound, want.KeywordsFound)
		}
	}
}

func TestExportCSV(t *testing.T) {
	uc, _ := exportFixture(t)

	payload, contentType, err := uc.Export(context.Background(), "g1", FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if contentType != "text/csv" {
		t.Errorf("content type = %q", contentType)
	}

	lines := strings.Split(strings.TrimRight(string(payload), "\n"), "\n")
	if lines[0] != "Fecha,Mensaje,Usuario,Tarifa" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}

	// Commas inside free text are folded to semicolons to keep the
	// columns aligned; the format is deliberately lossy.
	if !strings.Contains(lines[1], "fare £50; airport run") {
		t.Errorf("row 1 commas not folded: %q", lines[1])
	}
	if !strings.Contains(lines[2], "Bob; the driver") {
		t.Errorf("row 2 commas not folded: %q", lines[2])
	}
}

func TestExportUnknownGroup(t *testing.T) {
	uc, _ := exportFixture(t)

	_, _, err := uc.Export(context.Background(), "missing", FormatJSON)
	if !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("err = %v, want ErrGroupNotFound", err)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	uc, _ := exportFixture(t)

	if _, _, err := uc.Export(context.Background(), "g1", "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
