package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/repo"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ExportUsecase renders a group's full alert log for download.
type ExportUsecase struct {
	config repo.ConfigRepo
	logs   repo.AlertLogRepo
}

// NewExportUsecase creates an export usecase.
func NewExportUsecase(config repo.ConfigRepo, logs repo.AlertLogRepo) *ExportUsecase {
	return &ExportUsecase{config: config, logs: logs}
}

// jsonExport is the JSON download envelope.
type jsonExport struct {
	Group      *domain.MonitoredGroup `json:"group"`
	Logs       []*domain.AlertEntry   `json:"logs"`
	ExportDate time.Time              `json:"exportDate"`
	TotalLogs  int                    `json:"totalLogs"`
}

// Export serializes the group's log. JSON wraps the group metadata,
// the full log and the export time. CSV emits the fixed
// "Fecha,Mensaje,Usuario,Tarifa" layout with commas inside free-text
// fields folded to semicolons; the format is deterministic but lossy
// and does not attempt quote escaping. Returns the payload and its
// content type, or domain.ErrGroupNotFound for unmonitored ids.
func (uc *ExportUsecase) Export(ctx context.Context, groupID, format string) ([]byte, string, error) {
	group, err := uc.config.GetGroup(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	if group == nil {
		return nil, "", domain.ErrGroupNotFound
	}

	entries, err := uc.logs.ReadAll(ctx, groupID)
	if err != nil {
		return nil, "", fmt.Errorf("read log for %s: %w", groupID, err)
	}

	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(jsonExport{
			Group:      group,
			Logs:       entries,
			ExportDate: time.Now(),
			TotalLogs:  len(entries),
		}, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal export: %w", err)
		}
		return payload, "application/json", nil

	case FormatCSV:
		var b strings.Builder
		b.WriteString("Fecha,Mensaje,Usuario,Tarifa\n")
		for _, e := range entries {
			date := e.Timestamp.Format("2006-01-02 15:04:05")
			message := strings.ReplaceAll(e.Text, ",", ";")
			user := strings.ReplaceAll(e.Contact, ",", ";")
			fmt.Fprintf(&b, "%s,\"%s\",\"%s\",\"\"\n", date, message, user)
		}
		return []byte(b.String()), "text/csv", nil

	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}
