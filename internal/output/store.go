package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ixra/ixra-api/internal/core"
	"github.com/ixra/ixra-api/internal/core/store"
)

type rateLimitJSON struct {
	Key     string    `json:"key"`
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
	Expired bool      `json:"expired"`
}

// RateLimits renders stored quota windows as seen at now.
func RateLimits(format Format, records []store.RateLimitRecord, now time.Time) (string, error) {
	if format == FormatJSON {
		rows := make([]rateLimitJSON, 0, len(records))
		for _, r := range records {
			entry := r.Entry
			rows = append(rows, rateLimitJSON{Key: r.Key, Count: entry.Count, ResetAt: entry.ResetAt, Expired: entry.Expired(now)})
		}
		return renderJSON(rows)
	}

	t := newTable("Rate limits", table.Row{"Key", "Count", "Resets", "State"})
	for _, r := range records {
		entry := r.Entry
		state := "active"
		if entry.Expired(now) {
			state = "expired"
		}
		t.AppendRow(table.Row{r.Key, entry.Count, entry.ResetAt.UTC().Format(time.RFC3339), state})
	}
	if len(records) == 0 {
		t.AppendRow(table.Row{"(no stored rate limit state)", "", "", ""})
	}
	return render(format, t), nil
}

// ResetResult renders the outcome of a rate limit reset.
func ResetResult(format Format, matched int, deleted int64, dryRun bool) (string, error) {
	if format == FormatJSON {
		return renderJSON(map[string]any{"matched": matched, "deleted": deleted, "dry_run": dryRun})
	}
	if dryRun {
		return fmt.Sprintf("Would delete %d rate limit entr(ies)", matched), nil
	}
	return fmt.Sprintf("Deleted %d/%d rate limit entr(ies)", deleted, matched), nil
}

// Leads renders captured contact submissions, newest first.
func Leads(format Format, leads []core.Lead) (string, error) {
	if format == FormatJSON {
		if leads == nil {
			leads = []core.Lead{}
		}
		return renderJSON(leads)
	}

	t := newTable("Leads", table.Row{"Received", "Name", "Email", "Company", "Service", "Simulations", "Message"})
	for _, l := range leads {
		t.AppendRow(table.Row{
			l.CreatedAt.UTC().Format(time.RFC3339),
			l.Name,
			l.Email,
			l.Company,
			l.ServiceType,
			strings.Join(l.SimulationTypes, ", "),
			truncate(l.Message, 60),
		})
	}
	if len(leads) == 0 {
		t.AppendRow(table.Row{"(no leads)", "", "", "", "", "", ""})
	}
	return render(format, t), nil
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
