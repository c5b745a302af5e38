package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ixra/ixra-api/internal/quote"
)

type quoteJSON struct {
	Selection              quote.Selection `json:"selection"`
	Status                 quote.Status    `json:"status"`
	Low                    *int64          `json:"low,omitempty"`
	High                   *int64          `json:"high,omitempty"`
	MinimumTurnaroundHours int             `json:"minimum_turnaround_hours,omitempty"`
}

// Quote renders one estimate.
func Quote(format Format, sel quote.Selection, est quote.Estimate) (string, error) {
	if format == FormatJSON {
		payload := quoteJSON{Selection: sel, Status: est.Status, MinimumTurnaroundHours: est.MinimumTurnaroundHours}
		if est.Priced() {
			low, high := est.Low.IntPart(), est.High.IntPart()
			payload.Low, payload.High = &low, &high
		}
		return renderJSON(payload)
	}

	t := newTable("Estimate", table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Service", sel.ServiceType})
	t.AppendRow(table.Row{"Build", sel.BuildType})
	t.AppendRow(table.Row{"Complexity", sel.Complexity})
	t.AppendRow(table.Row{"Depth", sel.Depth})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Estimate", EstimateLabel(est)})
	if est.MinimumTurnaroundHours > 0 {
		t.AppendRow(table.Row{"Minimum turnaround", fmt.Sprintf("%d hours", est.MinimumTurnaroundHours)})
	}
	return render(format, t), nil
}

// EstimateLabel is the human-readable price line for an estimate.
func EstimateLabel(est quote.Estimate) string {
	switch est.Status {
	case quote.StatusPriced:
		return fmt.Sprintf("$%s - $%s", est.Low.StringFixed(0), est.High.StringFixed(0))
	case quote.StatusCustomQuote:
		return "Custom quote"
	case quote.StatusConsultationRequired:
		return "Consultation required"
	default:
		return string(est.Status)
	}
}

// QuoteOptions renders the option catalog.
func QuoteOptions(format Format) (string, error) {
	if format == FormatJSON {
		return renderJSON(map[string]any{
			"services":     quote.Services(),
			"builds":       quote.Builds(),
			"complexities": quote.Complexities(),
			"depths":       quote.Depths(),
		})
	}

	t := newTable("Quote options", table.Row{"Group", "Value", "Label", "Factor", "Min hours", "Notes"})
	for _, s := range quote.Services() {
		t.AppendRow(table.Row{"service", s.Value, s.Label, "$" + s.BaseRate.String(), "", s.Description})
	}
	t.AppendSeparator()
	for _, b := range quote.Builds() {
		notes := ""
		if b.CustomQuote {
			notes = "custom quote"
		}
		t.AppendRow(table.Row{"build", b.Value, b.Label, "", "", notes})
	}
	t.AppendSeparator()
	for _, c := range quote.Complexities() {
		t.AppendRow(table.Row{"complexity", c.Value, c.Label, "x" + c.Multiplier.String(), c.MinHours, ""})
	}
	t.AppendSeparator()
	for _, d := range quote.Depths() {
		notes := ""
		if d.RequiresConsultation {
			notes = "consultation required"
		}
		t.AppendRow(table.Row{"depth", d.Value, d.Label, "x" + d.Multiplier.String(), d.MinHours, notes})
	}
	return render(format, t), nil
}
