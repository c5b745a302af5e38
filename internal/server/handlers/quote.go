package handlers

import (
	"net/http"
	"net/url"

	"github.com/ixra/ixra-api/internal/metrics"
	"github.com/ixra/ixra-api/internal/quote"
)

// QuoteResponse is the JSON body of GET /api/quote.
type QuoteResponse struct {
	Selection              quote.Selection `json:"selection"`
	Status                 quote.Status    `json:"status"`
	Currency               string          `json:"currency"`
	Low                    *int64          `json:"low,omitempty"`
	High                   *int64          `json:"high,omitempty"`
	MinimumTurnaroundHours int             `json:"minimum_turnaround_hours,omitempty"`
}

// QuoteHandler prices the selection given as query parameters
// serviceType, buildType, complexity, and depth.
func QuoteHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := quote.ParseSelection(
		queryParam(q, "serviceType", "service_type"),
		queryParam(q, "buildType", "build_type"),
		q.Get("complexity"),
		q.Get("depth"),
	)

	est, err := quote.Calculate(sel)
	if err != nil {
		metrics.RecordQuote("invalid")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.RecordQuote(string(est.Status))

	resp := QuoteResponse{
		Selection:              sel,
		Status:                 est.Status,
		Currency:               "USD",
		MinimumTurnaroundHours: est.MinimumTurnaroundHours,
	}
	if est.Priced() {
		low, high := est.Low.IntPart(), est.High.IntPart()
		resp.Low, resp.High = &low, &high
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryParam(q url.Values, names ...string) string {
	for _, name := range names {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

type serviceOptionJSON struct {
	Value       quote.ServiceType `json:"value"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	BaseRate    int64             `json:"base_rate"`
}

type buildOptionJSON struct {
	Value       quote.BuildType `json:"value"`
	Label       string          `json:"label"`
	CustomQuote bool            `json:"custom_quote"`
}

type tierOptionJSON struct {
	Value                string `json:"value"`
	Label                string `json:"label"`
	Multiplier           string `json:"multiplier"`
	MinHours             int    `json:"min_hours"`
	RequiresConsultation bool   `json:"requires_consultation,omitempty"`
}

// QuoteOptionsResponse lists every selectable option in display order.
type QuoteOptionsResponse struct {
	Services     []serviceOptionJSON `json:"services"`
	Builds       []buildOptionJSON   `json:"builds"`
	Complexities []tierOptionJSON    `json:"complexities"`
	Depths       []tierOptionJSON    `json:"depths"`
}

// QuoteOptionsHandler serves the option catalog used to render the estimator.
func QuoteOptionsHandler(w http.ResponseWriter, _ *http.Request) {
	var resp QuoteOptionsResponse
	for _, s := range quote.Services() {
		resp.Services = append(resp.Services, serviceOptionJSON{
			Value: s.Value, Label: s.Label, Description: s.Description, BaseRate: s.BaseRate.IntPart(),
		})
	}
	for _, b := range quote.Builds() {
		resp.Builds = append(resp.Builds, buildOptionJSON{Value: b.Value, Label: b.Label, CustomQuote: b.CustomQuote})
	}
	for _, c := range quote.Complexities() {
		resp.Complexities = append(resp.Complexities, tierOptionJSON{
			Value: string(c.Value), Label: c.Label, Multiplier: c.Multiplier.String(), MinHours: c.MinHours,
		})
	}
	for _, d := range quote.Depths() {
		resp.Depths = append(resp.Depths, tierOptionJSON{
			Value: string(d.Value), Label: d.Label, Multiplier: d.Multiplier.String(), MinHours: d.MinHours,
			RequiresConsultation: d.RequiresConsultation,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
