package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ixra/ixra-api/internal/core"
	"github.com/ixra/ixra-api/internal/core/store"
	"github.com/ixra/ixra-api/internal/quote"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)

	require.Equal(t, "md", FormatMarkdown.Extension())
	require.Equal(t, "txt", FormatTable.Extension())
}

func TestQuoteRendering(t *testing.T) {
	sel := quote.ParseSelection("", "", "", "")
	est, err := quote.Calculate(sel)
	require.NoError(t, err)

	rendered, err := Quote(FormatTable, sel, est)
	require.NoError(t, err)
	require.Contains(t, rendered, "$2400 - $3600")
	require.Contains(t, rendered, "48 hours")

	rendered, err = Quote(FormatJSON, sel, est)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &payload))
	require.EqualValues(t, 2400, payload["low"])
	require.Equal(t, "priced", payload["status"])

	custom, err := quote.Calculate(quote.ParseSelection("", "multi", "", ""))
	require.NoError(t, err)
	require.Equal(t, "Custom quote", EstimateLabel(custom))
}

func TestQuoteOptionsMarkdown(t *testing.T) {
	rendered, err := QuoteOptions(FormatMarkdown)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(rendered), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	require.Equal(t, "# Quote options", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "| Group"), lines[1])
	require.Contains(t, rendered, "consultation required")
}

func TestRateLimitsRendering(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []store.RateLimitRecord{
		{Key: "chat:203.0.113.5", Entry: core.RateLimitEntry{Count: 3, ResetAt: now.Add(time.Hour)}},
		{Key: "chat:203.0.113.6", Entry: core.RateLimitEntry{Count: 20, ResetAt: now.Add(-time.Minute)}},
	}

	rendered, err := RateLimits(FormatTable, records, now)
	require.NoError(t, err)
	require.Contains(t, rendered, "chat:203.0.113.5")
	require.Contains(t, rendered, "expired")

	rendered, err = RateLimits(FormatJSON, nil, now)
	require.NoError(t, err)
	require.Equal(t, "[]", rendered)
}

func TestLeadsRendering(t *testing.T) {
	leads := []core.Lead{{
		ID:              "lead-1",
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		SimulationTypes: []string{"cfd", "fea"},
		Message:         strings.Repeat("long message ", 10),
		CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	rendered, err := Leads(FormatTable, leads)
	require.NoError(t, err)
	require.Contains(t, rendered, "Ada Lovelace")
	require.Contains(t, rendered, "cfd, fea")
	require.Contains(t, rendered, "…")

	rendered, err = Leads(FormatJSON, nil)
	require.NoError(t, err)
	require.Equal(t, "[]", rendered)
}
