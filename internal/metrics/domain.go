package metrics

import "time"

// Domain metrics for the site backend.
const (
	ChatRequestsTotal       = "chat_requests_total"
	ChatUpstreamDurationMs  = "chat_upstream_duration_ms"
	RateLimitDecisionsTotal = "rate_limit_decisions_total"
	QuoteRequestsTotal      = "quote_requests_total"
	ContactSubmissionsTotal = "contact_submissions_total"
	LeadDeliveriesTotal     = "lead_deliveries_total"
)

// RecordChatOutcome counts a chat request by terminal state (completed, rejected, failed, ...).
func RecordChatOutcome(state string, mode string) {
	count(ChatRequestsTotal, map[string]string{"state": state, "mode": mode})
}

// RecordChatUpstream records the latency of a completion provider call.
func RecordChatUpstream(provider string, success bool, duration time.Duration) {
	histogram(ChatUpstreamDurationMs, duration, map[string]string{
		"provider": provider,
		"status":   outcome(success, "success", "failure"),
	})
}

// RecordRateLimitDecision counts quota checks by scope and outcome.
func RecordRateLimitDecision(scope string, allowed bool) {
	count(RateLimitDecisionsTotal, map[string]string{
		"scope":    scope,
		"decision": outcome(allowed, "allowed", "rejected"),
	})
}

// RecordQuote counts estimator requests by result status.
func RecordQuote(status string) {
	count(QuoteRequestsTotal, map[string]string{"status": status})
}

// RecordContactSubmission counts contact form submissions by outcome.
func RecordContactSubmission(outcome string) {
	count(ContactSubmissionsTotal, map[string]string{"outcome": outcome})
}

// RecordLeadDelivery counts lead notifications per channel.
func RecordLeadDelivery(channel string, success bool) {
	count(LeadDeliveriesTotal, map[string]string{
		"channel": channel,
		"status":  outcome(success, "success", "failure"),
	})
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
