package internal

import "expvar"

var (
	webhooksTotal     = expvar.NewMap("bountyhooks_webhooks_total")
	signatureFailures = expvar.NewInt("bountyhooks_signature_failures_total")
	claimsTotal       = expvar.NewMap("bountyhooks_claims_total")
	bountiesTotal     = expvar.NewMap("bountyhooks_bounties_total")
	taskErrors        = expvar.NewMap("bountyhooks_task_errors_total")
	notifyErrors      = expvar.NewMap("bountyhooks_notify_errors_total")
)

// Metrics records counters under /debug/vars style expvar names.
type Metrics struct{}

// IncWebhook counts an accepted delivery by event name.
func (Metrics) IncWebhook(event string) {
	webhooksTotal.Add(event, 1)
}

// IncSignatureFailure counts a rejected delivery.
func (Metrics) IncSignatureFailure() {
	signatureFailures.Add(1)
}

// IncClaim counts a persisted claim transition by state.
func (Metrics) IncClaim(state string) {
	claimsTotal.Add(state, 1)
}

// IncBounty counts bounty transitions ("opened", "closed").
func (Metrics) IncBounty(transition string) {
	bountiesTotal.Add(transition, 1)
}

// IncTaskError counts a failed task attempt by kind.
func (Metrics) IncTaskError(kind string) {
	taskErrors.Add(kind, 1)
}

// IncNotifyError counts a failed rule notification by topic.
func (Metrics) IncNotifyError(topic string) {
	notifyErrors.Add(topic, 1)
}
