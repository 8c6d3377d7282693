package internaldefs

import (
	sessionkit "github.com/MrEthical07/sessionkit"
)

// CounterDef binds one sessionkit counter to its exported name and help text.
type CounterDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// CounterDefs is the canonical export table. Order is stable so rendered
// output diffs cleanly.
var CounterDefs = []CounterDef{
	{ID: sessionkit.MetricLoginSuccess, Name: "sessionkit_login_success_total", Help: "Successful login attempts."},
	{ID: sessionkit.MetricLoginFailure, Name: "sessionkit_login_failure_total", Help: "Failed login attempts."},
	{ID: sessionkit.MetricRegisterSuccess, Name: "sessionkit_register_success_total", Help: "Successful registrations."},
	{ID: sessionkit.MetricRegisterFailure, Name: "sessionkit_register_failure_total", Help: "Failed registrations."},
	{ID: sessionkit.MetricRefreshSuccess, Name: "sessionkit_refresh_success_total", Help: "Successful token refreshes."},
	{ID: sessionkit.MetricRefreshFailure, Name: "sessionkit_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: sessionkit.MetricRefreshCoalesced, Name: "sessionkit_refresh_coalesced_total", Help: "Callers that joined an in-flight refresh."},
	{ID: sessionkit.MetricRefreshDiscarded, Name: "sessionkit_refresh_discarded_total", Help: "Refresh outcomes discarded because a logout won the race."},
	{ID: sessionkit.MetricRetrySuccess, Name: "sessionkit_retry_success_total", Help: "Requests that succeeded on their post-refresh retry."},
	{ID: sessionkit.MetricRetryFailure, Name: "sessionkit_retry_failure_total", Help: "Requests still unauthorized after their single retry."},
	{ID: sessionkit.MetricLogout, Name: "sessionkit_logout_total", Help: "User-initiated logouts."},
	{ID: sessionkit.MetricForcedLogout, Name: "sessionkit_forced_logout_total", Help: "Forced logouts after irrecoverable session expiry."},
	{ID: sessionkit.MetricStoreReadFailure, Name: "sessionkit_store_read_failure_total", Help: "Token store reads that failed or were undecodable."},
	{ID: sessionkit.MetricStoreWriteFailure, Name: "sessionkit_store_write_failure_total", Help: "Token store writes or clears that failed."},
}

// DroppedEventsName names the event-dispatcher drop counter, which lives
// outside the MetricID table.
const DroppedEventsName = "sessionkit_events_dropped_total"

// DroppedEventsHelp describes DroppedEventsName.
const DroppedEventsHelp = "Dropped lifecycle events due to dispatcher backpressure."
