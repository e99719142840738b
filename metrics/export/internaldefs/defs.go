package internaldefs

import (
	"github.com/inkstone/wbauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   wbauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for export.
type HistogramDef struct {
	ID   wbauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: wbauth.MetricIssueSuccess, Name: "wbauth_issue_success_total", Help: "Token pairs issued and registered in the revocation store."},
	{ID: wbauth.MetricIssueFailure, Name: "wbauth_issue_failure_total", Help: "Issue calls that returned no tokens."},
	{ID: wbauth.MetricLoginSuccess, Name: "wbauth_login_success_total", Help: "Successful login attempts."},
	{ID: wbauth.MetricLoginFailure, Name: "wbauth_login_failure_total", Help: "Failed login attempts."},
	{ID: wbauth.MetricRegisterSuccess, Name: "wbauth_register_success_total", Help: "Created accounts."},
	{ID: wbauth.MetricRegisterDuplicate, Name: "wbauth_register_duplicate_total", Help: "Registrations rejected as duplicate email."},
	{ID: wbauth.MetricRegisterInvalid, Name: "wbauth_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: wbauth.MetricRefreshSuccess, Name: "wbauth_refresh_success_total", Help: "Access tokens minted from refresh tokens."},
	{ID: wbauth.MetricRefreshFailure, Name: "wbauth_refresh_failure_total", Help: "Refresh tokens rejected before the store lookup."},
	{ID: wbauth.MetricRefreshRevoked, Name: "wbauth_refresh_revoked_total", Help: "Refresh tokens whose id was revoked, expired or owned by another user."},
	{ID: wbauth.MetricIdentityRejected, Name: "wbauth_identity_rejected_total", Help: "Access tokens rejected by RequireIdentity."},
	{ID: wbauth.MetricLogoutAll, Name: "wbauth_logout_all_total", Help: "Logout-everywhere operations."},
	{ID: wbauth.MetricStoreUnavailable, Name: "wbauth_store_unavailable_total", Help: "Revocation store infrastructure failures."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: wbauth.MetricIdentityLatency, Name: "wbauth_identity_latency_seconds", Help: "RequireIdentity latency histogram."},
	{ID: wbauth.MetricRefreshLatency, Name: "wbauth_refresh_latency_seconds", Help: "Refresh latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's eight buckets.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
