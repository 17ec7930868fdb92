package internaldefs

import (
	goCred "github.com/MrEthical07/goCred"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   goCred.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported name.
type HistogramDef struct {
	ID   goCred.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goCred.MetricRegisterSuccess, Name: "gocred_register_success_total", Help: "Successful registrations."},
	{ID: goCred.MetricRegisterDuplicate, Name: "gocred_register_duplicate_total", Help: "Registrations rejected for an existing email."},
	{ID: goCred.MetricLoginSuccess, Name: "gocred_login_success_total", Help: "Issued token pairs on login."},
	{ID: goCred.MetricCredentialsRejected, Name: "gocred_credentials_rejected_total", Help: "Credential checks that returned no user."},
	{ID: goCred.MetricRefreshSuccess, Name: "gocred_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goCred.MetricRefreshFailure, Name: "gocred_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: goCred.MetricRefreshMismatch, Name: "gocred_refresh_mismatch_total", Help: "Refresh tokens that no longer matched the stored slot."},
	{ID: goCred.MetricRefreshRaceLost, Name: "gocred_refresh_race_lost_total", Help: "Refreshes that lost a compare-and-swap race."},
	{ID: goCred.MetricLogout, Name: "gocred_logout_total", Help: "Logout operations."},
	{ID: goCred.MetricPasswordChanged, Name: "gocred_password_changed_total", Help: "Password changes."},
	{ID: goCred.MetricJobSubmitFailure, Name: "gocred_job_submit_failure_total", Help: "Background jobs the engine could not submit."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goCred.MetricRefreshLatency, Name: "gocred_refresh_latency_seconds", Help: "Refresh latency histogram."},
}

// JobsDroppedName is the counter for jobs dropped by the dispatcher.
const JobsDroppedName = "gocred_jobs_dropped_total"

// JobsDroppedHelp describes JobsDroppedName.
const JobsDroppedHelp = "Jobs dropped due to dispatcher backpressure."

// HistogramUpperBounds are the bucket limits in seconds; the last bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, including +Inf, for exporters
// without native histogram buckets.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
