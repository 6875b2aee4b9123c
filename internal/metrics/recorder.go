package metrics

import "time"

// ResultLabel enumerates operation outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// DateOutcome labels what a date-changed event led to.
type DateOutcome string

const (
	DateIgnored     DateOutcome = "ignored"     // arrived before the synchronizer was ready
	DateUnchanged   DateOutcome = "unchanged"   // same calendar day
	DateObserved    DateOutcome = "observed"    // changed, non-authoritative process
	DateRegenerated DateOutcome = "regenerated" // changed, new weather written
)

// Recorder defines the observability hooks of the synchronization runtime.
type Recorder interface {
	IncSettingWrite(key string, result ResultLabel)
	IncSettingChanged(key string)
	IncDateChange(outcome DateOutcome)
	ObserveGenerationDuration(d time.Duration, success bool)
	IncDisplayPush(kind string)
	SetVersionGate(passed bool)
	SetDisplayClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncSettingWrite(string, ResultLabel) {}
func (NoopRecorder) IncSettingChanged(string) {}
func (NoopRecorder) IncDateChange(DateOutcome) {}
func (NoopRecorder) ObserveGenerationDuration(time.Duration, bool) {}
func (NoopRecorder) IncDisplayPush(string) {}
func (NoopRecorder) SetVersionGate(bool) {}
func (NoopRecorder) SetDisplayClients(int) {}

// Or returns r, or NoopRecorder when r is nil.
func Or(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
