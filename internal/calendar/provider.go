package calendar

// DependencyID is the module id of the calendar the weather module requires.
const DependencyID = "foundryvtt-simple-calendar"

// Provider is the subset of the calendar API the synchronizer calls.
type Provider interface {
	// Timestamp returns the current in-world timestamp in seconds.
	Timestamp() int64
	// TimestampToDate converts a timestamp into a date record.
	TimestampToDate(ts int64) DateData
}
