package models

// LoadStatus represents the status of a load operation.
type LoadStatus string

const (
	LoadStatusIdle      LoadStatus = "idle"
	LoadStatusLoading   LoadStatus = "loading"
	LoadStatusComplete  LoadStatus = "complete"
	LoadStatusError     LoadStatus = "error"
	LoadStatusCancelled LoadStatus = "cancelled"
)

// Terminal reports whether no further progress will happen for the load.
func (s LoadStatus) Terminal() bool {
	return s == LoadStatusComplete || s == LoadStatusError || s == LoadStatusCancelled
}

// LoadResult is the terminal outcome of one load, delivered exactly once.
type LoadResult struct {
	LoadID  string      `json:"loadId"`
	Status  LoadStatus  `json:"status"` // complete or error
	Points  int         `json:"points"`
	Skipped int         `json:"skipped"`
	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// OK reports whether the load read the whole file.
func (r LoadResult) OK() bool {
	return r.Status == LoadStatusComplete
}

// LoadState is the live view of the current (or most recent) load.
type LoadState struct {
	ID               string          `json:"id,omitempty"`
	Path             string          `json:"path,omitempty"`
	Status           LoadStatus      `json:"status"`
	Config           *PlaybackConfig `json:"config,omitempty"`
	Points           int             `json:"points"`
	Skipped          int             `json:"skipped"`
	StartTime        int64           `json:"startTime,omitempty"` // Unix ms
	EndTime          int64           `json:"endTime,omitempty"`   // Unix ms
	ProcessingTimeMs int64           `json:"processingTimeMs,omitempty"`
	Message          string          `json:"message,omitempty"`
	Errors           []ParseError    `json:"errors,omitempty"`
}
