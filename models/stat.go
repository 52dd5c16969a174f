package models

// ItemStat is the backend-reported metadata of one remote entry.
//
// UpdatedTime is in milliseconds but its resolution may be as coarse as one
// second, and it is not guaranteed to be monotonic across writes.
type ItemStat struct {
	Path        string `json:"path"`
	UpdatedTime int64  `json:"updated_time"`
	IsDir       bool   `json:"is_dir"`
}

// ListResult is one page returned by a driver's List call.
type ListResult struct {
	Items   []ItemStat
	HasMore bool
	Context string
}

// DeltaItem is a single change reported by the delta engine.
type DeltaItem struct {
	Path        string
	ID          string
	UpdatedTime int64
	Deleted     bool
}
