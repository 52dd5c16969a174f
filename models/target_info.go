package models

// TargetInfo is the structural descriptor stored at the target root.
type TargetInfo struct {
	// Version is the layout version the target was last upgraded to.
	Version int `json:"version"`
	// UpdatedTime is when Version was last written, in milliseconds.
	UpdatedTime int64 `json:"updated_time"`
}
