package domain

import "time"

// Progress is the state of one long-running insight request.
// It is always keyed by session; there is no process-wide progress.
type Progress struct {
	SessionID string    `json:"session_id"`
	Percent   int       `json:"progress"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
	Complete  bool      `json:"isComplete"`
	UpdatedAt time.Time `json:"updated_at"`
}
