package models

import "time"

// User identifies a test taker. AnpSeq is the external sequence number
// used to look up legacy rows and is unique across users.
type User struct {
	ID              string     `json:"user_id"`
	AnpSeq          int        `json:"anp_seq"`
	Name            string     `json:"name,omitempty"`
	TestCompletedAt *time.Time `json:"test_completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
