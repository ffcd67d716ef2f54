package logging

import "time"

// #region run-entry
// RunEntry is a single row in the validation_runs table.
type RunEntry struct {
	RunID       string    `json:"run_id"`
	Document    string    `json:"document"`
	ContentHash string    `json:"content_hash"`
	Valid       bool      `json:"valid"`
	Tier        string    `json:"tier"`
	Delta       float64   `json:"delta"`
	Ambiguity   float64   `json:"ambiguity"`
	SoftScore   float64   `json:"soft_score"`
	VetoesJSON  string    `json:"vetoes,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// #endregion run-entry
