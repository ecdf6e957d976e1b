package models

import (
	"encoding/json"
	"time"
)

const BackupVersion = 1

// Backup bundles every collection of the store for export and wholesale restore.
type Backup struct {
	Version     int                          `json:"version"`
	ExportedAt  time.Time                    `json:"exportedAt"`
	Backend     string                       `json:"backend,omitempty"`
	Collections map[string][]json.RawMessage `json:"collections"`
	Counters    map[string]int64             `json:"counters,omitempty"`
}
