// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package report persists a snapshot of the most recent scan's outcome
// to disk so the admin surface can answer "what did the last scan do"
// without querying the database. Grounded on the teacher's
// internal/jobs write_unix.go pattern: a renameio pending file gives
// fsync-before-rename durability, so a snapshot read never observes a
// half-written file even if the process is killed mid-write.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"
)

// Summary is the durable snapshot of one completed or failed scan.
type Summary struct {
	ScanID       string    `json:"scanId"`
	RuleID       string    `json:"ruleId"`
	Status       string    `json:"status"`
	ItemsScanned int       `json:"itemsScanned"`
	ItemsFlagged int       `json:"itemsFlagged"`
	Error        string    `json:"error,omitempty"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// Writer atomically persists the latest Summary to a fixed path.
type Writer struct {
	path string
}

// NewWriter builds a Writer bound to path. No file is touched until
// Write is called.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write atomically replaces the snapshot file with summary. A reader
// racing this call either sees the prior snapshot or the new one,
// never a partial one.
func (w *Writer) Write(summary Summary) error {
	pendingFile, err := renameio.NewPendingFile(w.path)
	if err != nil {
		return fmt.Errorf("report: create pending snapshot file: %w", err)
	}
	defer func() {
		_ = pendingFile.Cleanup()
	}()

	if err := json.NewEncoder(pendingFile).Encode(summary); err != nil {
		return fmt.Errorf("report: encode snapshot: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("report: atomically replace snapshot file: %w", err)
	}
	return nil
}

// Read returns the most recently written Summary. It returns
// os.ErrNotExist (wrapped) if no scan has completed yet.
func (w *Writer) Read() (Summary, error) {
	var summary Summary
	data, err := os.ReadFile(w.path)
	if err != nil {
		return Summary{}, fmt.Errorf("report: read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return Summary{}, fmt.Errorf("report: decode snapshot: %w", err)
	}
	return summary, nil
}
