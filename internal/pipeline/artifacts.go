package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/listerineh/flight-emissions/internal/tracking"
	"github.com/listerineh/flight-emissions/internal/trajectory"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

// RunDir manages the file-based hand-off artifacts of one pipeline run:
//
//	run_<timestamp>/
//	  raw_snapshots/<day>/snapshot_<ts>.json   verbatim provider snapshots
//	  raw_summaries/all_raw_summaries_<day>.json
//	  summaries/flights_summary_<day>.json
//	  detailed_paths/<id>_detailed_path_<day>.json
//	  processed/flights_processed_<day>.json
type RunDir struct {
	path    string
	dateStr string
	logger  *logger.Logger
}

// NewRunDir creates a unique output directory for one run
func NewRunDir(baseDir string, now time.Time, loggerObj *logger.Logger) (*RunDir, error) {
	path := filepath.Join(baseDir, "run_"+now.Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	return &RunDir{
		path:    path,
		dateStr: now.UTC().Format("20060102"),
		logger:  loggerObj.Named("artifacts"),
	}, nil
}

// Path returns the run directory path
func (r *RunDir) Path() string {
	return r.path
}

// WriteSnapshot persists one raw provider snapshot verbatim for audit
func (r *RunDir) WriteSnapshot(ts time.Time, raw []byte) error {
	dir := filepath.Join(r.path, "raw_snapshots", r.dateStr)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create raw snapshot directory: %w", err)
	}

	name := fmt.Sprintf("snapshot_%s.json", ts.Format("20060102_150405_UTC"))
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0644); err != nil {
		return fmt.Errorf("failed to write raw snapshot: %w", err)
	}
	return nil
}

// WriteSummaries persists the resolved flight summaries
func (r *RunDir) WriteSummaries(summaries []tracking.FlightSummary) error {
	name := fmt.Sprintf("flights_summary_%s.json", r.dateStr)
	return r.writeJSON(filepath.Join("summaries", name), summaries)
}

// WriteRawSummaries persists the verbatim provider summary responses
func (r *RunDir) WriteRawSummaries(raw []json.RawMessage) error {
	name := fmt.Sprintf("all_raw_summaries_%s.json", r.dateStr)
	return r.writeJSON(filepath.Join("raw_summaries", name), raw)
}

// WriteDetailsMap persists the assembled flight-id → track mapping
func (r *RunDir) WriteDetailsMap(tracks map[string]*trajectory.Track) error {
	name := fmt.Sprintf("flight_details_map_%s.json", r.dateStr)
	return r.writeJSON(name, tracks)
}

// WriteDetailedPath persists one flight's assembled point sequence
func (r *RunDir) WriteDetailedPath(flightID string, points []trajectory.Point) error {
	name := fmt.Sprintf("%s_detailed_path_%s.json", flightID, r.dateStr)
	return r.writeJSON(filepath.Join("detailed_paths", name), points)
}

// WriteProcessed persists the final processed flight records
func (r *RunDir) WriteProcessed(flights []*ProcessedFlight) error {
	name := fmt.Sprintf("flights_processed_%s.json", r.dateStr)
	return r.writeJSON(filepath.Join("processed", name), flights)
}

// writeJSON writes v as indented JSON to the given run-relative path
func (r *RunDir) writeJSON(relPath string, v interface{}) error {
	fullPath := filepath.Join(r.path, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", relPath, err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}

	r.logger.Debug("Artifact written", logger.String("path", fullPath))
	return nil
}
