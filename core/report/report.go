package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/store"
)

// RunInfo describes the run a report belongs to.
type RunInfo struct {
	Mode     string `json:"mode"`
	Workbook string `json:"workbook,omitempty"`
	Mapping  string `json:"mapping,omitempty"`
}

// Entry is one record in a dataset report.
type Entry struct {
	Index      string               `json:"index"`
	Row        int                  `json:"row,omitempty"`
	Status     reconcile.Status     `json:"status"`
	Reason     string               `json:"reason,omitempty"`
	Mismatches []reconcile.Mismatch `json:"mismatches,omitempty"`
	External   map[string]string    `json:"external,omitempty"`
	Store      store.Row            `json:"store,omitempty"`
}

// DatasetReport summarizes one reconciled sheet.
type DatasetReport struct {
	Sheet         string                           `json:"sheet"`
	Dataset       string                           `json:"dataset"`
	Entity        string                           `json:"entity"`
	IndexKey      []string                         `json:"index_key"`
	TotalExternal int                              `json:"total_external"`
	TotalStore    int                              `json:"total_store"`
	Issues        int                              `json:"issues"`
	Counts        map[reconcile.Status]int         `json:"counts"`
	Created       int                              `json:"created"`
	Updated       int                              `json:"updated"`
	Entries       []Entry                          `json:"entries,omitempty"`
	Unresolved    []*reconcile.CommitConflictError `json:"unresolved"`
}

// Totals aggregates every dataset of a report.
type Totals struct {
	Datasets   int `json:"datasets"`
	Issues     int `json:"issues"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Unresolved int `json:"unresolved"`
}

// Report is the structured outcome of a run.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	LOD         LOD             `json:"lod"`
	Run         RunInfo         `json:"run"`
	Totals      Totals          `json:"totals"`
	Datasets    []DatasetReport `json:"datasets"`
}

// Build assembles a report from results, listing entries according to lod.
func Build(results []*reconcile.DatasetResult, lod LOD, info RunInfo) *Report {
	r := &Report{
		GeneratedAt: time.Now(),
		LOD:         lod,
		Run:         info,
		Datasets:    make([]DatasetReport, 0, len(results)),
	}
	for _, res := range results {
		d := DatasetReport{
			Sheet:         res.Sheet,
			Dataset:       res.Dataset,
			Entity:        res.Entity,
			IndexKey:      res.IndexKey,
			TotalExternal: res.TotalExternal,
			TotalStore:    res.TotalStore,
			Issues:        res.Issues(),
			Counts:        res.Counts(),
			Created:       res.Created,
			Updated:       res.Updated,
			Unresolved:    res.Unresolved,
		}
		if d.Unresolved == nil {
			d.Unresolved = []*reconcile.CommitConflictError{}
		}
		for _, rec := range res.Records {
			if e, ok := entry(rec, lod); ok {
				d.Entries = append(d.Entries, e)
			}
		}

		r.Totals.Datasets++
		r.Totals.Issues += d.Issues
		r.Totals.Created += d.Created
		r.Totals.Updated += d.Updated
		r.Totals.Unresolved += len(d.Unresolved)
		r.Datasets = append(r.Datasets, d)
	}
	return r
}

func entry(rec *reconcile.Record, lod LOD) (Entry, bool) {
	agrees := rec.Status == reconcile.StatusMatchedEqual || rec.Status == reconcile.StatusNoChange
	switch {
	case lod == LODSummary:
		return Entry{}, false
	case lod == LODMismatch && agrees:
		return Entry{}, false
	}

	e := Entry{
		Index:      rec.DisplayIndex(),
		Row:        rec.Row,
		Status:     rec.Status,
		Reason:     rec.Reason,
		Mismatches: rec.Mismatches,
	}
	if lod == LODAllFull || lod == LODMismatch {
		e.External = rec.External
		e.Store = rec.Store
	}
	return e, true
}

// WriteJSON encodes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// FileName returns the report file name for the generation time.
func (r *Report) FileName() string {
	return fmt.Sprintf("DET-report_%s.json", r.GeneratedAt.Format("20060102-150405"))
}

// Save writes the report into dir and returns the file path.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, r.FileName())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()
	if err := r.WriteJSON(f); err != nil {
		return "", err
	}
	return path, nil
}
