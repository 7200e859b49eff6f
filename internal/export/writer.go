// Package export writes allocation results and data-gap reports to disk.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oasis-retail/allocator/internal/domain"
	"github.com/oasis-retail/allocator/internal/engine"
	"github.com/oasis-retail/allocator/pkg/logger"
)

// WriteAllocationsCSV writes the per-SKU allocation lines for one run.
// Suppressed lines are included with quantity 0 so the reason trail is
// auditable alongside the orders.
func WriteAllocationsCSV(path string, result *engine.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating allocation file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"SKU", "Department", "Quantity", "Unit Cost", "Line Cost", "Funding", "Pass", "Reasons", "Reasoning"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, a := range result.Allocations {
		record := []string{
			a.SKUID,
			a.Department,
			fmt.Sprintf("%d", a.Quantity),
			a.UnitCost.StringFixed(2),
			a.Cost().StringFixed(2),
			string(a.Funding),
			string(a.Pass),
			joinReasons(a.Reasons),
			a.Reasoning,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	logger.Log.Info().
		Str("file", filepath.Base(path)).
		Int("lines", len(result.Allocations)).
		Msg("wrote allocation export")
	return writer.Error()
}

// WriteDefectsCSV writes the data-gap report. No file is written when the
// run had no defects.
func WriteDefectsCSV(path string, defects []domain.Defect) error {
	if len(defects) == 0 {
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating defect report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"SKU", "Field", "Message"}); err != nil {
		return err
	}
	for _, d := range defects {
		if err := writer.Write([]string{d.SKUID, d.Field, d.Message}); err != nil {
			return err
		}
	}

	logger.Log.Warn().
		Str("file", filepath.Base(path)).
		Int("defects", len(defects)).
		Msg("wrote data-gap report")
	return writer.Error()
}

// WriteSummaryJSON writes the run summary for dashboards and diffing.
func WriteSummaryJSON(path string, result *engine.Result) error {
	out := struct {
		Tier    string         `json:"tier"`
		Summary engine.Summary `json:"summary"`
	}{
		Tier:    string(result.Profile.Tier),
		Summary: result.Summary,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func joinReasons(codes []domain.ReasonCode) string {
	s := ""
	for i, c := range codes {
		if i > 0 {
			s += "|"
		}
		s += string(c)
	}
	return s
}
