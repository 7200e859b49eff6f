// Package dataset loads SKU snapshots from CSV or JSON store files.
// Loading is tolerant: malformed rows become defects, never run failures.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oasis-retail/allocator/internal/domain"
	"github.com/oasis-retail/allocator/pkg/logger"
)

// Snapshot is a loaded store file: the usable SKUs plus every row that
// could not be turned into one.
type Snapshot struct {
	SKUs    []domain.SKU
	Defects []domain.Defect
}

// Load dispatches on file extension. CSV and JSON are supported.
func Load(path string) (*Snapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".json":
		return LoadJSON(path)
	}
	return nil, fmt.Errorf("unsupported snapshot format %q", filepath.Ext(path))
}

// jsonSKU mirrors the export shape of the data-preparation step.
type jsonSKU struct {
	ID                 string   `json:"sku_id"`
	Name               string   `json:"name"`
	Department         string   `json:"department"`
	SellPrice          float64  `json:"sell_price"`
	Stock              int      `json:"stock"`
	PackSize           int      `json:"pack_size"`
	Perishability      string   `json:"perishability"`
	ShelfLifeDays      int      `json:"shelf_life_days"`
	DeliveryFrequency  float64  `json:"delivery_frequency"`
	DailySales         *float64 `json:"daily_sales"`
	Trend              string   `json:"trend"`
	Reliability        float64  `json:"reliability"`
	DemandCV           float64  `json:"demand_cv"`
	Funding            string   `json:"funding"`
	MarginPct          *float64 `json:"margin_pct"`
	GRNCost            *float64 `json:"grn_cost"`
	VelocityClass      string   `json:"velocity_class"`
	InternalProduction bool     `json:"internal_production"`
	Staple             bool     `json:"staple"`
}

// LoadJSON reads a JSON array of SKU records.
func LoadJSON(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var rows []jsonSKU
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", filepath.Base(path), err)
	}

	snap := &Snapshot{}
	for i, row := range rows {
		sku, defect := fromJSON(row, i)
		if defect != nil {
			snap.Defects = append(snap.Defects, *defect)
			continue
		}
		snap.SKUs = append(snap.SKUs, sku)
	}
	logLoaded(path, snap)
	return snap, nil
}

func fromJSON(row jsonSKU, idx int) (domain.SKU, *domain.Defect) {
	perish, ok := domain.ParsePerishability(row.Perishability)
	if !ok {
		return domain.SKU{}, &domain.Defect{SKUID: row.ID, Field: "perishability",
			Message: fmt.Sprintf("row %d: unknown class %q", idx, row.Perishability)}
	}
	funding, ok := domain.ParseFunding(row.Funding)
	if !ok {
		return domain.SKU{}, &domain.Defect{SKUID: row.ID, Field: "funding",
			Message: fmt.Sprintf("row %d: unknown funding %q", idx, row.Funding)}
	}
	class, ok := domain.ParseVelocityClass(row.VelocityClass)
	if !ok {
		return domain.SKU{}, &domain.Defect{SKUID: row.ID, Field: "velocity_class",
			Message: fmt.Sprintf("row %d: unknown class %q", idx, row.VelocityClass)}
	}
	trend, ok := domain.ParseTrend(row.Trend)
	if !ok {
		trend = domain.TrendStable
	}

	return domain.SKU{
		ID:                 row.ID,
		Name:               row.Name,
		Department:         strings.ToUpper(strings.TrimSpace(row.Department)),
		SellPrice:          row.SellPrice,
		Stock:              row.Stock,
		PackSize:           row.PackSize,
		Perishability:      perish,
		ShelfLifeDays:      row.ShelfLifeDays,
		DeliveryFrequency:  row.DeliveryFrequency,
		DailySales:         row.DailySales,
		Trend:              trend,
		Reliability:        row.Reliability,
		DemandCV:           row.DemandCV,
		Funding:            funding,
		MarginPct:          row.MarginPct,
		GRNCost:            row.GRNCost,
		VelocityClass:      class,
		InternalProduction: row.InternalProduction,
		Staple:             row.Staple,
	}, nil
}

// LoadCSV reads a header-mapped CSV snapshot. Column lookup is tolerant
// of spacing and case so hand-edited store files still load.
func LoadCSV(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}

	colIndex := func(names ...string) int {
		targets := make(map[string]struct{}, len(names))
		for _, name := range names {
			targets[normalizeColumn(name)] = struct{}{}
		}
		for i, h := range header {
			if _, ok := targets[normalizeColumn(h)]; ok {
				return i
			}
		}
		return -1
	}

	idxID := colIndex("sku_id", "sku")
	idxName := colIndex("name", "product name")
	idxDept := colIndex("department", "dept")
	idxPrice := colIndex("sell_price", "price")
	idxStock := colIndex("stock", "stock_on_hand")
	idxPack := colIndex("pack_size", "pack")
	idxPerish := colIndex("perishability")
	idxShelf := colIndex("shelf_life_days", "shelf life")
	idxFreq := colIndex("delivery_frequency", "delivery freq")
	idxDaily := colIndex("daily_sales", "daily sales")
	idxTrend := colIndex("trend")
	idxReliability := colIndex("reliability")
	idxCV := colIndex("demand_cv", "cv")
	idxFunding := colIndex("funding")
	idxMargin := colIndex("margin_pct", "margin")
	idxGRN := colIndex("grn_cost", "grn")
	idxClass := colIndex("velocity_class", "class")
	idxInternal := colIndex("internal_production", "internal")
	idxStaple := colIndex("staple")

	if idxID < 0 {
		return nil, fmt.Errorf("snapshot %s: missing sku_id column", filepath.Base(path))
	}

	snap := &Snapshot{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			snap.Defects = append(snap.Defects, domain.Defect{
				Field:   "row",
				Message: fmt.Sprintf("line %d: %v", line, err),
			})
			continue
		}

		get := func(idx int) string {
			if idx < 0 || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		parseFloat := func(idx int) float64 {
			v := strings.ReplaceAll(get(idx), ",", "")
			if v == "" {
				return 0
			}
			f, _ := strconv.ParseFloat(v, 64)
			return f
		}
		parseInt := func(idx int) int {
			return int(parseFloat(idx))
		}
		parseOptFloat := func(idx int) *float64 {
			v := strings.ReplaceAll(get(idx), ",", "")
			if v == "" {
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil
			}
			return &f
		}
		parseBool := func(idx int) bool {
			switch strings.ToLower(get(idx)) {
			case "1", "true", "yes", "y":
				return true
			}
			return false
		}

		row := jsonSKU{
			ID:                 get(idxID),
			Name:               get(idxName),
			Department:         get(idxDept),
			SellPrice:          parseFloat(idxPrice),
			Stock:              parseInt(idxStock),
			PackSize:           parseInt(idxPack),
			Perishability:      get(idxPerish),
			ShelfLifeDays:      parseInt(idxShelf),
			DeliveryFrequency:  parseFloat(idxFreq),
			DailySales:         parseOptFloat(idxDaily),
			Trend:              get(idxTrend),
			Reliability:        parseFloat(idxReliability),
			DemandCV:           parseFloat(idxCV),
			Funding:            get(idxFunding),
			MarginPct:          parseOptFloat(idxMargin),
			GRNCost:            parseOptFloat(idxGRN),
			VelocityClass:      get(idxClass),
			InternalProduction: parseBool(idxInternal),
			Staple:             parseBool(idxStaple),
		}
		sku, defect := fromJSON(row, line)
		if defect != nil {
			snap.Defects = append(snap.Defects, *defect)
			continue
		}
		snap.SKUs = append(snap.SKUs, sku)
	}

	logLoaded(path, snap)
	return snap, nil
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	return strings.Trim(name, "._")
}

func logLoaded(path string, snap *Snapshot) {
	logger.Log.Info().
		Str("file", filepath.Base(path)).
		Int("skus", len(snap.SKUs)).
		Int("defects", len(snap.Defects)).
		Msg("loaded store snapshot")
}
