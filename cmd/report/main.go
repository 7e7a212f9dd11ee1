// Package main generates a one-shot inventory decision report from JSON
// fixture files, without any database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stockpulse/internal/domain"
	"stockpulse/internal/pipeline"
	"stockpulse/internal/reporting"
	"stockpulse/internal/storage/memory"
)

func main() {
	// Parse flags
	eventsPath := flag.String("events", "", "Path to sales events JSON file (required)")
	snapshotPath := flag.String("snapshot", "", "Path to inventory snapshot JSON file (required)")
	priorPath := flag.String("prior-snapshot", "", "Path to prior snapshot JSON file (optional, enables delta signals)")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	observationDays := flag.Int("observation-days", 30, "Trailing velocity observation window in days")
	asOf := flag.String("as-of", "", "Analysis time as RFC3339 (default: snapshot taken_at, for deterministic output)")
	flag.Parse()

	ctx := context.Background()

	// Validate flags
	if *eventsPath == "" || *snapshotPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --events and --snapshot are required")
		os.Exit(1)
	}

	// Load fixtures into memory stores
	eventStore := memory.NewSalesEventStore()
	snapshotStore := memory.NewSnapshotStore()

	events, err := loadEvents(*eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading events: %v\n", err)
		os.Exit(1)
	}
	if err := eventStore.InsertBulk(ctx, events); err != nil {
		fmt.Fprintf(os.Stderr, "Error storing events: %v\n", err)
		os.Exit(1)
	}

	snap, err := loadSnapshot(*snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading snapshot: %v\n", err)
		os.Exit(1)
	}
	if err := snapshotStore.Insert(ctx, snap); err != nil {
		fmt.Fprintf(os.Stderr, "Error storing snapshot: %v\n", err)
		os.Exit(1)
	}

	if *priorPath != "" {
		prior, err := loadSnapshot(*priorPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading prior snapshot: %v\n", err)
			os.Exit(1)
		}
		if err := snapshotStore.Insert(ctx, prior); err != nil {
			fmt.Fprintf(os.Stderr, "Error storing prior snapshot: %v\n", err)
			os.Exit(1)
		}
	}

	// Fixed clock for deterministic output
	analysisTime := time.UnixMilli(snap.TakenAt).UTC()
	if *asOf != "" {
		analysisTime, err = time.Parse(time.RFC3339, *asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing --as-of: %v\n", err)
			os.Exit(1)
		}
	}

	// Create and run pipeline
	p, err := pipeline.New(pipeline.Options{
		EventStore:      eventStore,
		SnapshotStore:   snapshotStore,
		ObservationDays: *observationDays,
		Verbose:         true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating pipeline: %v\n", err)
		os.Exit(1)
	}
	p.WithClock(func() time.Time { return analysisTime })

	result, err := p.Run(ctx, snap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running pipeline: %v\n", err)
		os.Exit(1)
	}

	// Write outputs
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	report := reporting.BuildReport(result)
	mdPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	csvPath := filepath.Join(*outputDir, "DECISIONS.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(result.Decisions)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
	fmt.Printf("Verdict: %s\n", result.Verdict.Verdict)
}

// eventFile mirrors the server's ingestion format.
type eventFile struct {
	Events []struct {
		EventID   string   `json:"event_id"`
		StoreID   string   `json:"store_id"`
		SKU       string   `json:"sku"`
		Quantity  int      `json:"quantity"`
		SoldPrice *float64 `json:"sold_price,omitempty"`
		SoldAt    int64    `json:"sold_at"`
	} `json:"events"`
}

// loadEvents reads and validates a sales events fixture.
func loadEvents(path string) ([]*domain.SalesEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file eventFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	events := make([]*domain.SalesEvent, 0, len(file.Events))
	for _, e := range file.Events {
		if e.EventID == "" || e.StoreID == "" || e.SKU == "" || e.Quantity <= 0 || e.SoldAt <= 0 {
			return nil, fmt.Errorf("invalid event %q in %s", e.EventID, path)
		}
		events = append(events, &domain.SalesEvent{
			EventID:   e.EventID,
			StoreID:   e.StoreID,
			SKU:       e.SKU,
			Quantity:  e.Quantity,
			SoldPrice: e.SoldPrice,
			SoldAt:    e.SoldAt,
		})
	}
	return events, nil
}

// snapshotFile mirrors the server's ingestion format.
type snapshotFile struct {
	SnapshotID   string   `json:"snapshot_id"`
	StoreID      string   `json:"store_id"`
	TakenAt      int64    `json:"taken_at"`
	TotalRevenue *float64 `json:"total_revenue,omitempty"`
	AvgMarginPct *float64 `json:"avg_margin_pct,omitempty"`
	Items        []struct {
		SKU           string   `json:"sku"`
		Name          string   `json:"name"`
		Quantity      int      `json:"quantity"`
		Cost          *float64 `json:"cost,omitempty"`
		Retail        *float64 `json:"retail,omitempty"`
		MarginPercent *float64 `json:"margin_percent,omitempty"`
	} `json:"items"`
}

// loadSnapshot reads and validates a snapshot fixture.
func loadSnapshot(path string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if file.SnapshotID == "" || file.StoreID == "" || file.TakenAt <= 0 {
		return nil, fmt.Errorf("snapshot in %s missing snapshot_id, store_id or taken_at", path)
	}

	snap := &domain.Snapshot{
		SnapshotID:   file.SnapshotID,
		StoreID:      file.StoreID,
		TakenAt:      file.TakenAt,
		TotalRevenue: file.TotalRevenue,
		AvgMarginPct: file.AvgMarginPct,
	}
	for _, it := range file.Items {
		snap.Items = append(snap.Items, domain.InventoryItem{
			SKU:      it.SKU,
			Name:     it.Name,
			Quantity: it.Quantity,
			Pricing: domain.Pricing{
				Cost:          it.Cost,
				Retail:        it.Retail,
				MarginPercent: it.MarginPercent,
			},
		})
	}
	return snap, nil
}
