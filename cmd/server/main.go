// Package main provides the unified service that runs all components together:
// - Ingestion (HTTP): sales events and inventory snapshots
// - Pipeline (scheduled + on snapshot): velocity → signals → facts → decisions → verdict
// - Reporting: Markdown report and decisions CSV per run
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stockpulse/internal/domain"
	"stockpulse/internal/observability"
	"stockpulse/internal/pipeline"
	"stockpulse/internal/reporting"
	"stockpulse/internal/storage"
	chstore "stockpulse/internal/storage/clickhouse"
	"stockpulse/internal/storage/memory"
	"stockpulse/internal/storage/migrations"
	pgstore "stockpulse/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	storeID         string
	outputDir       string
	runInterval     time.Duration
	observationDays int

	// Stores
	stores *allStores

	// Components
	pipeline *pipeline.Pipeline
	logger   *log.Logger

	// State
	mu         sync.Mutex
	running    bool
	lastRun    time.Time
	lastResult *pipeline.Result
	runs       int
	started    time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	eventStore      storage.SalesEventStore
	snapshotStore   storage.SnapshotStore
	velocityHistory storage.VelocityHistoryStore
}

func main() {
	// Load .env file if exists; system env vars take precedence
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	storeID := flag.String("store-id", envOr("STORE_ID", "store-1"), "Store identifier to analyze")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	runInterval := flag.Duration("run-interval", 1*time.Hour, "Scheduled pipeline run interval")
	observationDays := flag.Int("observation-days", 30, "Trailing velocity observation window in days")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create pipeline
	p, err := pipeline.New(pipeline.Options{
		EventStore:      stores.eventStore,
		SnapshotStore:   stores.snapshotStore,
		VelocityHistory: stores.velocityHistory,
		ObservationDays: *observationDays,
		Verbose:         true,
	})
	if err != nil {
		logger.Fatalf("Failed to create pipeline: %v", err)
	}

	server := &Server{
		storeID:         *storeID,
		outputDir:       *outputDir,
		runInterval:     *runInterval,
		observationDays: *observationDays,
		stores:          stores,
		pipeline:        p,
		logger:          logger,
		started:         time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*httpAddr)

	// Run the scheduler
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// envOr returns the env var value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			eventStore:      memory.NewSalesEventStore(),
			snapshotStore:   memory.NewSnapshotStore(),
			velocityHistory: memory.NewVelocityHistoryStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	// ClickHouse (migration returns a connection to the target database)
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &allStores{
		eventStore:      pgstore.NewSalesEventStore(pool),
		snapshotStore:   pgstore.NewSnapshotStore(pool),
		velocityHistory: chstore.NewVelocityHistoryStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run executes pipeline runs on schedule until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting scheduler (interval: %v)...", s.runInterval)

	// Run immediately on start
	s.runPipeline(ctx)

	ticker := time.NewTicker(s.runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

// runPipeline executes one pipeline run over the latest snapshot.
func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Println("Pipeline already running, skipping...")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now()
		s.runs++
		s.mu.Unlock()
	}()

	snap, err := s.stores.snapshotStore.GetLatest(ctx, s.storeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Println("No snapshot yet, skipping run")
		} else {
			s.logger.Printf("Load latest snapshot: %v", err)
		}
		return
	}

	s.logger.Printf("Running pipeline for store %s (%d items)...", s.storeID, len(snap.Items))
	start := time.Now()

	result, err := s.pipeline.Run(ctx, snap)
	observability.RecordPipelineRun(time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Printf("Pipeline error: %v", err)
		return
	}

	s.recordRunMetrics(result)

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	if err := s.writeReports(result); err != nil {
		s.logger.Printf("Write reports: %v", err)
		return
	}

	s.logger.Printf("Pipeline completed in %v: %d signals, %d decisions, verdict %s",
		time.Since(start), len(result.Signals), len(result.Decisions), result.Verdict.Type)
}

// recordRunMetrics updates the Prometheus counters from one run.
func (s *Server) recordRunMetrics(result *pipeline.Result) {
	for _, sig := range result.Signals {
		observability.RecordSignal(string(sig.Type))
	}
	for _, d := range result.Decisions {
		observability.RecordDecision(string(d.Type))
	}
	observability.RecordVerdict(string(result.Verdict.Type))
	if result.Tables != nil {
		observability.DefaultMetrics.ItemsAnalyzed.Set(float64(len(result.Tables.Inventory)))
		observability.DefaultMetrics.FactRowsDropped.Add(float64(result.Tables.DroppedRows))
	}
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
}

// writeReports renders the Markdown report and decisions CSV to the output dir.
func (s *Server) writeReports(result *pipeline.Result) error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	report := reporting.BuildReport(result)

	mdPath := filepath.Join(s.outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}

	csvPath := filepath.Join(s.outputDir, "DECISIONS.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(result.Decisions)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	return nil
}

// startHTTPServer starts the HTTP server for ingestion/health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Ingestion
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/snapshots", s.handleSnapshots)

	// Results
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/verdict", s.handleVerdict)
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// eventRequest is the JSON body for one sales event.
type eventRequest struct {
	EventID   string   `json:"event_id"`
	StoreID   string   `json:"store_id"`
	SKU       string   `json:"sku"`
	Quantity  int      `json:"quantity"`
	SoldPrice *float64 `json:"sold_price,omitempty"`
	SoldAt    int64    `json:"sold_at"`
}

// eventsRequest is the JSON body for POST /events.
type eventsRequest struct {
	Events []eventRequest `json:"events"`
}

// handleEvents ingests a batch of sales events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req eventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordValidationError("malformed_json")
		http.Error(w, fmt.Sprintf("decode body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Events) == 0 {
		http.Error(w, "no events in request", http.StatusBadRequest)
		return
	}

	events := make([]*domain.SalesEvent, 0, len(req.Events))
	for _, e := range req.Events {
		if e.EventID == "" || e.StoreID == "" || e.SKU == "" || e.Quantity <= 0 || e.SoldAt <= 0 {
			observability.RecordValidationError("missing_field")
			http.Error(w, fmt.Sprintf("invalid event %q: event_id, store_id, sku, positive quantity and sold_at are required", e.EventID), http.StatusBadRequest)
			return
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

	if err := s.stores.eventStore.InsertBulk(r.Context(), events); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordValidationError("duplicate_event_id")
			http.Error(w, "duplicate event_id in batch", http.StatusConflict)
			return
		}
		s.logger.Printf("Insert events: %v", err)
		http.Error(w, "store events failed", http.StatusInternalServerError)
		return
	}

	for range events {
		observability.RecordEventStored()
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int{"stored": len(events)})
}

// snapshotRequest is the JSON body for POST /snapshots.
type snapshotRequest struct {
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

// handleSnapshots ingests an inventory snapshot and triggers a pipeline run.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode body: %v", err), http.StatusBadRequest)
		return
	}
	if req.SnapshotID == "" || req.StoreID == "" || req.TakenAt <= 0 {
		http.Error(w, "snapshot_id, store_id and taken_at are required", http.StatusBadRequest)
		return
	}

	snap := &domain.Snapshot{
		SnapshotID:   req.SnapshotID,
		StoreID:      req.StoreID,
		TakenAt:      req.TakenAt,
		TotalRevenue: req.TotalRevenue,
		AvgMarginPct: req.AvgMarginPct,
	}
	for _, it := range req.Items {
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

	if err := s.stores.snapshotStore.Insert(r.Context(), snap); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			http.Error(w, "duplicate snapshot_id", http.StatusConflict)
			return
		}
		s.logger.Printf("Insert snapshot: %v", err)
		http.Error(w, "store snapshot failed", http.StatusInternalServerError)
		return
	}
	observability.RecordSnapshotStored()

	// A fresh snapshot makes the previous analysis stale; rerun in the
	// background so ingestion stays fast.
	go s.runPipeline(context.Background())

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"snapshot_id": snap.SnapshotID, "status": "accepted"})
}

// handleReport returns the latest Markdown report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	result := s.lastResult
	s.mu.Unlock()

	if result == nil {
		http.Error(w, "no pipeline run yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(reporting.BuildReport(result))))
}

// handleVerdict returns the latest verdict as JSON.
func (s *Server) handleVerdict(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	result := s.lastResult
	s.mu.Unlock()

	if result == nil {
		http.Error(w, "no pipeline run yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result.Verdict)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status   string    `json:"status"`
	Uptime   string    `json:"uptime"`
	StoreID  string    `json:"store_id"`
	LastRun  time.Time `json:"last_run,omitempty"`
	Runs     int       `json:"runs"`
	Running  bool      `json:"running"`
	Headline string    `json:"headline,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:  "running",
		Uptime:  time.Since(s.started).String(),
		StoreID: s.storeID,
		LastRun: s.lastRun,
		Runs:    s.runs,
		Running: s.running,
	}
	if s.lastResult != nil && s.lastResult.Brief != nil {
		resp.Headline = s.lastResult.Brief.Headline
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
