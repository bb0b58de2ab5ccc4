// testserver starts a data-collector API server with a stub runner for E2E
// testing, no real object store needed. Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/comsa33/data-collector/internal/api"
	"github.com/comsa33/data-collector/internal/engine"
	"github.com/comsa33/data-collector/internal/model"
	"github.com/comsa33/data-collector/internal/runner"
	"github.com/comsa33/data-collector/internal/store"
)

// stubRunner serves a fixed object listing after a configurable delay.
type stubRunner struct {
	delay   time.Duration
	entries []runner.ObjectEntry
}

func (s *stubRunner) ListObjects(_ context.Context, _ string) ([]runner.ObjectEntry, error) {
	time.Sleep(s.delay)
	return s.entries, nil
}

func (s *stubRunner) GetMetadata(_ context.Context, objectName string) (model.ObjectMetadata, error) {
	for _, e := range s.entries {
		if e.Name == objectName {
			return model.ObjectMetadata{
				Name:         e.Name,
				Size:         e.Size,
				ETag:         e.ETag,
				ContentType:  "application/octet-stream",
				LastModified: e.LastModified,
			}, nil
		}
	}
	return model.ObjectMetadata{}, runner.ErrObjectNotFound
}

func (s *stubRunner) TestConnection(ctx context.Context) error {
	_, err := s.ListObjects(ctx, "")
	return err
}

func (s *stubRunner) RunQuery(ctx context.Context, _ string) (*model.QueryResult, error) {
	entries, err := s.ListObjects(ctx, "")
	if err != nil {
		return nil, err
	}

	result := &model.QueryResult{
		Columns: []model.Column{
			{Name: "object_name", Type: model.TypeString},
			{Name: "last_modified", Type: model.TypeDate},
			{Name: "size", Type: model.TypeInteger},
			{Name: "etag", Type: model.TypeString},
		},
	}
	for _, e := range entries {
		result.Rows = append(result.Rows, map[string]any{
			"object_name":   e.Name,
			"last_modified": e.LastModified,
			"size":          e.Size,
			"etag":          e.ETag,
		})
	}
	return result, nil
}

type stubFactory struct {
	r *stubRunner
}

func (f *stubFactory) Type() string  { return "stub" }
func (f *stubFactory) Name() string  { return "Stub Storage" }
func (f *stubFactory) Enabled() bool { return true }

func (f *stubFactory) ConfigurationSchema() runner.Schema {
	return runner.Schema{
		Type: "object",
		Properties: map[string]runner.Property{
			"bucket": {Type: "string", Title: "Bucket Name"},
		},
		Order:    []string{"bucket"},
		Required: []string{},
	}
}

func (f *stubFactory) New(_ map[string]any) (runner.Runner, error) {
	return f.r, nil
}

func main() {
	addr := ":8080"
	if v := os.Getenv("COLLECTOR_LISTEN_ADDR"); v != "" {
		addr = v
	}

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	now := time.Now().UTC()
	reg := runner.NewRegistry(logger)
	reg.Register(&stubFactory{r: &stubRunner{
		delay: 500 * time.Millisecond,
		entries: []runner.ObjectEntry{
			{Name: "reports/2025-06-01.csv", LastModified: now, Size: 1024, ETag: "etag-1"},
			{Name: "reports/2025-06-02.csv", LastModified: now, Size: 2048, ETag: "etag-2"},
		},
	}})

	seed := &model.DataSource{
		ID:        model.NewID(),
		Name:      "stub-storage",
		Type:      "stub",
		Options:   map[string]any{"bucket": "reports"},
		CreatedAt: now,
	}
	if err := db.CreateDataSource(context.Background(), seed); err != nil {
		log.Fatalf("failed to seed data source: %v", err)
	}

	eng := engine.NewEngine(db, reg, logger)
	srv := api.NewServer(addr, db, reg, eng, logger, 0)

	logger.Info("testserver: starting", "addr", addr, "data_source", seed.Name)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
