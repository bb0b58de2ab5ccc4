package api

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/comsa33/data-collector/internal/engine"
	"github.com/comsa33/data-collector/internal/model"
	"github.com/comsa33/data-collector/internal/runner"
	"github.com/comsa33/data-collector/internal/store"
)

// stubRunner is a controllable runner for API tests.
type stubRunner struct {
	mu       sync.Mutex
	runCalls int

	delay   time.Duration
	result  *model.QueryResult
	runErr  error
	connErr error
}

func (r *stubRunner) ListObjects(_ context.Context, _ string) ([]runner.ObjectEntry, error) {
	return nil, nil
}

func (r *stubRunner) GetMetadata(_ context.Context, _ string) (model.ObjectMetadata, error) {
	return model.ObjectMetadata{}, nil
}

func (r *stubRunner) TestConnection(_ context.Context) error {
	return r.connErr
}

func (r *stubRunner) RunQuery(ctx context.Context, _ string) (*model.QueryResult, error) {
	r.mu.Lock()
	r.runCalls++
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.runErr != nil {
		return nil, r.runErr
	}
	return r.result, nil
}

func (r *stubRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runCalls
}

// stubFactory registers stubRunner under the "stub" type.
type stubFactory struct {
	r *stubRunner
}

func (f *stubFactory) Type() string  { return "stub" }
func (f *stubFactory) Name() string  { return "Stub" }
func (f *stubFactory) Enabled() bool { return true }

func (f *stubFactory) ConfigurationSchema() runner.Schema {
	return runner.Schema{
		Type: "object",
		Properties: map[string]runner.Property{
			"endpoint":   {Type: "string", Title: "Endpoint"},
			"secret_key": {Type: "string", Title: "Secret Key"},
		},
		Secret:   []string{"secret_key"},
		Order:    []string{"endpoint", "secret_key"},
		Required: []string{"endpoint"},
	}
}

func (f *stubFactory) New(_ map[string]any) (runner.Runner, error) {
	return f.r, nil
}

func storageListing() *model.QueryResult {
	return &model.QueryResult{
		Columns: []model.Column{
			{Name: "object_name", Type: model.TypeString},
			{Name: "size", Type: model.TypeInteger},
		},
		Rows: []map[string]any{
			{"object_name": "a.csv", "size": 1024},
			{"object_name": "b.csv", "size": 2048},
		},
	}
}

// newTestServer wires a server around an in-memory store, a registry holding
// the given stub runner, and a real engine, with a short poll interval so
// tests exercise the full poll budget in milliseconds.
func newTestServer(t *testing.T, r *stubRunner) (*Server, store.Store) {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := runner.NewRegistry(logger)
	reg.Register(&stubFactory{r: r})

	eng := engine.NewEngine(s, reg, logger)
	// Drain in-flight jobs before the store closes.
	t.Cleanup(eng.Wait)

	return NewServer(":0", s, reg, eng, logger, 5*time.Millisecond), s
}

func createTestDataSource(t *testing.T, s store.Store, name, typ string) *model.DataSource {
	t.Helper()
	ds := &model.DataSource{
		ID:        model.NewID(),
		Name:      name,
		Type:      typ,
		Options:   map[string]any{"endpoint": "play.min.io", "secret_key": "hunter2"},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateDataSource(context.Background(), ds); err != nil {
		t.Fatalf("CreateDataSource: %v", err)
	}
	return ds
}
