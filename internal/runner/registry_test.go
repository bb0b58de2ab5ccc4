package runner_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/comsa33/data-collector/internal/model"
	"github.com/comsa33/data-collector/internal/runner"
)

// stubFactory is a minimal Factory for registry tests.
type stubFactory struct {
	typ     string
	name    string
	enabled bool
}

func (f *stubFactory) Type() string  { return f.typ }
func (f *stubFactory) Name() string  { return f.name }
func (f *stubFactory) Enabled() bool { return f.enabled }

func (f *stubFactory) ConfigurationSchema() runner.Schema {
	return runner.Schema{Type: "object"}
}

func (f *stubFactory) New(_ map[string]any) (runner.Runner, error) {
	return &stubRunner{}, nil
}

// stubRunner satisfies the Runner contract but does nothing.
type stubRunner struct{}

func (r *stubRunner) ListObjects(_ context.Context, _ string) ([]runner.ObjectEntry, error) {
	return nil, nil
}

func (r *stubRunner) GetMetadata(_ context.Context, _ string) (model.ObjectMetadata, error) {
	return model.ObjectMetadata{}, nil
}

func (r *stubRunner) TestConnection(_ context.Context) error { return nil }

func (r *stubRunner) RunQuery(_ context.Context, _ string) (*model.QueryResult, error) {
	return &model.QueryResult{}, nil
}

func newTestRegistry() *runner.Registry {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return runner.NewRegistry(logger)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubFactory{typ: "minio", name: "MinIO", enabled: true})

	f, err := reg.Lookup("minio")
	if err != nil {
		t.Fatalf("Lookup(minio): %v", err)
	}
	if f.Name() != "MinIO" {
		t.Errorf("factory name = %q, want %q", f.Name(), "MinIO")
	}
}

func TestRegistryLookupNotRegistered(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.Lookup("postgres")
	if !errors.Is(err, runner.ErrNotRegistered) {
		t.Errorf("Lookup(postgres) error = %v, want ErrNotRegistered", err)
	}
}

func TestRegistrySkipsDisabledFactory(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubFactory{typ: "minio", name: "MinIO", enabled: false})

	if _, err := reg.Lookup("minio"); !errors.Is(err, runner.ErrNotRegistered) {
		t.Errorf("Lookup after disabled registration error = %v, want ErrNotRegistered", err)
	}
}

// Re-registering a type replaces the previous factory: last registration
// wins. Deliberate, to allow overrides in tests and alternate builds.
func TestRegistryReRegisterOverwrites(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubFactory{typ: "minio", name: "MinIO", enabled: true})
	reg.Register(&stubFactory{typ: "minio", name: "MinIO v2", enabled: true})

	f, err := reg.Lookup("minio")
	if err != nil {
		t.Fatalf("Lookup(minio): %v", err)
	}
	if f.Name() != "MinIO v2" {
		t.Errorf("factory name after re-registration = %q, want %q", f.Name(), "MinIO v2")
	}

	if got := len(reg.List()); got != 1 {
		t.Errorf("List() length after re-registration = %d, want 1", got)
	}
}

func TestRegistryListSorted(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubFactory{typ: "s3", name: "Amazon S3", enabled: true})
	reg.Register(&stubFactory{typ: "minio", name: "MinIO", enabled: true})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d runners, want 2", len(list))
	}
	if list[0].Type != "minio" || list[1].Type != "s3" {
		t.Errorf("List() order = [%s %s], want [minio s3]", list[0].Type, list[1].Type)
	}
}
