package runner

import (
	"context"
	"errors"
	"time"

	"github.com/comsa33/data-collector/internal/model"
)

// Fault sentinels. Concrete runners wrap every backend-client failure into one
// of these before it crosses the contract boundary, so no backend-specific
// error type ever escapes a runner.
var (
	// ErrUnavailable marks transport-level failures: the backend could not
	// be reached or returned a malformed response.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrInvalidTarget marks a named collection (bucket, schema) that does
	// not exist on the backend.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrObjectNotFound marks a requested object that does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrSyntax marks a command the backend itself rejected as malformed.
	ErrSyntax = errors.New("syntax error")
)

// ObjectEntry is one entry in a storage listing.
type ObjectEntry struct {
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
}

// Runner is the capability set every data-source runner must expose,
// independent of which backend it talks to.
//
// Implementations must never panic across this boundary: all failures are
// returned as error values wrapping one of the fault sentinels above, with a
// human-readable message.
type Runner interface {
	// ListObjects lists the objects in the named collection. An empty
	// bucket selects the runner's configured default.
	ListObjects(ctx context.Context, bucket string) ([]ObjectEntry, error)

	// GetMetadata reports the attributes of a single object in the
	// configured default collection.
	GetMetadata(ctx context.Context, objectName string) (model.ObjectMetadata, error)

	// TestConnection probes connectivity by listing the default collection.
	// Any failure is reported as a single ErrUnavailable-wrapped error
	// carrying the underlying cause's message.
	TestConnection(ctx context.Context) error

	// RunQuery executes a backend-specific encoded command and returns the
	// uniform tabular result. Invalid encoding yields an error, never a
	// panic.
	RunQuery(ctx context.Context, query string) (*model.QueryResult, error)
}

// Factory creates runner instances for one runner type. Each instance owns
// its own backend client handle and is not shared across calls.
type Factory interface {
	// Type is the stable identifier data sources reference (e.g. "minio").
	Type() string

	// Name is the human-readable display name (e.g. "MinIO").
	Name() string

	// Enabled reports whether this runner can operate in the current
	// environment. Disabled factories are skipped at registration.
	Enabled() bool

	// ConfigurationSchema describes the configuration fields this runner
	// accepts. Pure static data, no I/O.
	ConfigurationSchema() Schema

	// New builds a runner from a data source's configuration bag.
	New(options map[string]any) (Runner, error)
}
