// Package miniostorage implements the runner contract against a MinIO (or
// any S3-compatible) object store using the minio-go client.
package miniostorage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/comsa33/data-collector/internal/model"
	"github.com/comsa33/data-collector/internal/runner"
)

// RunnerType is the identifier data sources use to select this runner.
const RunnerType = "minio"

const defaultRegion = "us-east-1"

// objectAPI is the slice of the minio client the runner uses. Tests
// substitute a fake; *minio.Client satisfies it.
type objectAPI interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

var _ objectAPI = (*minio.Client)(nil)

// Factory builds MinIO runners. Register adds it to a registry.
type Factory struct{}

// Register adds the MinIO factory to the registry.
func Register(reg *runner.Registry) {
	reg.Register(Factory{})
}

// Type returns the runner type identifier.
func (Factory) Type() string { return RunnerType }

// Name returns the display name.
func (Factory) Name() string { return "MinIO" }

// Enabled reports whether the minio client is usable. The client library is
// compiled into this binary, so availability is a build-time fact here; the
// check is kept so the registry treats every factory uniformly.
func (Factory) Enabled() bool { return true }

// ConfigurationSchema describes the MinIO connection fields.
func (Factory) ConfigurationSchema() runner.Schema {
	return runner.Schema{
		Type: "object",
		Properties: map[string]runner.Property{
			"endpoint":   {Type: "string", Title: "Endpoint URL"},
			"access_key": {Type: "string", Title: "Access Key"},
			"secret_key": {Type: "string", Title: "Secret Key"},
			"bucket":     {Type: "string", Title: "Bucket Name"},
			"region":     {Type: "string", Title: "Region", Default: defaultRegion},
			"secure":     {Type: "boolean", Title: "Use SSL?", Default: false},
		},
		Secret:   []string{"secret_key"},
		Order:    []string{"endpoint", "access_key", "secret_key", "bucket", "region", "secure"},
		Required: []string{"endpoint", "access_key", "secret_key", "bucket"},
	}
}

// New builds a runner with its own client connection from a data source's
// configuration bag.
func (f Factory) New(options map[string]any) (runner.Runner, error) {
	endpoint := optString(options, "endpoint", "")
	if endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(
			optString(options, "access_key", ""),
			optString(options, "secret_key", ""),
			"",
		),
		Secure: optBool(options, "secure", false),
		Region: optString(options, "region", defaultRegion),
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client for %s: %w", endpoint, err)
	}

	return &Runner{
		client: client,
		bucket: optString(options, "bucket", ""),
	}, nil
}

// Runner talks to one MinIO endpoint. Each instance owns exactly one client
// for its lifetime.
type Runner struct {
	client objectAPI
	bucket string
}

var _ runner.Runner = (*Runner)(nil)

// ListObjects lists the objects in the named bucket. An explicit bucket
// always overrides the configured default.
func (r *Runner) ListObjects(ctx context.Context, bucket string) ([]runner.ObjectEntry, error) {
	if bucket == "" {
		bucket = r.bucket
	}

	entries := []runner.ObjectEntry{}
	for obj := range r.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list objects in bucket %q: %v",
				classify(obj.Err), bucket, obj.Err)
		}
		entries = append(entries, runner.ObjectEntry{
			Name:         obj.Key,
			LastModified: obj.LastModified,
			Size:         obj.Size,
			ETag:         obj.ETag,
		})
	}
	return entries, nil
}

// GetMetadata reports the attributes of one object in the default bucket.
func (r *Runner) GetMetadata(ctx context.Context, objectName string) (model.ObjectMetadata, error) {
	obj, err := r.client.StatObject(ctx, r.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		return model.ObjectMetadata{}, fmt.Errorf("%w: stat object %q: %v",
			classify(err), objectName, err)
	}

	return model.ObjectMetadata{
		Name:         obj.Key,
		Size:         obj.Size,
		ETag:         obj.ETag,
		ContentType:  obj.ContentType,
		LastModified: obj.LastModified,
	}, nil
}

// TestConnection probes the endpoint by listing the default bucket. Any
// failure collapses into a single connectivity error carrying the cause.
func (r *Runner) TestConnection(ctx context.Context) error {
	if _, err := r.ListObjects(ctx, ""); err != nil {
		return fmt.Errorf("%w: connection test failed: %v", runner.ErrUnavailable, err)
	}
	return nil
}

// storageQuery is the backend-specific command shape: a JSON document that
// may name the bucket to list.
type storageQuery struct {
	Bucket string `json:"bucket"`
}

// RunQuery lists a bucket and returns the listing in the uniform tabular
// shape. The declared columns and the row keys stay in lock-step.
func (r *Runner) RunQuery(ctx context.Context, query string) (*model.QueryResult, error) {
	var q storageQuery
	if err := json.Unmarshal([]byte(query), &q); err != nil {
		return nil, fmt.Errorf("%w: parse query: %v", runner.ErrSyntax, err)
	}

	entries, err := r.ListObjects(ctx, q.Bucket)
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
		Rows: make([]map[string]any, 0, len(entries)),
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

// classify maps a minio client error to a contract fault sentinel, so no
// backend-specific error type escapes the runner.
func classify(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return runner.ErrInvalidTarget
	case "NoSuchKey":
		return runner.ErrObjectNotFound
	default:
		return runner.ErrUnavailable
	}
}

func optString(options map[string]any, key, def string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return def
}

func optBool(options map[string]any, key string, def bool) bool {
	if v, ok := options[key].(bool); ok {
		return v
	}
	return def
}
