package store

import (
	"context"
	"errors"

	"github.com/comsa33/data-collector/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateName is returned when creating a data source whose name is
// already taken.
var ErrDuplicateName = errors.New("data source name already exists")

// Store defines the persistence operations for data sources, jobs, and
// persisted query results.
type Store interface {
	CreateDataSource(ctx context.Context, ds *model.DataSource) error
	GetDataSource(ctx context.Context, id string) (*model.DataSource, error)
	GetDataSourceByName(ctx context.Context, name string) (*model.DataSource, error)
	ListDataSources(ctx context.Context) ([]*model.DataSource, error)
	DeleteDataSource(ctx context.Context, id string) error

	CreateJob(ctx context.Context, j *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, id, status string) error
	UpdateJob(ctx context.Context, j *model.Job) error

	SaveQueryResult(ctx context.Context, id string, result *model.QueryResult) error
	GetQueryResult(ctx context.Context, id string) (*model.QueryResult, error)

	Close() error
}
