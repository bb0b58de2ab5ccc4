package model

import "time"

// Column semantic type constants. Every column a runner declares must use one
// of these.
const (
	TypeString  = "string"
	TypeDate    = "date"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeFloat   = "float"
)

// Column describes one column of a QueryResult.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is the uniform tabular shape every runner produces: an ordered
// list of column descriptors and a sequence of rows keyed by column name.
// Invariant: every row's key set is exactly the declared column names.
type QueryResult struct {
	Columns []Column         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ObjectMetadata holds the per-object attributes a storage runner reports.
type ObjectMetadata struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}
