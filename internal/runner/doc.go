// Package runner defines the common contract that all data-source runners
// (object storage, SQL engines) must implement, along with the registry that
// maps runner type identifiers to their factories and the configuration
// schema types consumed by the configuration UI.
package runner
