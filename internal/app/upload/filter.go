// Package upload validates audio files before they are sent to the catalog.
package upload

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Result codes returned by the built-in filters.
const (
	CodeUnsupportedFormat = "unsupported_format"
	CodeFileTooLarge      = "file_too_large"
	CodeInvalidFile       = "invalid_file"
)

// ErrRejected marks errors produced for rejected uploads.
var ErrRejected = errors.New("upload rejected")

// Request is a file about to be uploaded.
type Request struct {
	FileName string
	Data     []byte
}

// Ext returns the lower-case extension without the dot.
func (r Request) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(r.FileName)), ".")
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Filter   string
	Code     string
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(filter, code string) Result {
	return Result{Accepted: false, Filter: filter, Code: code}
}

// RejectionError reports which filter rejected an upload.
type RejectionError struct {
	Filter string
	Code   string
}

func (e *RejectionError) Error() string {
	return e.Filter + ": " + e.Code
}

// Err converts a rejection into a *RejectionError marked with ErrRejected.
func (r Result) Err() error {
	if r.Accepted {
		return nil
	}
	return errors.Mark(&RejectionError{Filter: r.Filter, Code: r.Code}, ErrRejected)
}

// Filter is the interface for upload filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig decodes and validates settings. Nil settings select
	// the defaults.
	ValidateConfig(settings map[string]any) error
	Check(ctx context.Context, req Request) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}

// RegisteredNames returns registered filter names in sorted order.
func RegisteredNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
