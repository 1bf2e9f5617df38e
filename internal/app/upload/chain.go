package upload

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodeck/internal/infra/config"
)

// order is the execution order of the built-in filters. Cheap structural
// checks run before the size check so an empty file reports invalid_file.
var order = []string{"metadata_filter", "extension_filter", "size_limit_filter"}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds the chain of enabled filters with their settings.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	for name := range cfg.Upload.Filters {
		if _, ok := registry[name]; !ok {
			return nil, errors.Newf("unknown upload filter %q", name)
		}
	}

	c := NewChain()
	for _, name := range order {
		if !cfg.IsFilterEnabled(name) {
			zlog.Debug().Msgf("upload: %s disabled", name)
			continue
		}
		f := registry[name]()
		if err := f.ValidateConfig(cfg.FilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		c.Add(f)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the request.
func (c *Chain) Execute(ctx context.Context, req Request) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, req)
		if !result.Accepted {
			zlog.Debug().Msgf("upload: %s rejected by %s (%s)", req.FileName, f.Name(), result.Code)
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
