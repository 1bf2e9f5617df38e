package upload

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

const mib = 1 << 20

// SizeLimitConfig represents the configuration for SizeLimitFilter.
type SizeLimitConfig struct {
	MaxMB int `mapstructure:"max_mb" default:"50" validate:"gte=1,lte=1024"`
}

// SizeLimitFilter rejects files larger than the configured size.
type SizeLimitFilter struct {
	maxBytes int64
}

// NewSizeLimitFilter creates a size limit filter with the default limit.
func NewSizeLimitFilter() *SizeLimitFilter {
	f := &SizeLimitFilter{}
	_ = f.ValidateConfig(nil)
	return f
}

func (f *SizeLimitFilter) Name() string {
	return "size_limit_filter"
}

func (f *SizeLimitFilter) Description() string {
	return "Checks that the file is not larger than the size limit"
}

func (f *SizeLimitFilter) ReturnCodes() []string {
	return []string{CodeFileTooLarge}
}

func (f *SizeLimitFilter) ValidateConfig(settings map[string]any) error {
	var config SizeLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.maxBytes = int64(config.MaxMB) * mib
	zlog.Debug().Msgf("size limit filter config: %+v", config)
	return nil
}

// MaxBytes returns the configured limit.
func (f *SizeLimitFilter) MaxBytes() int64 {
	return f.maxBytes
}

func (f *SizeLimitFilter) Check(_ context.Context, req Request) Result {
	if f.maxBytes > 0 && int64(len(req.Data)) > f.maxBytes {
		return Reject(f.Name(), CodeFileTooLarge)
	}
	return Accept()
}

func init() {
	Register("size_limit_filter", func() Filter {
		return &SizeLimitFilter{}
	})
}
