package upload

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// ExtensionConfig represents the configuration for ExtensionFilter.
type ExtensionConfig struct {
	Allowed []string `mapstructure:"allowed" default:"[\"mp3\",\"wav\",\"flac\",\"aac\",\"m4a\"]" validate:"min=1,dive,required"`
}

// ExtensionFilter accepts files whose extension is an allowed audio format.
type ExtensionFilter struct {
	allowed map[string]struct{}
}

// NewExtensionFilter creates an extension filter with the default formats.
func NewExtensionFilter() *ExtensionFilter {
	f := &ExtensionFilter{}
	_ = f.ValidateConfig(nil)
	return f
}

func (f *ExtensionFilter) Name() string {
	return "extension_filter"
}

func (f *ExtensionFilter) Description() string {
	return "Checks that the file extension is a supported audio format"
}

func (f *ExtensionFilter) ReturnCodes() []string {
	return []string{CodeUnsupportedFormat}
}

func (f *ExtensionFilter) ValidateConfig(settings map[string]any) error {
	var config ExtensionConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}

	allowed := make(map[string]struct{}, len(config.Allowed))
	for _, ext := range config.Allowed {
		allowed[strings.TrimPrefix(strings.ToLower(ext), ".")] = struct{}{}
	}
	f.allowed = allowed
	zlog.Debug().Msgf("extension filter config: %+v", config)
	return nil
}

func (f *ExtensionFilter) Check(_ context.Context, req Request) Result {
	if _, ok := f.allowed[req.Ext()]; !ok {
		return Reject(f.Name(), CodeUnsupportedFormat)
	}
	return Accept()
}

func init() {
	Register("extension_filter", func() Filter {
		return &ExtensionFilter{}
	})
}
