package upload

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// MetadataConfig represents the configuration for MetadataFilter.
type MetadataConfig struct {
	// Sniff compares the leading bytes against the format the extension claims.
	Sniff *bool `mapstructure:"sniff" default:"true"`
}

// MetadataFilter rejects unnamed or empty files and, when sniffing is on,
// files whose content does not look like the format their extension claims.
type MetadataFilter struct {
	sniff bool
}

// NewMetadataFilter creates a metadata filter with sniffing enabled.
func NewMetadataFilter() *MetadataFilter {
	f := &MetadataFilter{}
	_ = f.ValidateConfig(nil)
	return f
}

func (f *MetadataFilter) Name() string {
	return "metadata_filter"
}

func (f *MetadataFilter) Description() string {
	return "Checks the file name and that the content matches its audio format"
}

func (f *MetadataFilter) ReturnCodes() []string {
	return []string{CodeInvalidFile}
}

func (f *MetadataFilter) ValidateConfig(settings map[string]any) error {
	var config MetadataConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.sniff = *config.Sniff
	zlog.Debug().Msgf("metadata filter config: sniff=%t", f.sniff)
	return nil
}

func (f *MetadataFilter) Check(_ context.Context, req Request) Result {
	base := filepath.Base(strings.TrimSpace(req.FileName))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || base == "/" {
		return Reject(f.Name(), CodeInvalidFile)
	}
	if len(req.Data) == 0 {
		return Reject(f.Name(), CodeInvalidFile)
	}
	if f.sniff {
		if match, known := sniffers[req.Ext()]; known && !match(req.Data) {
			return Reject(f.Name(), CodeInvalidFile)
		}
	}
	return Accept()
}

// sniffers report whether data starts like the keyed format.
var sniffers = map[string]func([]byte) bool{
	"mp3": func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("ID3")) || isFrameSync(b)
	},
	"wav": func(b []byte) bool {
		return len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE"))
	},
	"flac": func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("fLaC"))
	},
	"aac": func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("ADIF")) || isFrameSync(b)
	},
	"m4a": func(b []byte) bool {
		return len(b) >= 8 && bytes.Equal(b[4:8], []byte("ftyp"))
	},
}

// isFrameSync matches the 11/12-bit sync word of MPEG audio and ADTS frames.
func isFrameSync(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0
}

func init() {
	Register("metadata_filter", func() Filter {
		return &MetadataFilter{}
	})
}
