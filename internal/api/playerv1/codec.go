package playerv1

import (
	"encoding/json"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
)

// codecName replaces Connect's built-in protobuf JSON codec, so both the
// Connect and gRPC-Web JSON content types select it.
const codecName = "json"

// jsonCodec marshals plain Go structs.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %T", msg)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrapf(err, "unmarshal %T", msg)
	}
	return nil
}

// WithJSON selects the plain-struct JSON codec.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
