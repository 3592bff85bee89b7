package client

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// JSONCodecName is the gRPC content-subtype of JSONCodec.
const JSONCodecName = "json"

// JSONCodec lets the gRPC transport carry the same JSON messages as the HTTP
// transport, so no generated protobuf types are needed.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(JSONCodec{})
}
