package protocol

import (
	"strings"

	"github.com/wippyai/wavedash/errors"
)

// Codec encodes envelopes and resource payloads. Host and guests of one
// deployment must use the same codec; key strings and payload encoding are
// the compatibility surface between a guest build and its host.
type Codec interface {
	Name() string

	EncodeRequest(req Request) ([]byte, error)
	DecodeRequest(data []byte) (Request, error)
	EncodeResponse(resp Response) ([]byte, error)
	DecodeResponse(data []byte) (Response, error)

	// Marshal and Unmarshal convert resource values to and from the bytes
	// carried in ResourceValue and SetResource.
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

const (
	CodecJSON  = "json"
	CodecBorsh = "borsh"
)

// ByName returns the codec registered under name. Matching is case-insensitive.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", CodecJSON:
		return JSON(), nil
	case CodecBorsh:
		return Borsh(), nil
	default:
		return nil, errors.InvalidInput(errors.PhaseConfig, "unknown codec "+name)
	}
}
