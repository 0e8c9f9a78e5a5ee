package protocol

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"

	"github.com/wippyai/wavedash/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Externally tagged envelope shapes:
//
//	{"Log":"text"}
//	{"GetResource":{"type_path":"Counter"}}
//	{"SetResource":{"type_path":"Counter","value":43}}
//	"Empty"
//	{"Resource":42}
type jsonKeyed struct {
	TypePath string              `json:"type_path"`
	Value    jsoniter.RawMessage `json:"value,omitempty"`
}

type jsonCodec struct{}

// JSON returns the textual codec. Resource values are embedded as raw JSON
// inside the envelope, so SetResource values must themselves be valid JSON.
func JSON() Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string { return CodecJSON }

func (jsonCodec) EncodeRequest(req Request) ([]byte, error) {
	var env map[string]any
	switch req.Kind {
	case RequestLog:
		env = map[string]any{"Log": req.Text}
	case RequestGetResource:
		env = map[string]any{"GetResource": jsonKeyed{TypePath: req.Key}}
	case RequestSetResource:
		value := req.Value
		if len(value) == 0 {
			value = []byte("null")
		}
		if err := validJSON(value); err != nil {
			return nil, errors.Protocol(errors.PhaseEncode, "SetResource value is not valid JSON", err)
		}
		env = map[string]any{"SetResource": jsonKeyed{TypePath: req.Key, Value: value}}
	default:
		return nil, errors.UnknownTag(errors.PhaseEncode, "request", req.Kind)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Protocol(errors.PhaseEncode, "encode request", err)
	}
	return data, nil
}

func (jsonCodec) DecodeRequest(data []byte) (Request, error) {
	tag, body, err := splitTagged(data)
	if err != nil {
		return Request{}, err
	}

	switch tag {
	case "Log":
		var text string
		if err := json.Unmarshal(body, &text); err != nil {
			return Request{}, errors.Protocol(errors.PhaseDecode, "decode Log", err)
		}
		return Log(text), nil
	case "GetResource":
		var k jsonKeyed
		if err := json.Unmarshal(body, &k); err != nil {
			return Request{}, errors.Protocol(errors.PhaseDecode, "decode GetResource", err)
		}
		return GetResource(k.TypePath), nil
	case "SetResource":
		var k jsonKeyed
		if err := json.Unmarshal(body, &k); err != nil {
			return Request{}, errors.Protocol(errors.PhaseDecode, "decode SetResource", err)
		}
		return SetResource(k.TypePath, []byte(k.Value)), nil
	default:
		return Request{}, errors.UnknownTag(errors.PhaseDecode, "request", tag)
	}
}

func (jsonCodec) EncodeResponse(resp Response) ([]byte, error) {
	switch resp.Kind {
	case ResponseEmpty:
		return []byte(`"Empty"`), nil
	case ResponseResourceValue:
		if err := validJSON(resp.Value); err != nil {
			return nil, errors.Protocol(errors.PhaseEncode, "resource value is not valid JSON", err)
		}
		data, err := json.Marshal(map[string]jsoniter.RawMessage{"Resource": resp.Value})
		if err != nil {
			return nil, errors.Protocol(errors.PhaseEncode, "encode response", err)
		}
		return data, nil
	default:
		return nil, errors.UnknownTag(errors.PhaseEncode, "response", resp.Kind)
	}
}

func (jsonCodec) DecodeResponse(data []byte) (Response, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var unit string
		if err := json.Unmarshal(trimmed, &unit); err != nil {
			return Response{}, errors.Protocol(errors.PhaseDecode, "decode unit response", err)
		}
		if unit != "Empty" {
			return Response{}, errors.UnknownTag(errors.PhaseDecode, "response", unit)
		}
		return Empty(), nil
	}

	tag, body, err := splitTagged(trimmed)
	if err != nil {
		return Response{}, err
	}
	if tag != "Resource" {
		return Response{}, errors.UnknownTag(errors.PhaseDecode, "response", tag)
	}
	return ResourceValue([]byte(body)), nil
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// validJSON accepts exactly one JSON value of any kind, including a bare
// top-level number, which jsoniter's Valid rejects at end of input.
func validJSON(data []byte) error {
	var v any
	return json.Unmarshal(data, &v)
}

// splitTagged decodes a single-key object into its tag and raw body.
func splitTagged(data []byte) (string, jsoniter.RawMessage, error) {
	var env map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, errors.Protocol(errors.PhaseDecode, "envelope is not a tagged object", err)
	}
	if len(env) != 1 {
		return "", nil, errors.Protocol(errors.PhaseDecode, "envelope must carry exactly one tag", nil)
	}
	for tag, body := range env {
		return tag, body, nil
	}
	return "", nil, nil
}
