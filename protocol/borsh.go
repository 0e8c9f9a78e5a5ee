package protocol

import (
	"fmt"

	"github.com/near/borsh-go"

	"github.com/wippyai/wavedash/errors"
)

// borshEnvelope is the binary shape of both request and response envelopes.
// Fields unused by a variant are left empty.
type borshEnvelope struct {
	Tag   uint8
	Text  string
	Key   string
	Value []byte
}

type borshCodec struct{}

// Borsh returns the binary codec. Resource values are opaque byte strings
// inside the envelope, so any Borsh-serializable Go type can be a resource.
func Borsh() Codec {
	return borshCodec{}
}

func (borshCodec) Name() string { return CodecBorsh }

func (borshCodec) EncodeRequest(req Request) ([]byte, error) {
	switch req.Kind {
	case RequestLog, RequestGetResource, RequestSetResource:
	default:
		return nil, errors.UnknownTag(errors.PhaseEncode, "request", req.Kind)
	}
	return serialize(borshEnvelope{Tag: uint8(req.Kind), Text: req.Text, Key: req.Key, Value: req.Value})
}

func (borshCodec) DecodeRequest(data []byte) (Request, error) {
	env, err := deserialize(data)
	if err != nil {
		return Request{}, err
	}
	kind := RequestKind(env.Tag)
	switch kind {
	case RequestLog:
		return Log(env.Text), nil
	case RequestGetResource:
		return GetResource(env.Key), nil
	case RequestSetResource:
		return SetResource(env.Key, env.Value), nil
	default:
		return Request{}, errors.UnknownTag(errors.PhaseDecode, "request", env.Tag)
	}
}

func (borshCodec) EncodeResponse(resp Response) ([]byte, error) {
	switch resp.Kind {
	case ResponseEmpty, ResponseResourceValue:
	default:
		return nil, errors.UnknownTag(errors.PhaseEncode, "response", resp.Kind)
	}
	return serialize(borshEnvelope{Tag: uint8(resp.Kind), Value: resp.Value})
}

func (borshCodec) DecodeResponse(data []byte) (Response, error) {
	env, err := deserialize(data)
	if err != nil {
		return Response{}, err
	}
	switch ResponseKind(env.Tag) {
	case ResponseEmpty:
		return Empty(), nil
	case ResponseResourceValue:
		return ResourceValue(env.Value), nil
	default:
		return Response{}, errors.UnknownTag(errors.PhaseDecode, "response", env.Tag)
	}
}

func (borshCodec) Marshal(v any) ([]byte, error) {
	return borsh.Serialize(v)
}

func (borshCodec) Unmarshal(data []byte, v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("borsh: %v", r)
		}
	}()
	return borsh.Deserialize(v, data)
}

func serialize(env borshEnvelope) ([]byte, error) {
	data, err := borsh.Serialize(env)
	if err != nil {
		return nil, errors.Protocol(errors.PhaseEncode, "encode envelope", err)
	}
	return data, nil
}

func deserialize(data []byte) (env borshEnvelope, err error) {
	if len(data) == 0 {
		return env, errors.Protocol(errors.PhaseDecode, "empty envelope", nil)
	}
	// Guest-controlled length prefixes reach make() inside borsh-go.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Protocol(errors.PhaseDecode, "malformed envelope", fmt.Errorf("%v", r))
		}
	}()
	if err := borsh.Deserialize(&env, data); err != nil {
		return env, errors.Protocol(errors.PhaseDecode, "decode envelope", err)
	}
	if env.size() != len(data) {
		return env, errors.Protocol(errors.PhaseDecode, "trailing bytes after envelope", nil)
	}
	return env, nil
}

// size is the encoded length: the tag byte plus three u32-prefixed fields.
func (e borshEnvelope) size() int {
	return 1 + 4 + len(e.Text) + 4 + len(e.Key) + 4 + len(e.Value)
}
