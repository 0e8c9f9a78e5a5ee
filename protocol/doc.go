// Package protocol defines the request/response envelopes exchanged across the
// guest/host boundary and the codecs that encode them.
//
// A guest sends one of three requests:
//
//	Log(text)
//	GetResource(key)
//	SetResource(key, value)
//
// and the host answers with Empty or ResourceValue(value). Lookup and decode
// failures are not responses: the host traps the guest call with a structured
// error instead.
//
// Two codecs are provided. JSON mirrors the original textual protocol with
// externally tagged objects and embedded JSON values; Borsh is a compact
// binary alternative. A deployment picks exactly one:
//
//	codec, err := protocol.ByName("json")
//	data, err := codec.EncodeRequest(protocol.GetResource("Counter"))
//
// Responses written into guest memory are framed with a 4-byte little-endian
// length prefix, since the transfer buffer is a flat region without framing
// of its own.
package protocol
