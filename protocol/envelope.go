package protocol

import "fmt"

// RequestKind tags a guest-to-host envelope.
type RequestKind uint8

const (
	RequestLog RequestKind = iota + 1
	RequestGetResource
	RequestSetResource
)

func (k RequestKind) String() string {
	switch k {
	case RequestLog:
		return "Log"
	case RequestGetResource:
		return "GetResource"
	case RequestSetResource:
		return "SetResource"
	default:
		return fmt.Sprintf("RequestKind(%d)", uint8(k))
	}
}

// Request is the envelope a guest sends through the request import.
// Text is set for Log, Key for GetResource and SetResource, Value for SetResource.
type Request struct {
	Text  string
	Key   string
	Value []byte
	Kind  RequestKind
}

// Log builds a Log request.
func Log(text string) Request {
	return Request{Kind: RequestLog, Text: text}
}

// GetResource builds a GetResource request.
func GetResource(key string) Request {
	return Request{Kind: RequestGetResource, Key: key}
}

// SetResource builds a SetResource request carrying an encoded value.
func SetResource(key string, value []byte) Request {
	return Request{Kind: RequestSetResource, Key: key, Value: value}
}

// ResponseKind tags a host-to-guest envelope.
type ResponseKind uint8

const (
	ResponseEmpty ResponseKind = iota + 1
	ResponseResourceValue
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseEmpty:
		return "Empty"
	case ResponseResourceValue:
		return "Resource"
	default:
		return fmt.Sprintf("ResponseKind(%d)", uint8(k))
	}
}

// Response is the envelope the host writes back into guest memory.
// Faults never travel as a Response; they trap the guest call instead.
type Response struct {
	Value []byte
	Kind  ResponseKind
}

// Empty is the response to Log and SetResource.
func Empty() Response {
	return Response{Kind: ResponseEmpty}
}

// ResourceValue is the response to GetResource.
func ResourceValue(value []byte) Response {
	return Response{Kind: ResponseResourceValue, Value: value}
}
