package guest

import (
	"fmt"
	"slices"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/protocol"
)

// Boundary is the guest's view of the host. On wasm it is backed by the
// request and log imports; in tests by an in-process host.
type Boundary interface {
	// Call sends an encoded request and returns the address of the framed
	// response the host wrote into guest memory.
	Call(req []byte) (uint32, error)

	// Log sends text through the dedicated log import.
	Log(msg string) error

	// Load returns n bytes of guest memory at ptr.
	Load(ptr, n uint32) ([]byte, error)

	// Free releases a block the host obtained from the guest allocator.
	Free(ptr, size, align uint32)
}

// Client issues requests across a Boundary.
type Client struct {
	boundary Boundary
	codec    protocol.Codec
}

// NewClient creates a client. A nil codec selects JSON; it must match the
// host's.
func NewClient(b Boundary, codec protocol.Codec) *Client {
	if codec == nil {
		codec = protocol.JSON()
	}
	return &Client{boundary: b, codec: codec}
}

func (c *Client) Codec() protocol.Codec { return c.codec }

// Request sends req and decodes the response. The response buffer is freed
// on every path once its header has been read.
func (c *Client) Request(req protocol.Request) (protocol.Response, error) {
	if c == nil || c.boundary == nil {
		return protocol.Response{}, errors.NotInitialized(errors.PhaseGuest, "guest client")
	}

	data, err := c.codec.EncodeRequest(req)
	if err != nil {
		return protocol.Response{}, err
	}

	ptr, err := c.boundary.Call(data)
	if err != nil {
		return protocol.Response{}, err
	}

	header, err := c.boundary.Load(ptr, protocol.FrameHeaderSize)
	if err != nil {
		c.boundary.Free(ptr, protocol.FrameHeaderSize, protocol.FrameAlign)
		return protocol.Response{}, errors.Protocol(errors.PhaseGuest, "read response header", err)
	}
	n, err := protocol.FrameLen(header)
	if err != nil {
		c.boundary.Free(ptr, protocol.FrameHeaderSize, protocol.FrameAlign)
		return protocol.Response{}, err
	}
	defer c.boundary.Free(ptr, protocol.FrameHeaderSize+n, protocol.FrameAlign)

	body, err := c.boundary.Load(ptr+protocol.FrameHeaderSize, n)
	if err != nil {
		return protocol.Response{}, errors.Protocol(errors.PhaseGuest, "read response body", err)
	}
	return c.codec.DecodeResponse(slices.Clone(body))
}

// Log sends text as a Log request.
func (c *Client) Log(text string) error {
	resp, err := c.Request(protocol.Log(text))
	if err != nil {
		return err
	}
	return expectEmpty(resp)
}

// Logf formats and sends a Log request.
func (c *Client) Logf(format string, args ...any) error {
	return c.Log(fmt.Sprintf(format, args...))
}

// RawLog writes text through the log import, bypassing the envelope.
func (c *Client) RawLog(text string) error {
	if c == nil || c.boundary == nil {
		return errors.NotInitialized(errors.PhaseGuest, "guest client")
	}
	return c.boundary.Log(text)
}

func expectEmpty(resp protocol.Response) error {
	if resp.Kind != protocol.ResponseEmpty {
		return errors.UnknownTag(errors.PhaseGuest, "response", resp.Kind)
	}
	return nil
}
