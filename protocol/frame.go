package protocol

import (
	"encoding/binary"

	"github.com/wippyai/wavedash/errors"
)

const (
	// FrameHeaderSize is the length prefix in front of every response the
	// host writes into guest memory.
	FrameHeaderSize = 4

	// FrameAlign is the alignment requested from the guest allocator for frames.
	FrameAlign = 4
)

// Frame prepends the little-endian length prefix to payload.
func Frame(payload []byte) []byte {
	buf := make([]byte, FrameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[FrameHeaderSize:], payload)
	return buf
}

// FrameLen reads the payload length from a frame header.
func FrameLen(header []byte) (uint32, error) {
	if len(header) < FrameHeaderSize {
		return 0, errors.Protocol(errors.PhaseDecode, "short frame header", nil)
	}
	return binary.LittleEndian.Uint32(header), nil
}

// Unframe returns the payload of a complete frame.
func Unframe(buf []byte) ([]byte, error) {
	n, err := FrameLen(buf)
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)-FrameHeaderSize) < uint64(n) {
		return nil, errors.Protocol(errors.PhaseDecode, "truncated frame", nil)
	}
	return buf[FrameHeaderSize : FrameHeaderSize+int(n)], nil
}
