package fifoq

import (
	"encoding/binary"
)

// Every frame is exactly the channel's frame size on the wire: a 4-byte
// big-endian payload length, the payload, and zero padding. The length
// prefix lets the consumer recover the payload byte-for-byte, including
// trailing whitespace, which padded-only framing would silently eat.
// Keeping the whole frame at or under MaxFrameSize is what makes a single
// write atomic with respect to other producers.

// maxPayload returns the usable payload capacity for a frame size.
func maxPayload(frameSize int) int {
	return frameSize - frameHeaderSize
}

// encodeFrame lays payload into a fresh frame of exactly frameSize bytes.
// It returns ErrOversize without allocating when the payload does not fit.
func encodeFrame(payload []byte, frameSize int) ([]byte, error) {
	if len(payload) > maxPayload(frameSize) {
		return nil, ErrOversize
	}
	frame := make([]byte, frameSize)
	binary.BigEndian.PutUint32(frame[:frameHeaderSize], uint32(len(payload)))
	copy(frame[frameHeaderSize:], payload)
	return frame, nil
}

// decodeFrame extracts the payload from a full frame. The returned slice
// aliases the frame buffer.
func decodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, ErrDecode
	}
	n := binary.BigEndian.Uint32(frame[:frameHeaderSize])
	if int(n) > len(frame)-frameHeaderSize {
		return nil, ErrDecode
	}
	return frame[frameHeaderSize : frameHeaderSize+int(n)], nil
}

// isPill reports whether a decoded payload is the reserved shutdown value.
func isPill(payload []byte) bool {
	return string(payload) == PoisonPill
}
