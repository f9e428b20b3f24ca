// Package proto implements the framed request/response wire protocol: a
// fixed 12-byte header followed by a bounded JSON payload, with blocking
// exact reads/writes over the two control FIFOs.
package proto

import (
	"fmt"
	"io"

	"erraid/internal/codec"
	"erraid/internal/common"
	"erraid/internal/errs"
)

// Message is one framed protocol record: a type code plus its raw
// payload bytes.
type Message struct {
	Type    common.MessageType
	Payload []byte
}

// Pack builds the wire bytes for a header + payload record. Fails if the
// payload is at or above the maximum payload length.
func Pack(msgType common.MessageType, payload []byte) ([]byte, error) {
	if len(payload) >= common.MaxPayloadLen {
		return nil, errs.Wrap(errs.ErrPayloadTooLarge, errs.KindProtocol, "pack")
	}

	buf := make([]byte, common.HeaderLen+len(payload))
	codec.PutUint32LE(buf[0:4], common.Magic)
	buf[4] = common.Version
	buf[5] = byte(msgType)
	buf[6] = 0
	buf[7] = 0
	codec.PutUint32LE(buf[8:12], uint32(len(payload)))
	copy(buf[common.HeaderLen:], payload)
	return buf, nil
}

// header is the decoded form of the first 12 bytes of a record.
type header struct {
	magic         uint32
	version       uint8
	msgType       common.MessageType
	payloadLength uint32
}

// validateHeader decodes and checks a 12-byte header buffer.
func validateHeader(buf []byte) (header, error) {
	h := header{
		magic:         codec.Uint32LE(buf[0:4]),
		version:       buf[4],
		msgType:       common.MessageType(buf[5]),
		payloadLength: codec.Uint32LE(buf[8:12]),
	}
	if h.magic != common.Magic || h.version != common.Version {
		return header{}, errs.Wrap(errs.ErrBadHeader, errs.KindProtocol, "validate-header")
	}
	if h.payloadLength >= common.MaxPayloadLen {
		return header{}, errs.Wrap(errs.ErrPayloadTooLarge, errs.KindProtocol, "validate-header")
	}
	return h, nil
}

// ReadMessage performs a blocking exact-read of one framed record from r.
// It never partially populates the returned Message on error.
func ReadMessage(r io.Reader) (Message, error) {
	hdrBuf := make([]byte, common.HeaderLen)
	if err := codec.ReadExact(r, hdrBuf); err != nil {
		return Message{}, errs.Wrap(errs.ErrShortRead, errs.KindProtocol, "read-message")
	}

	h, err := validateHeader(hdrBuf)
	if err != nil {
		return Message{}, err
	}

	payload := make([]byte, h.payloadLength)
	if h.payloadLength > 0 {
		if err := codec.ReadExact(r, payload); err != nil {
			return Message{}, errs.Wrap(errs.ErrShortRead, errs.KindProtocol, "read-message")
		}
	}

	return Message{Type: h.msgType, Payload: payload}, nil
}

// WriteMessage validates and writes one framed record to w, blocking
// until the full record is written or an unrecoverable error occurs.
func WriteMessage(w io.Writer, msgType common.MessageType, payload []byte) error {
	buf, err := Pack(msgType, payload)
	if err != nil {
		return err
	}
	if err := codec.WriteExact(w, buf); err != nil {
		return fmt.Errorf("proto: write-message: %w", err)
	}
	return nil
}
