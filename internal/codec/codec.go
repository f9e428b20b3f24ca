// Package codec provides exact-I/O and encoding helpers shared by the
// framed protocol and the task store: retry-on-interrupt exact reads and
// writes, base64 encoding for stdio snapshots, and the fixed-width hex
// encoding used by task files for calendar masks.
package codec

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"syscall"
)

// ErrShortRead is returned by ReadExact when the stream ends before the
// requested number of bytes has been read.
var ErrShortRead = errors.New("codec: unexpected end of stream")

// ReadExact reads exactly len(buf) bytes from r, retrying on EINTR and on
// short reads that are not EOF. Returns ErrShortRead if the stream ends
// before buf is full.
func ReadExact(r io.Reader, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			if err == io.EOF {
				if total == len(buf) {
					return nil
				}
				return ErrShortRead
			}
			return err
		}
		if n == 0 {
			return ErrShortRead
		}
	}
	return nil
}

// WriteExact writes all of buf to w, retrying on EINTR and on short
// writes.
func WriteExact(w io.Writer, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// PutUint32LE writes v into buf[0:4] in little-endian order.
func PutUint32LE(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// Uint32LE reads a little-endian uint32 from buf[0:4].
func Uint32LE(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// EncodeBase64 encodes buf using standard base64 with padding, as emitted
// in RSP_GET_STDOUT/RSP_GET_STDERR payloads.
func EncodeBase64(buf []byte) string {
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeBase64 decodes a standard base64 string.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// EncodeMask encodes a mask value as fixed-width, upper-case hexadecimal,
// left-padded with zeros to width digits, as used in task files and
// schedule JSON payloads.
func EncodeMask(v uint64, width int) string {
	s := fmt.Sprintf("%0*X", width, v)
	if len(s) > width {
		s = s[len(s)-width:]
	}
	return s
}

// DecodeMask parses a fixed-width hexadecimal mask string. It rejects
// strings whose length does not match width.
func DecodeMask(s string, width int) (uint64, error) {
	if len(s) != width {
		return 0, fmt.Errorf("codec: mask %q must be exactly %d hex digits", s, width)
	}
	var v uint64
	_, err := fmt.Sscanf(s, "%X", &v)
	if err != nil {
		return 0, fmt.Errorf("codec: invalid mask %q: %w", s, err)
	}
	return v, nil
}
