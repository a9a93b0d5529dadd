package wire

import (
	"encoding/binary"
	"io"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// MaxFrameLen bounds a single frame payload. The largest legal payload, a
// full-size tile at high pixel ratio, stays well under this; anything
// bigger means the stream is corrupt.
const MaxFrameLen = 64 << 20

// WriteFrame writes payload to w as one length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameLen {
		return errors.New(errors.ErrCodeProtocol, "frame payload %d bytes exceeds limit %d", len(payload), MaxFrameLen)
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(errors.ErrCodeWorkerIO, err, "write frame header")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(errors.ErrCodeWorkerIO, err, "write frame payload")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and returns its payload.
//
// A clean end of stream between frames is reported as io.EOF unchanged so
// callers can tell an orderly shutdown from corruption. A stream that ends
// mid-frame is a protocol error.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(errors.ErrCodeProtocol, err, "read frame header")
	}

	n := binary.LittleEndian.Uint32(header[:])
	if n > MaxFrameLen {
		return nil, errors.New(errors.ErrCodeProtocol, "frame length %d exceeds limit %d", n, MaxFrameLen)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(errors.ErrCodeProtocol, err, "read frame payload (%d bytes)", n)
	}
	return payload, nil
}
