package wire

import (
	"encoding/binary"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// requestFixedLen is the byte count of a request payload minus the style
// path: id (8) + path_len (4) + zoom (1) + x (4) + y (4).
const requestFixedLen = 21

// Request is one render order sent from a parent pool to a worker.
type Request struct {
	ID    uint64 // correlation id, unique per pool
	Style string // style path the worker must have loaded before rendering
	Zoom  uint8
	X     uint32
	Y     uint32
}

// EncodeRequest serializes r into a request payload.
func EncodeRequest(r Request) []byte {
	buf := make([]byte, 0, requestFixedLen+len(r.Style))
	buf = binary.LittleEndian.AppendUint64(buf, r.ID)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(r.Style)))
	buf = append(buf, r.Style...)
	buf = append(buf, r.Zoom)
	buf = binary.LittleEndian.AppendUint32(buf, r.X)
	buf = binary.LittleEndian.AppendUint32(buf, r.Y)
	return buf
}

// DecodeRequest parses a request payload produced by EncodeRequest.
func DecodeRequest(payload []byte) (Request, error) {
	var r Request
	if len(payload) < requestFixedLen {
		return r, errors.New(errors.ErrCodeProtocol, "request payload %d bytes, need at least %d", len(payload), requestFixedLen)
	}

	r.ID = binary.LittleEndian.Uint64(payload)
	pathLen := binary.LittleEndian.Uint32(payload[8:])

	rest := payload[12:]
	if uint64(pathLen) > uint64(len(rest))-9 {
		return r, errors.New(errors.ErrCodeProtocol, "request path length %d exceeds payload", pathLen)
	}
	r.Style = string(rest[:pathLen])

	rest = rest[pathLen:]
	if len(rest) != 9 {
		return r, errors.New(errors.ErrCodeProtocol, "request has %d trailing bytes, want 9", len(rest))
	}
	r.Zoom = rest[0]
	r.X = binary.LittleEndian.Uint32(rest[1:])
	r.Y = binary.LittleEndian.Uint32(rest[5:])
	return r, nil
}
