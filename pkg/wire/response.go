package wire

import (
	"encoding/binary"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// Response tags.
const (
	TagSuccess byte = 0
	TagFailure byte = 1
)

// Response carries rendered pixels or a failure message back to a parent
// pool. Exactly one of the two bodies is meaningful, selected by Tag.
type Response struct {
	ID  uint64
	Tag byte

	// Success body (Tag == TagSuccess)
	Width  uint32
	Height uint32
	Pix    []byte // RGBA, len == Width*Height*4

	// Failure body (Tag == TagFailure)
	Message string
}

// Success builds a success response for the given correlation id.
func Success(id uint64, width, height uint32, pix []byte) Response {
	return Response{ID: id, Tag: TagSuccess, Width: width, Height: height, Pix: pix}
}

// Failure builds a failure response carrying a human-readable message.
func Failure(id uint64, message string) Response {
	return Response{ID: id, Tag: TagFailure, Message: message}
}

// EncodeResponse serializes r into a response payload. A success response
// whose Pix length does not match Width*Height*4 is refused rather than
// put on the wire.
func EncodeResponse(r Response) ([]byte, error) {
	switch r.Tag {
	case TagSuccess:
		want := uint64(r.Width) * uint64(r.Height) * 4
		if uint64(len(r.Pix)) != want {
			return nil, errors.New(errors.ErrCodeProtocol, "response pixel data %d bytes, want %d for %dx%d", len(r.Pix), want, r.Width, r.Height)
		}
		buf := make([]byte, 0, 8+1+4+4+len(r.Pix))
		buf = binary.LittleEndian.AppendUint64(buf, r.ID)
		buf = append(buf, TagSuccess)
		buf = binary.LittleEndian.AppendUint32(buf, r.Width)
		buf = binary.LittleEndian.AppendUint32(buf, r.Height)
		buf = append(buf, r.Pix...)
		return buf, nil

	case TagFailure:
		buf := make([]byte, 0, 8+1+4+len(r.Message))
		buf = binary.LittleEndian.AppendUint64(buf, r.ID)
		buf = append(buf, TagFailure)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(r.Message)))
		buf = append(buf, r.Message...)
		return buf, nil

	default:
		return nil, errors.New(errors.ErrCodeProtocol, "unknown response tag %d", r.Tag)
	}
}

// DecodeResponse parses a response payload produced by EncodeResponse.
func DecodeResponse(payload []byte) (Response, error) {
	var r Response
	if len(payload) < 9 {
		return r, errors.New(errors.ErrCodeProtocol, "response payload %d bytes, need at least 9", len(payload))
	}

	r.ID = binary.LittleEndian.Uint64(payload)
	r.Tag = payload[8]
	body := payload[9:]

	switch r.Tag {
	case TagSuccess:
		if len(body) < 8 {
			return r, errors.New(errors.ErrCodeProtocol, "success response body %d bytes, need at least 8", len(body))
		}
		r.Width = binary.LittleEndian.Uint32(body)
		r.Height = binary.LittleEndian.Uint32(body[4:])
		want := uint64(r.Width) * uint64(r.Height) * 4
		if uint64(len(body)-8) != want {
			return r, errors.New(errors.ErrCodeProtocol, "success response carries %d pixel bytes, want %d for %dx%d", len(body)-8, want, r.Width, r.Height)
		}
		r.Pix = body[8:]
		return r, nil

	case TagFailure:
		if len(body) < 4 {
			return r, errors.New(errors.ErrCodeProtocol, "failure response body %d bytes, need at least 4", len(body))
		}
		msgLen := binary.LittleEndian.Uint32(body)
		if uint64(msgLen) != uint64(len(body)-4) {
			return r, errors.New(errors.ErrCodeProtocol, "failure message length %d does not match %d body bytes", msgLen, len(body)-4)
		}
		r.Message = string(body[4:])
		return r, nil

	default:
		return r, errors.New(errors.ErrCodeProtocol, "unknown response tag %d", r.Tag)
	}
}
