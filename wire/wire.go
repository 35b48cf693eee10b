// File: wire/wire.go
// Package wire implements a length-prefixed message framer: a 4-byte
// big-endian length prefix followed by that many payload bytes.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Patterned on protocol/frame_codec.go: same incomplete-frame
// contract (Decode returns (nil, 0, nil) when raw doesn't yet hold a full
// frame, so callers can feed it a growing read buffer), same payload-size
// ceiling to bound memory from a malicious or corrupt length field. The
// length-prefixed shape itself matches the distillation source's
// messaging/serializer.rs, which prefixes every string with its length
// before the raw bytes.

package wire

import (
	"encoding/binary"
	"errors"
)

// MaxPayload bounds a single decoded message. A length prefix claiming
// more than this is a framing error rather than "incomplete".
const MaxPayload = 16 << 20 // 16 MiB

// HeaderLen is the fixed length-prefix size in bytes.
const HeaderLen = 4

// ErrPayloadTooLarge is returned by Decode when the length prefix exceeds
// MaxPayload.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum allowed size")

// Encode prepends a 4-byte big-endian length prefix to payload and returns
// the combined frame. The returned slice is freshly allocated.
func Encode(payload []byte) []byte {
	frame := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[HeaderLen:], payload)
	return frame
}

// AppendEncode appends payload's framed form to dst, minimizing
// allocations for callers accumulating multiple frames into one buffer.
func AppendEncode(dst, payload []byte) []byte {
	var hdr [HeaderLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, payload...)
	return dst
}

// Decode reads one frame from the front of raw. It returns the decoded
// payload (a copy, not aliasing raw), the number of bytes consumed from
// raw, and an error. If raw does not yet contain a complete frame, Decode
// returns (nil, 0, nil) so the caller can read more and retry.
func Decode(raw []byte) (payload []byte, consumed int, err error) {
	if len(raw) < HeaderLen {
		return nil, 0, nil
	}
	length := binary.BigEndian.Uint32(raw)
	if length > MaxPayload {
		return nil, 0, ErrPayloadTooLarge
	}
	total := HeaderLen + int(length)
	if len(raw) < total {
		return nil, 0, nil
	}
	out := make([]byte, length)
	copy(out, raw[HeaderLen:total])
	return out, total, nil
}

// DecodeAll decodes every complete frame currently in raw, returning the
// decoded payloads and the number of trailing unconsumed bytes the caller
// should retain for the next read.
func DecodeAll(raw []byte) (payloads [][]byte, remainder int, err error) {
	offset := 0
	for {
		p, n, derr := Decode(raw[offset:])
		if derr != nil {
			return payloads, len(raw) - offset, derr
		}
		if n == 0 {
			break
		}
		payloads = append(payloads, p)
		offset += n
	}
	return payloads, len(raw) - offset, nil
}
