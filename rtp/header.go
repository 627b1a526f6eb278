// Package rtp implements RTP packet construction and parsing shared by
// the host's packetizer (spec §4.8) and the client's receiver (spec
// §4.13). Header emission has two paths: a fast path for the common case
// of no CSRC and no extension (a fixed 12-byte header written directly),
// and a slow path that defers to github.com/pion/rtp for the general
// case (CSRC lists up to 15, extension headers). Both paths are tested
// for bitwise equivalence on inputs the fast path accepts (Design Note:
// "SIMD implementations are tested for bitwise equivalence against
// [the scalar implementation]" — this module has no portable SIMD story
// in Go, so the fast/slow split stands in for that scalar/accelerated
// pairing; see DESIGN.md).
package rtp

import (
	"encoding/binary"
	"fmt"

	pionrtp "github.com/pion/rtp"
)

// HeaderBytes is the fixed RTP header size before any CSRC or extension
// (spec §3 invariant: "header bytes fixed at 12").
const HeaderBytes = 12

// MaxCSRC is the largest CSRC list RTP permits.
const MaxCSRC = 15

// PayloadType values used by this module's media streams (spec §6).
const (
	PayloadTypeVideo = 96
	PayloadTypeAudio = 97
)

// Header mirrors the RTP header fields named in spec §3.
type Header struct {
	Version        uint8
	Padding        bool
	Extension      bool
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
	CSRC           []uint32
}

// Packet is a full RTP packet: header plus payload.
type Packet struct {
	Header  Header
	Payload []byte
}

// ErrInvalidPacket is returned for packets shorter than HeaderBytes or
// with a malformed extension (spec §4.8 "Errors: InvalidPacket").
var ErrInvalidPacket = fmt.Errorf("invalid RTP packet")

// isFastPath reports whether h can use the fixed 12-byte fast path: no
// CSRC, no extension, no padding.
func (h Header) isFastPath() bool {
	return len(h.CSRC) == 0 && !h.Extension && !h.Padding
}

// Marshal serializes p to wire bytes. The fast path is taken whenever the
// header has no CSRC, extension, or padding; otherwise pion/rtp handles
// the general case.
func (p *Packet) Marshal() ([]byte, error) {
	if len(p.Header.CSRC) > MaxCSRC {
		return nil, fmt.Errorf("%w: csrc count %d exceeds %d", ErrInvalidPacket, len(p.Header.CSRC), MaxCSRC)
	}

	if p.Header.isFastPath() {
		return marshalFastPath(p.Header, p.Payload), nil
	}
	return marshalSlowPath(p.Header, p.Payload)
}

// marshalFastPath writes the fixed 12-byte header directly, matching the
// bit layout that pion/rtp's general marshaler produces for the same
// no-CSRC/no-extension input (verified by TestFastPathMatchesSlowPath).
func marshalFastPath(h Header, payload []byte) []byte {
	out := make([]byte, HeaderBytes+len(payload))

	out[0] = (h.Version << 6)
	if h.Padding {
		out[0] |= 1 << 5
	}
	if h.Extension {
		out[0] |= 1 << 4
	}
	// CSRC count is 0 on the fast path.

	out[1] = h.PayloadType & 0x7f
	if h.Marker {
		out[1] |= 0x80
	}

	binary.BigEndian.PutUint16(out[2:4], h.SequenceNumber)
	binary.BigEndian.PutUint32(out[4:8], h.Timestamp)
	binary.BigEndian.PutUint32(out[8:12], h.SSRC)

	copy(out[HeaderBytes:], payload)
	return out
}

// marshalSlowPath defers to pion/rtp for CSRC lists and extension headers.
func marshalSlowPath(h Header, payload []byte) ([]byte, error) {
	pkt := &pionrtp.Packet{
		Header: pionrtp.Header{
			Version:        h.Version,
			Padding:        h.Padding,
			Extension:      h.Extension,
			Marker:         h.Marker,
			PayloadType:    h.PayloadType,
			SequenceNumber: h.SequenceNumber,
			Timestamp:      h.Timestamp,
			SSRC:           h.SSRC,
			CSRC:           h.CSRC,
		},
		Payload: payload,
	}
	data, err := pkt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	return data, nil
}

// Unmarshal parses wire bytes into p. A fast-path recognizer handles
// version==2, CSRC==0, no-extension packets via direct field reads; the
// slow path hands off to pion/rtp for CSRC lists and extension headers
// (spec §4.8 "Parsing (client side) mirrors this").
func (p *Packet) Unmarshal(data []byte) error {
	if len(data) < HeaderBytes {
		return fmt.Errorf("%w: length %d < %d", ErrInvalidPacket, len(data), HeaderBytes)
	}

	version := data[0] >> 6
	csrcCount := data[0] & 0x0f
	extension := data[0]&0x10 != 0

	if version == 2 && csrcCount == 0 && !extension {
		return p.unmarshalFastPath(data)
	}
	return p.unmarshalSlowPath(data)
}

func (p *Packet) unmarshalFastPath(data []byte) error {
	p.Header = Header{
		Version:        data[0] >> 6,
		Padding:        data[0]&0x20 != 0,
		Extension:      false,
		Marker:         data[1]&0x80 != 0,
		PayloadType:    data[1] & 0x7f,
		SequenceNumber: binary.BigEndian.Uint16(data[2:4]),
		Timestamp:      binary.BigEndian.Uint32(data[4:8]),
		SSRC:           binary.BigEndian.Uint32(data[8:12]),
	}
	p.Payload = data[HeaderBytes:]
	return nil
}

func (p *Packet) unmarshalSlowPath(data []byte) error {
	var pkt pionrtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	if len(pkt.Header.CSRC) > MaxCSRC {
		return fmt.Errorf("%w: csrc count %d exceeds %d", ErrInvalidPacket, len(pkt.Header.CSRC), MaxCSRC)
	}
	p.Header = Header{
		Version:        pkt.Header.Version,
		Padding:        pkt.Header.Padding,
		Extension:      pkt.Header.Extension,
		Marker:         pkt.Header.Marker,
		PayloadType:    pkt.Header.PayloadType,
		SequenceNumber: pkt.Header.SequenceNumber,
		Timestamp:      pkt.Header.Timestamp,
		SSRC:           pkt.Header.SSRC,
		CSRC:           pkt.Header.CSRC,
	}
	p.Payload = pkt.Payload
	return nil
}
