// Package rtp provides the jitter buffer used by the client's video
// receive path.
//
// JitterBuffer absorbs network timing jitter between packet arrival and
// decode: media payloads (reassembled video NAL units in
// client/receiver) are admitted timestamp-sorted and released after a
// fixed delay, with oldest-first eviction once the buffer reaches
// capacity. RTP header framing and H.264/H.265 FU-A fragmentation live
// in the top-level rtp package; this package supplies only the
// buffering primitive the client receiver builds on.
package rtp
