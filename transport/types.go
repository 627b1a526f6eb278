// Package transport implements the UDP and TCP network transports used by
// the streaming platform: UDP carries RTP media (spec §4.9), TCP carries
// the framed control-plane protocol the session package speaks (spec
// §4.10). Both satisfy the same Transport interface so upper layers do not
// need to know which socket type backs a given connection.
package transport

import (
	"net"
)

// PacketHandler processes one received packet. Handlers run concurrently,
// one goroutine per packet, and must not block the transport's read loop
// for longer than necessary.
type PacketHandler func(packet *Packet, addr net.Addr) error

// Transport abstracts UDP and TCP so session and rtp code can swap one for
// the other without changing call sites.
type Transport interface {
	// Send transmits a packet to addr.
	Send(packet *Packet, addr net.Addr) error

	// Close shuts down the transport and releases its socket.
	Close() error

	// LocalAddr returns the address this transport is bound to.
	LocalAddr() net.Addr

	// RegisterHandler routes incoming packets of packetType to handler.
	RegisterHandler(packetType PacketType, handler PacketHandler)
}
