package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// UDPTransport carries RTP media traffic (spec §4.9: "transmits over UDP,
// one socket per session or shared, implementation's choice"). It reads
// continuously from the socket and dispatches by packet type; the rtp
// package instead reads raw datagrams directly off the same connection
// when it owns the socket, bypassing this framing.
type UDPTransport struct {
	conn       net.PacketConn
	listenAddr net.Addr
	handlers   map[PacketType]PacketHandler
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewUDPTransport binds a UDP socket at listenAddr and starts its read loop.
func NewUDPTransport(listenAddr string) (Transport, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &UDPTransport{
		conn:       conn,
		listenAddr: conn.LocalAddr(),
		handlers:   make(map[PacketType]PacketHandler),
		ctx:        ctx,
		cancel:     cancel,
	}

	go t.processPackets()
	return t, nil
}

// RegisterHandler associates handler with packetType.
func (t *UDPTransport) RegisterHandler(packetType PacketType, handler PacketHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[packetType] = handler
}

// Send serializes packet and writes it to addr.
func (t *UDPTransport) Send(packet *Packet, addr net.Addr) error {
	data, err := packet.Serialize()
	if err != nil {
		return err
	}
	_, err = t.conn.WriteTo(data, addr)
	return err
}

// Close stops the read loop and releases the socket.
func (t *UDPTransport) Close() error {
	t.cancel()
	return t.conn.Close()
}

// LocalAddr returns the bound UDP address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *UDPTransport) processPackets() {
	logger := logrus.WithFields(logrus.Fields{"function": "UDPTransport.processPackets"})
	buffer := make([]byte, 65536)

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
			_ = t.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := t.conn.ReadFrom(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				continue
			}

			packet, err := ParsePacket(buffer[:n])
			if err != nil {
				logger.WithError(err).Debug("discarding malformed UDP packet")
				continue
			}

			t.mu.RLock()
			handler, exists := t.handlers[packet.PacketType]
			t.mu.RUnlock()

			if exists {
				go func(p *Packet, a net.Addr) {
					if err := handler(p, a); err != nil {
						logger.WithError(err).WithField("packet_type", p.PacketType).Warn("handler returned error")
					}
				}(packet, addr)
			}
		}
	}
}
