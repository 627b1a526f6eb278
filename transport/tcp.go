package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TCPTransport carries the framed control-plane protocol (spec §4.10:
// "A persistent TCP connection ... length-prefixed frames"). It manages
// one net.Conn per peer address and frames each Packet with a 4-byte
// big-endian length prefix so packet boundaries survive TCP's stream
// semantics.
type TCPTransport struct {
	listener   net.Listener
	listenAddr net.Addr
	handlers   map[PacketType]PacketHandler
	clients    map[string]net.Conn
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewTCPTransport listens on listenAddr and starts accepting connections.
func NewTCPTransport(listenAddr string) (Transport, error) {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &TCPTransport{
		listener:   listener,
		listenAddr: listener.Addr(),
		handlers:   make(map[PacketType]PacketHandler),
		clients:    make(map[string]net.Conn),
		ctx:        ctx,
		cancel:     cancel,
	}

	go t.acceptConnections()
	return t, nil
}

// RegisterHandler associates handler with packetType.
func (t *TCPTransport) RegisterHandler(packetType PacketType, handler PacketHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[packetType] = handler
}

// Send frames and writes packet to addr, dialing a new connection if none
// is already open to that peer.
func (t *TCPTransport) Send(packet *Packet, addr net.Addr) error {
	t.mu.RLock()
	conn, exists := t.clients[addr.String()]
	t.mu.RUnlock()

	if !exists {
		var err error
		conn, err = net.Dial("tcp", addr.String())
		if err != nil {
			return err
		}

		t.mu.Lock()
		t.clients[addr.String()] = conn
		t.mu.Unlock()

		go t.handleConnection(conn)
	}

	data, err := packet.Serialize()
	if err != nil {
		return err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}

	if err := writeFramed(conn, data); err != nil {
		t.mu.Lock()
		delete(t.clients, addr.String())
		t.mu.Unlock()
		conn.Close()
		return err
	}
	return nil
}

// Close stops accepting connections and closes every open client socket.
func (t *TCPTransport) Close() error {
	t.cancel()

	t.mu.Lock()
	for _, conn := range t.clients {
		conn.Close()
	}
	t.mu.Unlock()

	return t.listener.Close()
}

// LocalAddr returns the bound TCP listen address.
func (t *TCPTransport) LocalAddr() net.Addr {
	return t.listenAddr
}

func (t *TCPTransport) acceptConnections() {
	logger := logrus.WithFields(logrus.Fields{"function": "TCPTransport.acceptConnections"})
	for {
		select {
		case <-t.ctx.Done():
			return
		default:
			conn, err := t.listener.Accept()
			if err != nil {
				select {
				case <-t.ctx.Done():
					return
				default:
					logger.WithError(err).Debug("accept failed")
					continue
				}
			}
			go t.handleConnection(conn)
		}
	}
}

func (t *TCPTransport) handleConnection(conn net.Conn) {
	logger := logrus.WithFields(logrus.Fields{"function": "TCPTransport.handleConnection"})
	defer conn.Close()

	addr := conn.RemoteAddr()

	t.mu.Lock()
	t.clients[addr.String()] = conn
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.clients, addr.String())
		t.mu.Unlock()
	}()

	for {
		data, err := readFramed(conn)
		if err != nil {
			return
		}

		packet, err := ParsePacket(data)
		if err != nil {
			logger.WithError(err).Debug("discarding malformed control packet")
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

// writeFramed writes a 4-byte big-endian length prefix followed by data.
func writeFramed(conn net.Conn, data []byte) error {
	prefix := []byte{
		byte(len(data) >> 24),
		byte(len(data) >> 16),
		byte(len(data) >> 8),
		byte(len(data)),
	}
	if _, err := conn.Write(prefix); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

// readFramed reads one length-prefixed frame, blocking until it arrives
// or the connection errors/closes.
func readFramed(conn net.Conn) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := readFull(conn, header); err != nil {
		return nil, err
	}

	length := uint32(header[0])<<24 | uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
	data := make([]byte, length)
	if _, err := readFull(conn, data); err != nil {
		return nil, err
	}
	return data, nil
}

// readFull reads exactly len(buf) bytes, looping over short TCP reads.
func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
