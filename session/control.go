package session

import (
	"net"
	"time"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/opd-ai/dpstream/transport"
	"github.com/sirupsen/logrus"
)

// InputHandler processes a decoded input-event payload (spec §4.12 wire
// format owned by the input package; session only dispatches the opcode).
type InputHandler func(payload []byte) error

// FeedbackHandler processes an adaptive-controller feedback payload (spec
// §4.11 "minimal application-layer feedback message").
type FeedbackHandler func(payload []byte) error

// Controller dispatches control-plane packets for one Session to the
// handlers registered for each opcode, and answers Keepalive automatically
// (spec §4.10: "host replies to Keepalive with Keepalive; absence for
// keepalive_timeout transitions to Disconnecting").
type Controller struct {
	session *Session
	conn    net.Conn

	onInput    InputHandler
	onFeedback FeedbackHandler
	onPause    func()
	onResume   func()

	keepaliveTimeout time.Duration
}

// NewController wires a Controller to an established control connection.
func NewController(s *Session, conn net.Conn, keepaliveTimeout time.Duration) *Controller {
	return &Controller{session: s, conn: conn, keepaliveTimeout: keepaliveTimeout}
}

// OnInput registers the input-event callback.
func (c *Controller) OnInput(h InputHandler) { c.onInput = h }

// OnFeedback registers the adaptive-feedback callback.
func (c *Controller) OnFeedback(h FeedbackHandler) { c.onFeedback = h }

// OnPause registers the pause-request callback.
func (c *Controller) OnPause(h func()) { c.onPause = h }

// OnResume registers the resume-request callback.
func (c *Controller) OnResume(h func()) { c.onResume = h }

// Run reads framed control packets and dispatches each by opcode. With a
// positive keepaliveTimeout each read has that deadline, and a timeout
// moves the session to Disconnecting. It returns when the connection
// errors, the keepalive times out, or Terminate arrives.
func (c *Controller) Run() error {
	logger := logrus.WithFields(logrus.Fields{"function": "Controller.Run", "session": c.session.ID()})

	for {
		if c.keepaliveTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.keepaliveTimeout))
		}

		data, err := readFramed(c.conn)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				logger.Warn("keepalive timeout, disconnecting")
				c.session.SetState(StateDisconnecting)
				return correlate.New(correlate.KindNetwork, "session", "keepalive timeout").
					WithSeverity(correlate.SeverityMedium)
			}
			return err
		}

		packet, err := transport.ParsePacket(data)
		if err != nil {
			logger.WithError(err).Debug("discarding malformed control packet")
			continue
		}

		c.session.Touch()

		if done, err := c.dispatch(packet); done || err != nil {
			return err
		}
	}
}

func (c *Controller) dispatch(packet *transport.Packet) (done bool, err error) {
	switch packet.PacketType {
	case transport.PacketKeepalive:
		return false, writeOpcodeOnly(c.conn, transport.PacketKeepalive)
	case transport.PacketInput:
		if c.onInput != nil {
			return false, c.onInput(packet.Data)
		}
	case transport.PacketFeedback:
		if c.onFeedback != nil {
			return false, c.onFeedback(packet.Data)
		}
	case transport.PacketPauseStream:
		c.session.SetState(StatePaused)
		if c.onPause != nil {
			c.onPause()
		}
	case transport.PacketResumeStream:
		c.session.SetState(StateStreaming)
		if c.onResume != nil {
			c.onResume()
		}
	case transport.PacketTerminate:
		c.session.SetState(StateTerminated)
		return true, nil
	}
	return false, nil
}

// SendKeepalive sends an application-initiated keepalive, used by the
// client side to keep the host's timeout window from expiring.
func (c *Controller) SendKeepalive() error {
	p := &transport.Packet{PacketType: transport.PacketKeepalive, Data: []byte{}}
	data, err := p.Serialize()
	if err != nil {
		return err
	}
	return writeFramed(c.conn, data)
}

// SendInput frames and sends one input-event payload.
func (c *Controller) SendInput(payload []byte) error {
	p := &transport.Packet{PacketType: transport.PacketInput, Data: payload}
	data, err := p.Serialize()
	if err != nil {
		return err
	}
	return writeFramed(c.conn, data)
}

// SendFeedback frames and sends one adaptive-controller feedback payload.
func (c *Controller) SendFeedback(payload []byte) error {
	p := &transport.Packet{PacketType: transport.PacketFeedback, Data: payload}
	data, err := p.Serialize()
	if err != nil {
		return err
	}
	return writeFramed(c.conn, data)
}

// RequestPause sends PauseStream to the peer.
func (c *Controller) RequestPause() error {
	c.session.SetState(StatePaused)
	return writeOpcodeOnly(c.conn, transport.PacketPauseStream)
}

// RequestResume sends ResumeStream to the peer.
func (c *Controller) RequestResume() error {
	c.session.SetState(StateStreaming)
	return writeOpcodeOnly(c.conn, transport.PacketResumeStream)
}

// RequestTerminate sends Terminate and moves the session to Disconnecting.
func (c *Controller) RequestTerminate() error {
	c.session.SetState(StateDisconnecting)
	return writeOpcodeOnly(c.conn, transport.PacketTerminate)
}

func writeOpcodeOnly(conn net.Conn, t transport.PacketType) error {
	p := &transport.Packet{PacketType: t, Data: []byte{}}
	data, err := p.Serialize()
	if err != nil {
		return err
	}
	return writeFramed(conn, data)
}

// writeFramed and readFramed mirror transport's internal framing so
// Controller can speak directly on a net.Conn without going through the
// TCPTransport connection pool (the control connection is already
// established by the time a Controller takes over).
func writeFramed(conn net.Conn, data []byte) error {
	prefix := []byte{byte(len(data) >> 24), byte(len(data) >> 16), byte(len(data) >> 8), byte(len(data))}
	if _, err := conn.Write(prefix); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

func readFramed(conn net.Conn) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := readFullConn(conn, header); err != nil {
		return nil, err
	}
	length := uint32(header[0])<<24 | uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
	data := make([]byte, length)
	if _, err := readFullConn(conn, data); err != nil {
		return nil, err
	}
	return data, nil
}
