package session

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/opd-ai/dpstream/transport"
	"github.com/sirupsen/logrus"
)

// ProtocolVersion is this build's control-plane version (spec §4.10
// "version/agent exchange"). A client and host with mismatched major
// versions refuse to proceed.
const ProtocolVersion = 1

// ErrVersionMismatch is returned when peer capability negotiation detects
// an incompatible protocol version.
var ErrVersionMismatch = fmt.Errorf("incompatible protocol version")

// ErrNoCommonCodec is returned when host and client advertise disjoint
// codec sets (spec §4.10 edge case: "capability negotiation with no
// common codec fails the handshake cleanly").
var ErrNoCommonCodec = fmt.Errorf("no common video codec")

// PerformHostHandshake runs the responder side of the RTSP-style
// handshake/capability exchange over an already-accepted TCP connection.
// It blocks until the client's HandshakeRequest and Capabilities arrive,
// validates them, and replies.
func PerformHostHandshake(conn net.Conn, local Capabilities) (Capabilities, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "PerformHostHandshake"})

	reqPacket, err := readPacket(conn)
	if err != nil {
		return Capabilities{}, correlate.Wrap(correlate.KindNetwork, "session", err)
	}
	if reqPacket.PacketType != transport.PacketHandshakeRequest {
		return Capabilities{}, correlate.New(correlate.KindNetwork, "session",
			fmt.Sprintf("expected HandshakeRequest, got %s", reqPacket.PacketType))
	}

	var remote Capabilities
	if err := json.Unmarshal(reqPacket.Data, &remote); err != nil {
		return Capabilities{}, correlate.Wrap(correlate.KindSerialization, "session", err)
	}

	if remote.ProtocolVersion != ProtocolVersion {
		logger.WithFields(logrus.Fields{
			"remote_version": remote.ProtocolVersion,
			"local_version":   ProtocolVersion,
		}).Warn("protocol version mismatch")
		writeErrorResponse(conn, ErrVersionMismatch)
		return Capabilities{}, ErrVersionMismatch
	}

	if !hasCommonCodec(local.VideoCodecs, remote.VideoCodecs) {
		writeErrorResponse(conn, ErrNoCommonCodec)
		return Capabilities{}, ErrNoCommonCodec
	}

	respData, err := json.Marshal(local)
	if err != nil {
		return Capabilities{}, correlate.Wrap(correlate.KindSerialization, "session", err)
	}
	if err := writePacket(conn, &transport.Packet{PacketType: transport.PacketHandshakeResponse, Data: respData}); err != nil {
		return Capabilities{}, correlate.Wrap(correlate.KindNetwork, "session", err)
	}

	return remote, nil
}

// PerformClientHandshake runs the initiator side: it sends local
// capabilities and blocks for the host's response.
func PerformClientHandshake(conn net.Conn, local Capabilities) (Capabilities, error) {
	local.ProtocolVersion = ProtocolVersion

	data, err := json.Marshal(local)
	if err != nil {
		return Capabilities{}, correlate.Wrap(correlate.KindSerialization, "session", err)
	}

	if err := writePacket(conn, &transport.Packet{PacketType: transport.PacketHandshakeRequest, Data: data}); err != nil {
		return Capabilities{}, correlate.Wrap(correlate.KindNetwork, "session", err)
	}

	respPacket, err := readPacket(conn)
	if err != nil {
		return Capabilities{}, correlate.Wrap(correlate.KindNetwork, "session", err)
	}
	if respPacket.PacketType != transport.PacketHandshakeResponse {
		return Capabilities{}, correlate.New(correlate.KindNetwork, "session",
			fmt.Sprintf("expected HandshakeResponse, got %s", respPacket.PacketType))
	}

	var remote Capabilities
	if err := json.Unmarshal(respPacket.Data, &remote); err != nil {
		return Capabilities{}, correlate.Wrap(correlate.KindSerialization, "session", err)
	}
	return remote, nil
}

func hasCommonCodec(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if set[c] {
			return true
		}
	}
	return false
}

func writeErrorResponse(conn net.Conn, cause error) {
	_ = writePacket(conn, &transport.Packet{PacketType: transport.PacketTerminate, Data: []byte(cause.Error())})
}

// writePacket frames and writes a control-plane packet directly to conn,
// independent of the TCPTransport connection pool (used during the
// one-shot handshake before a Session is registered with a transport).
func writePacket(conn net.Conn, p *transport.Packet) error {
	data, err := p.Serialize()
	if err != nil {
		return err
	}
	prefix := []byte{byte(len(data) >> 24), byte(len(data) >> 16), byte(len(data) >> 8), byte(len(data))}
	if _, err := conn.Write(prefix); err != nil {
		return err
	}
	_, err = conn.Write(data)
	return err
}

func readPacket(conn net.Conn) (*transport.Packet, error) {
	header := make([]byte, 4)
	if _, err := readFullConn(conn, header); err != nil {
		return nil, err
	}
	length := uint32(header[0])<<24 | uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
	data := make([]byte, length)
	if _, err := readFullConn(conn, data); err != nil {
		return nil, err
	}
	return transport.ParsePacket(data)
}

func readFullConn(conn net.Conn, buf []byte) (int, error) {
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
