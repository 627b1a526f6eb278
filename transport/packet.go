package transport

import "errors"

// PacketType identifies a control-plane packet carried over the TCP
// session connection (spec §4.10). RTP media packets bypass this framing
// entirely and are sent as raw UDP payloads via the rtp package.
type PacketType byte

// Control-plane opcodes (spec §4.10 state machine transitions).
const (
	PacketHandshakeRequest    PacketType = 0x01
	PacketHandshakeResponse   PacketType = 0x02
	PacketCapabilities        PacketType = 0x03
	PacketKeyExchangeInit     PacketType = 0x04
	PacketKeyExchangeResponse PacketType = 0x05
	PacketStreamStart         PacketType = 0x06
	PacketStreamReady         PacketType = 0x07
	PacketPauseStream         PacketType = 0x08
	PacketResumeStream        PacketType = 0x09
	PacketKeepalive           PacketType = 0x0A
	PacketFeedback            PacketType = 0x0B
	PacketInput               PacketType = 0x0C
	PacketTerminate           PacketType = 0x0D
)

// PacketTypeName returns a human-readable name for logging (spec §4.10
// error messages reference the opcode by name, not its numeric value).
var packetTypeNames = map[PacketType]string{
	PacketHandshakeRequest:    "HandshakeRequest",
	PacketHandshakeResponse:   "HandshakeResponse",
	PacketCapabilities:        "Capabilities",
	PacketKeyExchangeInit:     "KeyExchangeInit",
	PacketKeyExchangeResponse: "KeyExchangeResponse",
	PacketStreamStart:         "StreamStart",
	PacketStreamReady:         "StreamReady",
	PacketPauseStream:         "PauseStream",
	PacketResumeStream:        "ResumeStream",
	PacketKeepalive:           "Keepalive",
	PacketFeedback:            "Feedback",
	PacketInput:               "Input",
	PacketTerminate:           "Terminate",
}

func (t PacketType) String() string {
	if name, ok := packetTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Packet is one control-plane message: an opcode plus its payload.
type Packet struct {
	PacketType PacketType
	Data       []byte
}

// Serialize produces the wire form: [type(1)][data(variable)].
func (p *Packet) Serialize() ([]byte, error) {
	if p.Data == nil {
		return nil, errors.New("packet data is nil")
	}

	result := make([]byte, 1+len(p.Data))
	result[0] = byte(p.PacketType)
	copy(result[1:], p.Data)
	return result, nil
}

// ParsePacket reverses Serialize.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < 1 {
		return nil, errors.New("packet too short")
	}

	packet := &Packet{
		PacketType: PacketType(data[0]),
		Data:       make([]byte, len(data)-1),
	}
	copy(packet.Data, data[1:])
	return packet, nil
}
