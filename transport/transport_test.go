package transport

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketSerializeParseRoundTrip(t *testing.T) {
	p := &Packet{PacketType: PacketKeepalive, Data: []byte("ping")}
	data, err := p.Serialize()
	require.NoError(t, err)

	out, err := ParsePacket(data)
	require.NoError(t, err)
	assert.Equal(t, p.PacketType, out.PacketType)
	assert.Equal(t, p.Data, out.Data)
}

func TestParsePacketRejectsEmpty(t *testing.T) {
	_, err := ParsePacket(nil)
	assert.Error(t, err)
}

func TestSerializeRejectsNilData(t *testing.T) {
	p := &Packet{PacketType: PacketInput}
	_, err := p.Serialize()
	assert.Error(t, err)
}

func TestPacketTypeStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "Input", PacketInput.String())
	assert.Equal(t, "Unknown", PacketType(0xFE).String())
}

func TestUDPTransportSendReceive(t *testing.T) {
	server, err := NewUDPTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var received *Packet
	server.RegisterHandler(PacketKeepalive, func(p *Packet, addr net.Addr) error {
		received = p
		wg.Done()
		return nil
	})

	client, err := NewUDPTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer client.Close()

	err = client.Send(&Packet{PacketType: PacketKeepalive, Data: []byte("hi")}, server.LocalAddr())
	require.NoError(t, err)

	waitTimeout(t, &wg, 2*time.Second)
	require.NotNil(t, received)
	assert.Equal(t, []byte("hi"), received.Data)
}

func TestTCPTransportSendReceive(t *testing.T) {
	server, err := NewTCPTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var received *Packet
	server.RegisterHandler(PacketInput, func(p *Packet, addr net.Addr) error {
		received = p
		wg.Done()
		return nil
	})

	client, err := NewTCPTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer client.Close()

	err = client.Send(&Packet{PacketType: PacketInput, Data: []byte("buttons")}, server.LocalAddr())
	require.NoError(t, err)

	waitTimeout(t, &wg, 2*time.Second)
	require.NotNil(t, received)
	assert.Equal(t, []byte("buttons"), received.Data)
}

func TestTCPTransportFramesLargerThanOneRead(t *testing.T) {
	server, err := NewTCPTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var received *Packet
	server.RegisterHandler(PacketFeedback, func(p *Packet, addr net.Addr) error {
		received = p
		wg.Done()
		return nil
	})

	client, err := NewTCPTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer client.Close()

	payload := make([]byte, 262144) // larger than a single TCP read typically returns
	for i := range payload {
		payload[i] = byte(i)
	}

	err = client.Send(&Packet{PacketType: PacketFeedback, Data: payload}, server.LocalAddr())
	require.NoError(t, err)

	waitTimeout(t, &wg, 5*time.Second)
	require.NotNil(t, received)
	assert.Equal(t, payload, received.Data)
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for packet")
	}
}
