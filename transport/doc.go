// Package transport implements the two wire transports the streaming
// platform needs once a private mesh link already exists between host and
// client (spec Non-goals: no NAT traversal, no relay, no multi-network
// addressing): UDPTransport for RTP media and TCPTransport for the framed
// control-plane protocol session speaks.
package transport
