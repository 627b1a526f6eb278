// Package buffers implements the tiered, reference-counted frame-buffer
// pool shared by capture, encode, packetize, and decode (spec §4.1). A
// Pool pre-allocates a fixed count of aligned buffers per tier at
// startup; callers Acquire a handle and Release it when done, and a
// buffer returns to its tier's free list only when every holder has
// released its reference.
package buffers

// Tier describes one class of pre-allocated buffers sharing a fixed
// capacity and alignment (spec glossary: "Buffer tier").
type Tier struct {
	Name     string
	Capacity int
	Count    int
	// Align is the required alignment in bytes: 64 for cache-line tiers,
	// 4096 for page-aligned DMA-capable tiers.
	Align int
}

// DefaultTiers returns the tier table sized for the typical payloads named
// in spec §4.1: 720p/1080p/4K RGBA frames, an MTU-sized network packet, a
// jumbo packet, and a small control-message buffer.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "control", Capacity: 64, Count: 256, Align: 64},
		{Name: "mtu", Capacity: 1500, Count: 512, Align: 64},
		{Name: "jumbo", Capacity: 9000, Count: 128, Align: 64},
		{Name: "rgba_720p", Capacity: 1280 * 720 * 4, Count: 8, Align: 4096},
		{Name: "rgba_1080p", Capacity: 1920 * 1080 * 4, Count: 8, Align: 4096},
		{Name: "rgba_4k", Capacity: 3840 * 2160 * 4, Count: 4, Align: 4096},
	}
}
