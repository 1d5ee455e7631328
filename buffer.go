package netsim

// buffer.go implements the finite-capacity FIFO a Link uses to hold
// packets waiting for the wire. Generalizes net.go's occupancy-only
// intrfcState (bufferSize/load counters with no actual queue of packets)
// into an explicit ordered queue, since forwarding needs to dequeue
// specific waiting packets in order, not just track a load number.

// Direction identifies which endpoint of a Link a packet is travelling
// toward.
type Direction int

const (
	TowardA Direction = iota
	TowardB
)

// BufferResult is the outcome of a Buffer.Enqueue call.
type BufferResult int

const (
	Accepted BufferResult = iota
	Dropped
)

type bufferEntry struct {
	packet    *Packet
	direction Direction
}

// Buffer is a bounded FIFO of (packet, direction) pairs. Invariant:
// usedBytes <= capacityBytes at all times.
type Buffer struct {
	capacityBytes int
	usedBytes     int
	entries       []bufferEntry
}

// NewBuffer constructs an empty Buffer with the given byte capacity.
func NewBuffer(capacityBytes int) *Buffer {
	return &Buffer{capacityBytes: capacityBytes}
}

// CapacityBytes returns the buffer's configured capacity.
func (b *Buffer) CapacityBytes() int {
	return b.capacityBytes
}

// UsedBytes returns the buffer's current occupancy.
func (b *Buffer) UsedBytes() int {
	return b.usedBytes
}

// Len returns the number of queued packets.
func (b *Buffer) Len() int {
	return len(b.entries)
}

// Enqueue appends (packet, direction) to the tail of the queue if it fits,
// accounting the packet's size against capacity. Drops (without mutating
// state) if it would overflow.
func (b *Buffer) Enqueue(p *Packet, dir Direction) BufferResult {
	if b.usedBytes+p.Size > b.capacityBytes {
		return Dropped
	}
	b.entries = append(b.entries, bufferEntry{packet: p, direction: dir})
	b.usedBytes += p.Size
	return Accepted
}

// Dequeue removes and returns the head of the queue, or (nil, _, false) if
// empty.
func (b *Buffer) Dequeue() (*Packet, Direction, bool) {
	if len(b.entries) == 0 {
		return nil, 0, false
	}
	head := b.entries[0]
	b.entries = b.entries[1:]
	b.usedBytes -= head.packet.Size
	return head.packet, head.direction, true
}

// PeekDirection returns the direction of the head-of-queue packet without
// dequeuing it, used by Link to decide which direction to serve next
// without disturbing ordering.
func (b *Buffer) PeekDirection() (Direction, bool) {
	if len(b.entries) == 0 {
		return 0, false
	}
	return b.entries[0].direction, true
}
