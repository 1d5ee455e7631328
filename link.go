package netsim

// link.go implements the half-duplex transmission channel: one packet on
// the wire at a time, a finite-capacity FIFO buffer for everything else
// waiting (regardless of which direction it's travelling), and the
// transmit-completion / arrival event pair that drives the rest of the
// engine forward.
//
// net.go models a Link's interfaces with occupancy/load counters and an
// M/M/1 latency estimate (networkStruct.netLatency) rather than simulating
// individual packet transmissions; per-packet transmission is what this
// engine wants instead, so Link's Send/onReady/onArrival protocol is built
// fresh from the engine primitives (Buffer, EventQueue) rather than
// adapted from an existing equivalent.

// Link is a half-duplex transmission channel between two devices
// (identified by id, resolved through a Registry -- see device.go).
type Link struct {
	ID                  int
	RateBytesPerSec      float64
	PropagationDelaySec  float64
	BufferCapacityBytes  int
	EndpointA, EndpointB int // device ids

	buffer    *Buffer
	busyUntil float64
}

// NewLink constructs a Link between deviceA and deviceB (by id).
func NewLink(rateBytesPerSec, propagationDelaySec float64, bufferCapacityBytes int, endpointA, endpointB int) *Link {
	return &Link{
		ID:                  nxtID(),
		RateBytesPerSec:     rateBytesPerSec,
		PropagationDelaySec: propagationDelaySec,
		BufferCapacityBytes: bufferCapacityBytes,
		EndpointA:           endpointA,
		EndpointB:           endpointB,
		buffer:              NewBuffer(bufferCapacityBytes),
	}
}

// Buffer exposes the link's buffer for invariant checks and tests.
func (l *Link) Buffer() *Buffer {
	return l.buffer
}

// OtherEndpoint returns the device id at the far end of the link from
// fromDeviceID.
func (l *Link) OtherEndpoint(fromDeviceID int) int {
	if fromDeviceID == l.EndpointA {
		return l.EndpointB
	}
	return l.EndpointA
}

func (l *Link) directionToward(towardDeviceID int) Direction {
	if towardDeviceID == l.EndpointB {
		return TowardB
	}
	return TowardA
}

func (l *Link) targetOf(dir Direction) int {
	if dir == TowardB {
		return l.EndpointB
	}
	return l.EndpointA
}

func (l *Link) transmissionDelay(p *Packet) float64 {
	return float64(p.Size) / l.RateBytesPerSec
}

// Send is the protocol a Device invokes to push a packet onto the link
// toward towardDeviceID. If the link is idle, transmission begins
// immediately; otherwise the packet joins the buffer (and may be dropped
// if the buffer is full).
func (l *Link) Send(reg Registry, eq *EventQueue, p *Packet, towardDeviceID int) {
	dir := l.directionToward(towardDeviceID)
	now := eq.Now()

	if now >= l.busyUntil {
		l.beginTransmission(reg, eq, p, dir)
		return
	}

	result := l.buffer.Enqueue(p, dir)
	lg := reg.Logger()
	if result == Dropped {
		lg.PacketDropped(now, p.PacketID, l.ID, BufferFull)
		return
	}
	lg.BufferOccupancy(now, l.ID, l.buffer.UsedBytes())
}

func (l *Link) beginTransmission(reg Registry, eq *EventQueue, p *Packet, dir Direction) {
	now := eq.Now()
	txDelay := l.transmissionDelay(p)
	l.busyUntil = now + txDelay
	arrival := l.busyUntil + l.PropagationDelaySec
	target := l.targetOf(dir)

	lg := reg.Logger()
	lg.PacketSent(now, p.PacketID, l.ID, directionLabel(dir))

	eq.ScheduleAt(arrival, func(eq *EventQueue) {
		l.onArrival(reg, eq, p, target)
	})
	eq.ScheduleAt(l.busyUntil, func(eq *EventQueue) {
		l.onReady(reg, eq)
	})
}

// onReady fires when the wire becomes free. If anything is buffered, its
// head is dequeued and begins transmission.
func (l *Link) onReady(reg Registry, eq *EventQueue) {
	p, dir, ok := l.buffer.Dequeue()
	if !ok {
		return
	}
	reg.Logger().BufferOccupancy(eq.Now(), l.ID, l.buffer.UsedBytes())
	l.beginTransmission(reg, eq, p, dir)
}

// onArrival fires when a packet finishes propagating across the link; it
// is handed to the target device.
func (l *Link) onArrival(reg Registry, eq *EventQueue, p *Packet, targetDeviceID int) {
	reg.Logger().PacketArrived(eq.Now(), p.PacketID, targetDeviceID)
	dev, ok := reg.DeviceByID(targetDeviceID)
	if !ok {
		return
	}
	dev.HandlePacket(reg, eq, p, l)
}

func directionLabel(dir Direction) string {
	if dir == TowardB {
		return "toward_b"
	}
	return "toward_a"
}
