package netsim

import "sort"

// tracker.go implements PacketTracker, the per-flow receive-side
// bookkeeping that turns an out-of-order stream of arriving sequence
// numbers into a single cumulative "next expected" counter plus
// duplicate-ack counting.
//
// Grounded on ooni-minivpn's reliableReceiver (internal/reliabletransport/
// receiver.go): keep a sorted run of out-of-order arrivals, and each time a
// new segment arrives, drop the consumed prefix while advancing the
// cumulative counter past whatever contiguous run is now available.

// PacketTracker tracks, for one direction of one flow, which sequence
// numbers have arrived and what the next cumulative ack should claim.
type PacketTracker struct {
	nextExpected uint64
	outOfOrder   []uint64 // sorted, unique, all > nextExpected

	lastAcked     uint64
	haveAck       bool
	duplicateAcks int
}

// NewPacketTracker constructs a tracker expecting sequence number 0 first.
func NewPacketTracker() *PacketTracker {
	return &PacketTracker{}
}

// NextExpected returns the next cumulative sequence number this tracker is
// waiting to receive.
func (t *PacketTracker) NextExpected() uint64 {
	return t.nextExpected
}

// Receive records the arrival of seqNo and returns the cumulative ack
// value to send in response.
func (t *PacketTracker) Receive(seqNo uint64) uint64 {
	switch {
	case seqNo < t.nextExpected:
		// already-acked duplicate; cumulative ack unchanged
	case seqNo == t.nextExpected:
		t.nextExpected++
		t.absorbOutOfOrder()
	default:
		t.insertOutOfOrder(seqNo)
	}
	return t.nextExpected
}

func (t *PacketTracker) insertOutOfOrder(seqNo uint64) {
	i := sort.Search(len(t.outOfOrder), func(i int) bool { return t.outOfOrder[i] >= seqNo })
	if i < len(t.outOfOrder) && t.outOfOrder[i] == seqNo {
		return
	}
	t.outOfOrder = append(t.outOfOrder, 0)
	copy(t.outOfOrder[i+1:], t.outOfOrder[i:])
	t.outOfOrder[i] = seqNo
}

func (t *PacketTracker) absorbOutOfOrder() {
	i := 0
	for i < len(t.outOfOrder) && t.outOfOrder[i] == t.nextExpected {
		t.nextExpected++
		i++
	}
	t.outOfOrder = t.outOfOrder[i:]
}

// ObserveAck is the send-side counterpart: the sender feeds every received
// ack's cumulative value through ObserveAck, which reports whether this is
// a new ack (cumulative value advanced) or a duplicate, and how many
// consecutive duplicates have now been seen -- the count a
// CongestionController needs to detect triple-duplicate-ack loss.
func (t *PacketTracker) ObserveAck(cumulative uint64) (isNew bool, duplicateCount int) {
	if !t.haveAck || cumulative > t.lastAcked {
		t.lastAcked = cumulative
		t.haveAck = true
		t.duplicateAcks = 0
		return true, 0
	}
	t.duplicateAcks++
	return false, t.duplicateAcks
}
