package netsim

// host.go implements Host, the Device that originates and terminates
// Flows: it periodically announces its own reachability (the distance-
// vector beacon's origin), turns arriving PayloadPackets into cumulative
// AckPackets via a PacketTracker, and delivers arriving AckPackets to the
// Flow that is waiting on them.
//
// Grounded on net.go's endptDev, the leaf-device counterpart to routerDev,
// generalized here from single in-flight message bookkeeping to the
// multi-flow send/receive split a Flow paired with a CongestionController
// needs.

// Host is a network endpoint: the source or destination of one or more
// Flows.
type Host struct {
	id         int
	name       string
	accessLink int // the single link connecting this host to the network

	flows    map[int]*Flow           // flows originating at this host, by flow id
	trackers map[int]*PacketTracker // receive-side bookkeeping, by flow id

	beaconPeriod float64
}

// NewHost constructs a Host attached to the network via accessLinkID.
func NewHost(name string, accessLinkID int, beaconPeriod float64) *Host {
	return &Host{
		id:           nxtID(),
		name:         name,
		accessLink:   accessLinkID,
		flows:        make(map[int]*Flow),
		trackers:     make(map[int]*PacketTracker),
		beaconPeriod: beaconPeriod,
	}
}

func (h *Host) DeviceID() int      { return h.id }
func (h *Host) DeviceName() string { return h.name }
func (h *Host) Kind() DeviceKind   { return HostKind }

// AccessLink returns the id of the link connecting this host to the
// network.
func (h *Host) AccessLink() int { return h.accessLink }

// setAccessLink is used by topology construction to bind a host to its
// access link once the link's id is known.
func (h *Host) setAccessLink(linkID int) {
	h.accessLink = linkID
}

// AttachFlow registers f as a flow this host will send for and/or expect
// traffic on, and ensures a receive tracker exists for it.
func (h *Host) AttachFlow(f *Flow) {
	h.flows[f.ID] = f
	if _, ok := h.trackers[f.ID]; !ok {
		h.trackers[f.ID] = NewPacketTracker()
	}
}

// StartBeaconing sends this host's first self-announcement immediately and,
// from then on, schedules one every beaconPeriod seconds for the remainder
// of the run.
func (h *Host) StartBeaconing(reg Registry, eq *EventQueue) {
	h.sendBeacon(reg, eq)
}

func (h *Host) sendBeacon(reg Registry, eq *EventQueue) {
	link, ok := reg.LinkByID(h.accessLink)
	if !ok {
		return
	}
	beacon := NewRoutingPacket(h.id, eq.Now())
	link.Send(reg, eq, beacon, link.OtherEndpoint(h.id))

	eq.Schedule(h.beaconPeriod, func(eq *EventQueue) {
		h.sendBeacon(reg, eq)
	})
}

// HandlePacket dispatches arriving traffic: PayloadPackets destined here
// are acknowledged, AckPackets destined here are handed to their Flow, and
// anything else a host cannot make sense of -- a RoutingPacket (a host
// neither forwards nor needs beacons other than its own; this fires
// routinely when two hosts are directly linked with no router between
// them to consume the beacon) or a Payload/Ack addressed elsewhere -- is
// logged as an unexpected packet rather than silently absorbed.
func (h *Host) HandlePacket(reg Registry, eq *EventQueue, p *Packet, viaLink *Link) {
	switch p.Kind {
	case PayloadPacketKind:
		h.handlePayload(reg, eq, p, viaLink)
	case AckPacketKind:
		h.handleAck(reg, eq, p)
	case RoutingPacketKind:
		reg.Logger().PacketDropped(eq.Now(), p.PacketID, viaLink.ID, UnexpectedPacket)
	}
}

func (h *Host) handlePayload(reg Registry, eq *EventQueue, p *Packet, viaLink *Link) {
	if p.DestHostID != h.id {
		reg.Logger().PacketDropped(eq.Now(), p.PacketID, viaLink.ID, UnexpectedPacket)
		return
	}
	tracker, ok := h.trackers[p.FlowID]
	if !ok {
		tracker = NewPacketTracker()
		h.trackers[p.FlowID] = tracker
	}
	expected := tracker.Receive(p.SeqNo)

	ack := NewAckPacket(p.FlowID, expected, p.DuplicateNo, h.id, p.SourceHostID)
	link, ok := reg.LinkByID(h.accessLink)
	if !ok {
		return
	}
	link.Send(reg, eq, ack, link.OtherEndpoint(h.id))
}

func (h *Host) handleAck(reg Registry, eq *EventQueue, p *Packet) {
	if p.DestHostID != h.id {
		link, ok := reg.LinkByID(h.accessLink)
		linkID := 0
		if ok {
			linkID = link.ID
		}
		reg.Logger().PacketDropped(eq.Now(), p.PacketID, linkID, UnexpectedPacket)
		return
	}
	f, ok := h.flows[p.FlowID]
	if !ok {
		return
	}
	f.OnAckArrived(reg, eq, p)
}
