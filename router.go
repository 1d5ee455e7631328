package netsim

// router.go implements Router, the Device that forwards PayloadPacket and
// AckPacket traffic toward their destination by consulting its
// RoutingTable, and that propagates RoutingPacket beacons -- unchanged,
// the same packet object -- out every link other than the one the beacon
// arrived on, whenever the beacon actually improves the table.
//
// Grounded on net.go's routerDev, which likewise just forwards a
// networkMsg out the interface routing picks; beacon rebroadcast is this
// system's replacement for routerDev's static forwarding table lookup.

// Router is a forwarding-only network device: it originates no traffic of
// its own.
type Router struct {
	id    int
	name  string
	links []int // ids of links incident to this router

	table *RoutingTable
}

// NewRouter constructs a Router with the given incident link ids.
func NewRouter(name string, links []int) *Router {
	return &Router{
		id:    nxtID(),
		name:  name,
		links: links,
		table: NewRoutingTable(),
	}
}

func (r *Router) DeviceID() int        { return r.id }
func (r *Router) DeviceName() string   { return r.name }
func (r *Router) Kind() DeviceKind     { return RouterKind }
func (r *Router) Table() *RoutingTable { return r.table }

// Links returns the ids of every link incident to this router.
func (r *Router) Links() []int { return r.links }

// AddLink records a link id as incident to this router, used by topology
// construction once link ids are known.
func (r *Router) AddLink(linkID int) {
	r.links = append(r.links, linkID)
}

// HandlePacket dispatches on packet kind: beacons update the routing table
// and are rebroadcast; payload and ack packets are forwarded toward their
// destination.
func (r *Router) HandlePacket(reg Registry, eq *EventQueue, p *Packet, viaLink *Link) {
	switch p.Kind {
	case RoutingPacketKind:
		r.handleBeacon(reg, eq, p, viaLink)
	case PayloadPacketKind:
		r.forward(reg, eq, p, p.DestHostID)
	case AckPacketKind:
		r.forward(reg, eq, p, p.DestHostID)
	}
}

func (r *Router) handleBeacon(reg Registry, eq *EventQueue, p *Packet, viaLink *Link) {
	result := r.table.Update(p.SourceHostID, viaLink.ID, p.OriginTime)
	if result != Inserted && result != Refreshed {
		return
	}
	for _, linkID := range r.links {
		if linkID == viaLink.ID {
			continue
		}
		link, ok := reg.LinkByID(linkID)
		if !ok {
			continue
		}
		link.Send(reg, eq, p, link.OtherEndpoint(r.id))
	}
}

func (r *Router) forward(reg Registry, eq *EventQueue, p *Packet, destHostID int) {
	linkID, ok := r.table.NextHop(destHostID)
	if !ok {
		reg.Logger().PacketDropped(eq.Now(), p.PacketID, 0, NoRoute)
		return
	}
	link, ok := reg.LinkByID(linkID)
	if !ok {
		reg.Logger().PacketDropped(eq.Now(), p.PacketID, linkID, NoRoute)
		return
	}
	link.Send(reg, eq, p, link.OtherEndpoint(r.id))
}
