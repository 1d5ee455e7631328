package netsim

import "slices"

// routing.go implements RoutingTable: the per-device record of, for every
// destination host this device has heard a beacon about, which of its own
// links to forward toward that destination on and when the route backing
// that choice was last refreshed -- rather than routes.go's static
// Dijkstra-over-the-whole-topology approach, which precomputes every
// shortest path once from a God's-eye view of the graph before the
// simulation starts. Routing state here is learned purely from timestamp
// freshness: a beacon replaces the current route only if it is newer, so
// whichever path's beacons arrive first (the lowest-delay path, under
// periodic flooding) keeps winning -- the gonum shortest-path machinery
// routes.go used is kept in this module, but repurposed as a test-only
// diameter oracle (see topogen_integration_test.go) rather than as the live routing
// mechanism.

// UpdateResult reports what Update did to a RoutingTable entry.
type UpdateResult int

const (
	Inserted UpdateResult = iota
	Refreshed
	Ignored
)

func (r UpdateResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Refreshed:
		return "refreshed"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// routeEntry is one destination's current best-known route.
type routeEntry struct {
	viaLinkID           int
	lastUpdateTimestamp float64
}

// RoutingTable is the per-device state: for every known destination host
// id, which of this device's links leads there and when that route was
// last confirmed by a beacon.
type RoutingTable struct {
	routes map[int]routeEntry
}

// NewRoutingTable constructs an empty table; a device with no beacons yet
// received has no routes and must drop payload packets it can't forward.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{routes: make(map[int]routeEntry)}
}

// NextHop returns the link id to forward a packet toward destHostID on,
// and whether a route is known at all.
func (rt *RoutingTable) NextHop(destHostID int) (int, bool) {
	e, ok := rt.routes[destHostID]
	if !ok {
		return 0, false
	}
	return e.viaLinkID, true
}

// Update records that a beacon announcing reachability of hostID arrived
// via link at timestamp. The route is Inserted if hostID had no entry yet,
// Refreshed if timestamp is strictly newer than the entry's current
// timestamp (regardless of whether link is the same link already in use),
// or Ignored if timestamp is not newer -- a beacon carrying a stale or
// equal origin_time never displaces what's already there.
func (rt *RoutingTable) Update(hostID, link int, timestamp float64) UpdateResult {
	current, known := rt.routes[hostID]
	if !known {
		rt.routes[hostID] = routeEntry{viaLinkID: link, lastUpdateTimestamp: timestamp}
		return Inserted
	}
	if timestamp > current.lastUpdateTimestamp {
		rt.routes[hostID] = routeEntry{viaLinkID: link, lastUpdateTimestamp: timestamp}
		return Refreshed
	}
	return Ignored
}

// ExpireStaleRoutes drops any route not refreshed within maxAge seconds of
// now, so a Router stops forwarding toward a destination whose
// beacons have stopped arriving (e.g. after a link failure).
func (rt *RoutingTable) ExpireStaleRoutes(now, maxAge float64) {
	for dest, e := range rt.routes {
		if now-e.lastUpdateTimestamp > maxAge {
			delete(rt.routes, dest)
		}
	}
}

// KnownDestinations returns every destination host id this table currently
// has a route for, in ascending order, because map iteration order isn't
// reproducible across runs of the same input.
func (rt *RoutingTable) KnownDestinations() []int {
	dests := make([]int, 0, len(rt.routes))
	for dest := range rt.routes {
		dests = append(dests, dest)
	}
	slices.Sort(dests)
	return dests
}
