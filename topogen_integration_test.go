package netsim_test

// topogen_integration_test.go exercises internal/topogen against a full
// Simulation, not just RoutingTable in isolation: it drives the
// routing-convergence and conservation properties internal/topogen was
// built for, plus hand-built integration-level scenarios for diamond
// routing, buffer overflow, and FAST steady state.

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/iti/netsim"
	"github.com/iti/netsim/internal/topogen"
)

// topologyDiameter computes the hop-count diameter of td's device graph, so
// a test can size how many beacon periods convergence is allowed before
// checking it. Mirrors routing_test.go's diameterOracle, here keyed by
// device name rather than id since a TopologyDesc hasn't been built yet.
func topologyDiameter(td *netsim.TopologyDesc) int {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	index := make(map[string]int64)
	nodes := make(map[string]graph.Node)
	next := func(name string) graph.Node {
		if n, ok := nodes[name]; ok {
			return n
		}
		id := int64(len(index))
		index[name] = id
		n := simple.Node(id)
		nodes[name] = n
		g.AddNode(n)
		return n
	}
	for _, h := range td.Hosts {
		next(h.Name)
	}
	for _, r := range td.Routers {
		next(r.Name)
	}
	for _, l := range td.Links {
		a, b := next(l.DeviceA), next(l.DeviceB)
		g.SetWeightedEdge(simple.WeightedEdge{F: a, T: b, W: 1})
	}

	diameter := 0
	for _, from := range nodes {
		tree := path.DijkstraFrom(from, g)
		for _, to := range nodes {
			_, weight := tree.To(to.ID())
			if !math.IsInf(weight, 1) && int(weight) > diameter {
				diameter = int(weight)
			}
		}
	}
	return diameter
}

func deviceNameIDs(sim *netsim.Simulation) map[string]int {
	out := make(map[string]int)
	for _, h := range sim.Hosts() {
		out[h.DeviceName()] = h.DeviceID()
	}
	for _, r := range sim.Routers() {
		out[r.DeviceName()] = r.DeviceID()
	}
	return out
}

func linkBetween(sim *netsim.Simulation, aID, bID int) (*netsim.Link, bool) {
	for _, l := range sim.Links() {
		if (l.EndpointA == aID && l.EndpointB == bID) || (l.EndpointA == bID && l.EndpointB == aID) {
			return l, true
		}
	}
	return nil, false
}

// TestTopogen_RoutingConvergesAndConserves runs several randomly generated
// topologies (fixed seeds, so the run is reproducible) far enough past
// their diameter to guarantee routing convergence, then checks that every
// router has learned a route to every host (convergence) and that every
// flow's own packet bookkeeping balances (conservation:
// acked + unacked_at_end + unsent == total).
func TestTopogen_RoutingConvergesAndConserves(t *testing.T) {
	seeds := []string{"topo-a", "topo-b", "topo-c"}
	for _, seed := range seeds {
		t.Run(seed, func(t *testing.T) {
			td := topogen.Generate(topogen.Options{
				Name:            seed,
				RouterCount:     5,
				HostCount:       4,
				LinkRateBps:     1_000_000,
				LinkDelaySec:    0.01,
				LinkBufferBytes: 64 * 1024,
				FlowAmountBytes: 32 * 1024,
				FlowAlgorithm:   "reno",
			})

			diameter := topologyDiameter(td)

			cfg := netsim.DefaultConfig()
			cfg.RoutingBeaconPeriodSec = 0.1
			cfg.RouteStaleAfterSec = 1000
			cfg.MaxSimTimeSec = float64(diameter+2) * cfg.RoutingBeaconPeriodSec * 4
			cfg.LogActive = false

			sim, err := netsim.BuildTopology(td, cfg)
			if err != nil {
				t.Fatalf("BuildTopology: %v", err)
			}
			sim.Run()

			for _, r := range sim.Routers() {
				for _, h := range sim.Hosts() {
					if _, ok := r.Table().NextHop(h.DeviceID()); !ok {
						t.Errorf("seed %q: router %q never learned a route to host %q", seed, r.DeviceName(), h.DeviceName())
					}
				}
			}

			for _, f := range sim.Flows() {
				sum := f.Acked() + uint64(f.InFlightCount()) + (f.TotalPackets() - f.NextSeqToSend())
				if sum != f.TotalPackets() {
					t.Errorf("seed %q: flow %d conservation violated: acked=%d inflight=%d unsent=%d total=%d",
						seed, f.ID, f.Acked(), f.InFlightCount(), f.TotalPackets()-f.NextSeqToSend(), f.TotalPackets())
				}
			}
		})
	}
}

// TestIntegration_DiamondRoutingPrefersLowerDelayPath builds S2: two hosts,
// each behind its own edge router (rin, rout), with two parallel paths of
// unequal propagation delay between those routers (through rfast and
// rslow), and no flows at all. After a few beacon periods, rin's route to
// the far host h2 must point over the lower-delay path -- not because anything computed
// hop counts, but because that path's beacons always arrive first and keep
// winning the timestamp-freshness comparison.
func TestIntegration_DiamondRoutingPrefersLowerDelayPath(t *testing.T) {
	const rate = 10_000_000.0
	const buf = 64 * 1024

	td := &netsim.TopologyDesc{
		Hosts: []netsim.HostDesc{{Name: "h1"}, {Name: "h2"}},
		Routers: []netsim.RouterDesc{
			{Name: "rin"}, {Name: "rout"}, {Name: "rfast"}, {Name: "rslow"},
		},
		Links: []netsim.LinkDesc{
			{Name: "h1-rin", DeviceA: "h1", DeviceB: "rin", RateBytesPerSec: rate, PropDelaySec: 0.001, BufferBytes: buf},
			{Name: "rout-h2", DeviceA: "rout", DeviceB: "h2", RateBytesPerSec: rate, PropDelaySec: 0.001, BufferBytes: buf},
			{Name: "rin-rfast", DeviceA: "rin", DeviceB: "rfast", RateBytesPerSec: rate, PropDelaySec: 0.005, BufferBytes: buf},
			{Name: "rfast-rout", DeviceA: "rfast", DeviceB: "rout", RateBytesPerSec: rate, PropDelaySec: 0.005, BufferBytes: buf},
			{Name: "rin-rslow", DeviceA: "rin", DeviceB: "rslow", RateBytesPerSec: rate, PropDelaySec: 0.05, BufferBytes: buf},
			{Name: "rslow-rout", DeviceA: "rslow", DeviceB: "rout", RateBytesPerSec: rate, PropDelaySec: 0.05, BufferBytes: buf},
		},
	}

	cfg := netsim.DefaultConfig()
	cfg.RoutingBeaconPeriodSec = 0.2
	cfg.RouteStaleAfterSec = 1000
	cfg.MaxSimTimeSec = 1.0
	cfg.LogActive = false

	sim, err := netsim.BuildTopology(td, cfg)
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	sim.Run()

	ids := deviceNameIDs(sim)
	fastLink, ok := linkBetween(sim, ids["rin"], ids["rfast"])
	if !ok {
		t.Fatalf("no link between rin and rfast")
	}

	var rin *netsim.Router
	for _, r := range sim.Routers() {
		if r.DeviceName() == "rin" {
			rin = r
		}
	}
	if rin == nil {
		t.Fatalf("router rin not found")
	}

	got, ok := rin.Table().NextHop(ids["h2"])
	if !ok {
		t.Fatalf("rin never learned a route to h2")
	}
	if got != fastLink.ID {
		t.Errorf("rin routes to h2 via link %d, want %d (the lower-delay path through rfast)", got, fastLink.ID)
	}
}

// TestIntegration_BufferOverflowDropsAndCompletes builds S3: two hosts on a
// slow, small-buffer link with a single Reno flow large enough to overrun
// it. The run must record at least one buffer_full drop yet still finish
// the flow once retransmits catch up.
func TestIntegration_BufferOverflowDropsAndCompletes(t *testing.T) {
	td := &netsim.TopologyDesc{
		Hosts: []netsim.HostDesc{{Name: "h1"}, {Name: "h2"}},
		Links: []netsim.LinkDesc{
			{Name: "h1-h2", DeviceA: "h1", DeviceB: "h2", RateBytesPerSec: 125_000, PropDelaySec: 0.001, BufferBytes: 2048},
		},
		Flows: []netsim.FlowDesc{
			{Name: "f0", Source: "h1", Destination: "h2", AmountBytes: 1_000_000, Algorithm: "reno"},
		},
	}

	cfg := netsim.DefaultConfig()
	cfg.MaxSimTimeSec = 600
	cfg.LogActive = true

	sim, err := netsim.BuildTopology(td, cfg)
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	sim.Run()

	dropped := false
	for _, rec := range sim.Logger().Records {
		if rec.Kind == netsim.PacketDroppedRecord && rec.Reason == netsim.BufferFull {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Errorf("expected at least one buffer_full drop record, got none")
	}

	flows := sim.Flows()
	if len(flows) != 1 {
		t.Fatalf("expected 1 flow, got %d", len(flows))
	}
	if !flows[0].Done() {
		t.Errorf("flow did not complete within %v seconds of simulated time", cfg.MaxSimTimeSec)
	}
}

// TestIntegration_FastSteadyStateBufferOccupancy builds S5: a single FAST
// flow on a 10 Mbps link with 1024-byte payloads and alpha=50. FAST is
// designed to hold roughly alpha packets queued at the bottleneck once it
// stops growing the window via loss, so steady-state occupancy should
// settle well short of the buffer's capacity without ever draining to
// nothing -- the buffer is sized generously so the run records this
// without any buffer_full drops muddying the signal.
func TestIntegration_FastSteadyStateBufferOccupancy(t *testing.T) {
	const payloadSize = float64(netsim.PayloadPacketSize)
	const rate = 10_000_000.0 / 8 // 10 Mbps in bytes/sec

	td := &netsim.TopologyDesc{
		Hosts: []netsim.HostDesc{{Name: "h1"}, {Name: "h2"}},
		Links: []netsim.LinkDesc{
			{Name: "h1-h2", DeviceA: "h1", DeviceB: "h2", RateBytesPerSec: rate, PropDelaySec: 0.02, BufferBytes: 256 * 1024},
		},
		Flows: []netsim.FlowDesc{
			{Name: "f0", Source: "h1", Destination: "h2", AmountBytes: 20_000_000, Algorithm: "fast"},
		},
	}

	cfg := netsim.DefaultConfig()
	cfg.FastAlpha = 50
	cfg.FastGamma = 0.5
	cfg.MaxSimTimeSec = 60
	cfg.LogActive = true

	sim, err := netsim.BuildTopology(td, cfg)
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	sim.Run()

	var samples []int
	dropped := false
	cutoff := cfg.MaxSimTimeSec * 0.5
	for _, rec := range sim.Logger().Records {
		switch {
		case rec.Kind == netsim.BufferOccupancyRecord && rec.Time >= cutoff:
			samples = append(samples, rec.UsedBytes)
		case rec.Kind == netsim.PacketDroppedRecord && rec.Reason == netsim.BufferFull:
			dropped = true
		}
	}
	if dropped {
		t.Errorf("buffer_full drop recorded; buffer capacity is too small to observe FAST's steady state")
	}
	if len(samples) == 0 {
		t.Fatalf("no buffer_occupancy samples recorded after the warmup cutoff")
	}

	total := 0
	for _, s := range samples {
		total += s
	}
	avgBytes := float64(total) / float64(len(samples))
	avgPackets := avgBytes / payloadSize

	const bufferCapacityPackets = (256 * 1024) / netsim.PayloadPacketSize
	if avgPackets <= 0 {
		t.Errorf("average steady-state buffer occupancy = %.1f packets, want > 0 (FAST should hold a queue, not drain to empty)", avgPackets)
	}
	if avgPackets >= bufferCapacityPackets/2 {
		t.Errorf("average steady-state buffer occupancy = %.1f packets, want well short of capacity (%d packets)", avgPackets, bufferCapacityPackets)
	}
}
