// Package topogen generates random topology descriptions for testing the
// simulator against networks larger than anyone would hand-write.
//
// Grounded on net.go's and flow.go's rngstrm field: every device owns a
// named rngstream.RngStream so a run seeded by topology name is
// reproducible; this generator uses the same library for the same reason
// -- a topology generated from a given name is the same topology every
// time, which the tests in this module's packages rely on.
package topogen

import (
	"fmt"

	"github.com/iti/rngstream"

	"github.com/iti/netsim"
)

// Options controls the shape of a generated topology.
type Options struct {
	Name            string // seeds the rng stream; same name -> same topology
	RouterCount     int
	HostCount       int
	LinkRateBps     float64
	LinkDelaySec    float64
	LinkBufferBytes int
	FlowAmountBytes int
	FlowAlgorithm   string
}

// Generate builds a TopologyDesc with a ring of RouterCount routers
// (guaranteeing every router has two neighbors, so the network has no
// single point of disconnection), HostCount hosts each attached to a
// randomly chosen router, and one flow between two randomly chosen hosts.
func Generate(opts Options) *netsim.TopologyDesc {
	rng := rngstream.New(opts.Name)

	td := &netsim.TopologyDesc{}

	for i := 0; i < opts.RouterCount; i++ {
		td.Routers = append(td.Routers, netsim.RouterDesc{Name: fmt.Sprintf("r%d", i)})
	}
	for i := 0; i < opts.RouterCount; i++ {
		next := (i + 1) % opts.RouterCount
		td.Links = append(td.Links, netsim.LinkDesc{
			Name:            fmt.Sprintf("r%d-r%d", i, next),
			DeviceA:         fmt.Sprintf("r%d", i),
			DeviceB:         fmt.Sprintf("r%d", next),
			RateBytesPerSec: opts.LinkRateBps,
			PropDelaySec:    opts.LinkDelaySec,
			BufferBytes:     opts.LinkBufferBytes,
		})
	}

	hostNames := make([]string, 0, opts.HostCount)
	for i := 0; i < opts.HostCount; i++ {
		name := fmt.Sprintf("h%d", i)
		hostNames = append(hostNames, name)
		td.Hosts = append(td.Hosts, netsim.HostDesc{Name: name})

		router := pickRouter(rng, opts.RouterCount)
		td.Links = append(td.Links, netsim.LinkDesc{
			Name:            fmt.Sprintf("%s-r%d", name, router),
			DeviceA:         name,
			DeviceB:         fmt.Sprintf("r%d", router),
			RateBytesPerSec: opts.LinkRateBps,
			PropDelaySec:    opts.LinkDelaySec,
			BufferBytes:     opts.LinkBufferBytes,
		})
	}

	if len(hostNames) >= 2 {
		src, dst := pickDistinctPair(rng, len(hostNames))
		td.Flows = append(td.Flows, netsim.FlowDesc{
			Name:        "f0",
			Source:      hostNames[src],
			Destination: hostNames[dst],
			AmountBytes: opts.FlowAmountBytes,
			Algorithm:   opts.FlowAlgorithm,
		})
	}

	return td
}

func pickRouter(rng *rngstream.RngStream, routerCount int) int {
	if routerCount <= 0 {
		return 0
	}
	return int(rng.RandU01() * float64(routerCount))
}

func pickDistinctPair(rng *rngstream.RngStream, n int) (int, int) {
	a := int(rng.RandU01() * float64(n))
	b := int(rng.RandU01() * float64(n))
	if a == b {
		b = (b + 1) % n
	}
	return a, b
}
