package netsim

// topology.go implements the two-phase topology loading pattern
// desc-topo.go and mrnes.go use throughout: a set of flat Desc structs
// that deserialize directly from JSON or YAML, followed by a construction
// pass (BuildTopology, standing in for createTopoReferences) that turns
// those descriptions into the live Device/Link/Flow graph a Simulation
// runs.
//
// The desc shapes themselves (hosts, routers, links, flows as flat lists
// keyed by name/id) follow parsing.py rather than a richer
// per-interface topology, since this topology model is link-level, not
// interface-level.

import (
	"encoding/json"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// HostDesc describes one Host entry in a topology file.
type HostDesc struct {
	Name string `json:"name" yaml:"name"`
}

// RouterDesc describes one Router entry in a topology file.
type RouterDesc struct {
	Name string `json:"name" yaml:"name"`
}

// LinkDesc describes one Link entry in a topology file: a connection
// between two named devices (host or router) with the given capacity,
// propagation delay, and buffer size.
type LinkDesc struct {
	Name             string  `json:"name" yaml:"name"`
	DeviceA          string  `json:"device_a" yaml:"device_a"`
	DeviceB          string  `json:"device_b" yaml:"device_b"`
	RateBytesPerSec  float64 `json:"rate_bytes_per_sec" yaml:"rate_bytes_per_sec"`
	PropDelaySec     float64 `json:"prop_delay_s" yaml:"prop_delay_s"`
	BufferBytes      int     `json:"buffer_bytes" yaml:"buffer_bytes"`
}

// FlowDesc describes one Flow entry in a topology file: a transfer from a
// named source host to a named destination host.
type FlowDesc struct {
	Name        string  `json:"name" yaml:"name"`
	Source      string  `json:"source" yaml:"source"`
	Destination string  `json:"destination" yaml:"destination"`
	AmountBytes int     `json:"amount_bytes" yaml:"amount_bytes"`
	StartTime   float64 `json:"start_time" yaml:"start_time"`
	Algorithm   string  `json:"algorithm" yaml:"algorithm"` // "reno" or "fast"
}

// TopologyDesc is the top-level deserialized shape of a topology file.
type TopologyDesc struct {
	Hosts   []HostDesc   `json:"hosts" yaml:"hosts"`
	Routers []RouterDesc `json:"routers" yaml:"routers"`
	Links   []LinkDesc   `json:"links" yaml:"links"`
	Flows   []FlowDesc   `json:"flows" yaml:"flows"`
}

// ReadTopologyDesc reads and deserializes a TopologyDesc from filename,
// choosing JSON or YAML decoding by file extension, mirroring
// ReadTopoCfg.
func ReadTopologyDesc(filename string) (*TopologyDesc, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, newTopologyErr("reading topology file %q: %v", filename, err)
	}

	var td TopologyDesc
	ext := path.Ext(filename)
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &td)
	default:
		err = json.Unmarshal(data, &td)
	}
	if err != nil {
		return nil, newTopologyErr("parsing topology file %q: %v", filename, err)
	}
	return &td, nil
}

// ExperimentConfig is the deserialized shape of an optional experiment
// config file: the subset of Config's knobs a run may want to override
// without editing the topology file, mirroring mrnes.go's separate
// TopoCfg/ExpCfg split between topology and run-parameters.
type ExperimentConfig struct {
	CongestionAlgorithm    string  `json:"congestion_algorithm" yaml:"congestion_algorithm"`
	Verbose                bool    `json:"verbose" yaml:"verbose"`
	RoutingBeaconPeriodSec float64 `json:"routing_beacon_period_s" yaml:"routing_beacon_period_s"`
	FlowWakeTimeoutSec     float64 `json:"flow_wake_timeout_s" yaml:"flow_wake_timeout_s"`
	InitialSsthresh        float64 `json:"initial_ssthresh" yaml:"initial_ssthresh"`
	FastAlpha              float64 `json:"fast_alpha" yaml:"fast_alpha"`
	FastGamma              float64 `json:"fast_gamma" yaml:"fast_gamma"`
	MaxSimTimeSec          float64 `json:"max_sim_time_s" yaml:"max_sim_time_s"`
}

// ReadExperimentConfig reads and deserializes an ExperimentConfig from
// filename, choosing JSON or YAML decoding by file extension, the same
// way ReadTopologyDesc does for topology files.
func ReadExperimentConfig(filename string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, newTopologyErr("reading experiment config %q: %v", filename, err)
	}

	var ec ExperimentConfig
	ext := path.Ext(filename)
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ec)
	default:
		err = json.Unmarshal(data, &ec)
	}
	if err != nil {
		return nil, newTopologyErr("parsing experiment config %q: %v", filename, err)
	}
	return &ec, nil
}

// ApplyTo overlays ec's non-zero fields onto cfg, leaving any field ec
// doesn't set at cfg's prior value (normally DefaultConfig's default).
func (ec *ExperimentConfig) ApplyTo(cfg *Config) {
	if ec.CongestionAlgorithm != "" {
		cfg.CongestionAlgorithmOverride = ec.CongestionAlgorithm
	}
	if ec.Verbose {
		cfg.LogVerbose = true
	}
	if ec.RoutingBeaconPeriodSec != 0 {
		cfg.RoutingBeaconPeriodSec = ec.RoutingBeaconPeriodSec
	}
	if ec.FlowWakeTimeoutSec != 0 {
		cfg.FlowWakeTimeoutSec = ec.FlowWakeTimeoutSec
	}
	if ec.InitialSsthresh != 0 {
		cfg.InitialSsthresh = ec.InitialSsthresh
	}
	if ec.FastAlpha != 0 {
		cfg.FastAlpha = ec.FastAlpha
	}
	if ec.FastGamma != 0 {
		cfg.FastGamma = ec.FastGamma
	}
	if ec.MaxSimTimeSec != 0 {
		cfg.MaxSimTimeSec = ec.MaxSimTimeSec
	}
}

// BuildTopology constructs the live Device/Link graph and Flow set
// described by td, using cfg for the knobs (beacon period, RTO,
// congestion-control parameters) not carried in the topology file itself.
// It is the construction half of the two-phase load, standing in for
// createTopoReferences.
func BuildTopology(td *TopologyDesc, cfg *Config) (*Simulation, error) {
	sim := NewSimulation(cfg)

	nameToDeviceID := make(map[string]int)

	for _, hd := range td.Hosts {
		h := NewHost(hd.Name, 0, cfg.RoutingBeaconPeriodSec)
		sim.addHost(h)
		nameToDeviceID[hd.Name] = h.DeviceID()
	}
	for _, rd := range td.Routers {
		r := NewRouter(rd.Name, nil)
		sim.addRouter(r)
		nameToDeviceID[rd.Name] = r.DeviceID()
	}

	for _, ld := range td.Links {
		aID, ok := nameToDeviceID[ld.DeviceA]
		if !ok {
			return nil, newTopologyErr("link %q references unknown device %q", ld.Name, ld.DeviceA)
		}
		bID, ok := nameToDeviceID[ld.DeviceB]
		if !ok {
			return nil, newTopologyErr("link %q references unknown device %q", ld.Name, ld.DeviceB)
		}
		l := NewLink(ld.RateBytesPerSec, ld.PropDelaySec, ld.BufferBytes, aID, bID)
		sim.addLink(l)

		attachLinkToDevice(sim, aID, l.ID)
		attachLinkToDevice(sim, bID, l.ID)
	}

	for _, fd := range td.Flows {
		srcID, ok := nameToDeviceID[fd.Source]
		if !ok {
			return nil, newTopologyErr("flow %q references unknown source %q", fd.Name, fd.Source)
		}
		dstID, ok := nameToDeviceID[fd.Destination]
		if !ok {
			return nil, newTopologyErr("flow %q references unknown destination %q", fd.Name, fd.Destination)
		}

		controller, err := newControllerFor(fd.Algorithm, cfg)
		if err != nil {
			return nil, err
		}

		f := NewFlow(srcID, dstID, fd.AmountBytes, fd.StartTime, controller, cfg.FlowWakeTimeoutSec, sim.markFlowDone)
		sim.addFlow(f)

		if host, ok := sim.DeviceByID(srcID); ok {
			if h, ok := host.(*Host); ok {
				h.AttachFlow(f)
			}
		}
		if host, ok := sim.DeviceByID(dstID); ok {
			if h, ok := host.(*Host); ok {
				h.AttachFlow(f)
			}
		}
	}

	return sim, nil
}

func attachLinkToDevice(sim *Simulation, deviceID, linkID int) {
	dev, ok := sim.DeviceByID(deviceID)
	if !ok {
		return
	}
	switch d := dev.(type) {
	case *Host:
		if d.AccessLink() == 0 {
			d.setAccessLink(linkID)
		}
	case *Router:
		d.AddLink(linkID)
	}
}

func newControllerFor(algorithm string, cfg *Config) (CongestionController, error) {
	if cfg.CongestionAlgorithmOverride != "" {
		algorithm = cfg.CongestionAlgorithmOverride
	}
	switch algorithm {
	case "", "reno":
		return NewRenoController(cfg.InitialSsthresh), nil
	case "fast":
		return NewFastController(cfg.FastAlpha, cfg.FastGamma), nil
	default:
		return nil, newTopologyErr("unknown congestion control algorithm %q", algorithm)
	}
}
