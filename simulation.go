package netsim

// simulation.go implements Simulation: the Registry that resolves Device
// and Link ids, owns the EventQueue and Logger, and drives the run loop
// until every flow has finished or a configured time limit is reached.
//
// Grounded on net.go's networkStruct (the top-level owner of every device
// and link in a topology) and mrnes.go's BuildExperimentNet driver shape,
// generalized so construction happens through topology.go's BuildTopology
// rather than a global-variable-heavy package init.

// Config carries every run-time knob this simulator exposes, gathering
// the defaults the distilled transport-layer behavior leaves as Open
// Questions (decided in DESIGN.md) into one place a topology file doesn't
// need to restate unless it wants to override them.
type Config struct {
	RoutingBeaconPeriodSec float64
	FlowWakeTimeoutSec     float64
	InitialSsthresh        float64
	FastAlpha              float64
	FastGamma              float64
	RouteStaleAfterSec     float64
	MaxSimTimeSec          float64

	// CongestionAlgorithmOverride, if non-empty, replaces every flow's own
	// congestion_algorithm choice (reno or fast) for this run -- the CLI's
	// -algo flag and an experiment config's congestion_algorithm entry both
	// set this rather than editing the topology file itself.
	CongestionAlgorithmOverride string

	LogActive  bool
	LogVerbose bool
}

// DefaultConfig returns the Config this simulator uses when a topology
// file doesn't override a knob.
func DefaultConfig() *Config {
	return &Config{
		RoutingBeaconPeriodSec: 1.0,
		FlowWakeTimeoutSec:     1.0,
		InitialSsthresh:        64,
		FastAlpha:              50,
		FastGamma:              0.5,
		RouteStaleAfterSec:     3.0,
		MaxSimTimeSec:          3600,
		LogActive:              true,
	}
}

// Simulation owns the full device/link/flow graph for one run and
// implements Registry so Links and Devices can resolve each other by id
// without holding direct references.
type Simulation struct {
	cfg *Config

	clock *Clock
	eq    *EventQueue
	log   *Logger

	devices map[int]Device
	links   map[int]*Link
	flows   []*Flow

	hosts   []*Host
	routers []*Router

	flowsRemaining int
}

// NewSimulation constructs an empty Simulation ready for topology
// construction.
func NewSimulation(cfg *Config) *Simulation {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := NewClock()
	return &Simulation{
		cfg:     cfg,
		clock:   clock,
		eq:      NewEventQueue(clock),
		log:     NewLogger(cfg.LogActive, cfg.LogVerbose),
		devices: make(map[int]Device),
		links:   make(map[int]*Link),
	}
}

func (s *Simulation) addHost(h *Host) {
	s.devices[h.DeviceID()] = h
	s.hosts = append(s.hosts, h)
}

func (s *Simulation) addRouter(r *Router) {
	s.devices[r.DeviceID()] = r
	s.routers = append(s.routers, r)
}

func (s *Simulation) addLink(l *Link) {
	s.links[l.ID] = l
}

func (s *Simulation) addFlow(f *Flow) {
	s.flows = append(s.flows, f)
	s.flowsRemaining++
}

func (s *Simulation) markFlowDone() {
	s.flowsRemaining--
}

// DeviceByID implements Registry.
func (s *Simulation) DeviceByID(id int) (Device, bool) {
	d, ok := s.devices[id]
	return d, ok
}

// LinkByID implements Registry.
func (s *Simulation) LinkByID(id int) (*Link, bool) {
	l, ok := s.links[id]
	return l, ok
}

// Logger implements Registry.
func (s *Simulation) Logger() *Logger {
	return s.log
}

// EventQueue exposes the simulation's event queue, mostly for tests that
// want to inspect timing directly.
func (s *Simulation) EventQueue() *EventQueue {
	return s.eq
}

// Flows returns every flow registered in this simulation.
func (s *Simulation) Flows() []*Flow {
	return s.flows
}

// Routers returns every router registered in this simulation.
func (s *Simulation) Routers() []*Router {
	return s.routers
}

// Hosts returns every host registered in this simulation.
func (s *Simulation) Hosts() []*Host {
	return s.hosts
}

// Links returns every link registered in this simulation.
func (s *Simulation) Links() []*Link {
	out := make([]*Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	return out
}

// Run starts every host beaconing, starts every flow, schedules periodic
// routing-table staleness expiry, and drives the event queue until either
// every flow has finished, the queue is exhausted, or MaxSimTimeSec is
// reached. A topology with no flows at all (routing-only) never satisfies
// the flows-done condition, so it keeps running on beacon traffic alone
// until MaxSimTimeSec.
func (s *Simulation) Run() {
	for _, h := range s.hosts {
		h.StartBeaconing(s, s.eq)
	}
	for _, f := range s.flows {
		f.Start(s, s.eq)
	}
	s.scheduleRouteExpiry()

	s.eq.Run(func() bool {
		allFlowsDone := len(s.flows) > 0 && s.flowsRemaining <= 0
		return allFlowsDone || s.eq.Empty() || s.eq.Now() >= s.cfg.MaxSimTimeSec
	})
}

func (s *Simulation) scheduleRouteExpiry() {
	const expiryCheckPeriod = 1.0
	var tick func(eq *EventQueue)
	tick = func(eq *EventQueue) {
		now := eq.Now()
		for _, r := range s.routers {
			r.Table().ExpireStaleRoutes(now, s.cfg.RouteStaleAfterSec)
		}
		eq.Schedule(expiryCheckPeriod, tick)
	}
	s.eq.Schedule(expiryCheckPeriod, tick)
}
