package netsim

// congestion.go implements the CongestionController contract and its two
// concrete variants, Reno and FAST.
//
// Reno's state machine (slow_start / congestion_avoidance / fast_recovery,
// ssthresh halving on loss, additive increase in congestion avoidance) is
// carried over from the original congestion_controller.py almost
// unchanged in semantics; its Go shape -- a small interface with one
// concrete struct per variant, no shared base struct, and mutex-free
// single-threaded state (this engine has no goroutines; the EventQueue is
// the only scheduler) -- is grounded on junbin-yang-go-kitbox's reno.go.
// FAST's delay-based window law (window update toward
// base_RTT/RTT*window + alpha, gated by gamma) follows the same Python
// source's CongestionControllerFast.

import "math"

// CongestionState names a Reno-style state machine phase.
type CongestionState string

const (
	SlowStart         CongestionState = "slow_start"
	CongestionAvoid   CongestionState = "congestion_avoidance"
	FastRecovery      CongestionState = "fast_recovery"
)

// CongestionController is the shared contract a Flow drives as packets are
// sent, acked, and lost. Implementations hold no reference to the Flow
// itself; all state needed to compute a window lives in the controller.
type CongestionController interface {
	// Window returns the current congestion window, in packets.
	Window() float64

	// OnAck is called once per newly-acked (non-duplicate) cumulative ack,
	// with the RTT sample that produced it.
	OnAck(rttSample float64)

	// OnTripleDuplicateAck is called when three duplicate acks in a row
	// have been observed, signalling loss via fast retransmit.
	OnTripleDuplicateAck()

	// OnDuplicateAck is called for every duplicate ack beyond the third,
	// i.e. the 4th, 5th, ... in an unbroken run for the same expected_seq.
	OnDuplicateAck()

	// OnTimeout is called when a packet's retransmission timeout fires
	// while that packet is still unacknowledged.
	OnTimeout()
}

// --- Reno ---------------------------------------------------------------

// RenoController implements the classic slow-start / congestion-avoidance
// / fast-recovery state machine.
type RenoController struct {
	window  float64
	ssthresh float64
	state   CongestionState
}

// NewRenoController constructs a RenoController starting in slow start
// with the given initial slow-start threshold, in packets.
func NewRenoController(initialSsthresh float64) *RenoController {
	return &RenoController{
		window:   1,
		ssthresh: initialSsthresh,
		state:    SlowStart,
	}
}

func (c *RenoController) Window() float64 { return c.window }

func (c *RenoController) OnAck(rttSample float64) {
	switch c.state {
	case SlowStart:
		c.window++
		if c.window >= c.ssthresh {
			c.state = CongestionAvoid
		}
	case CongestionAvoid:
		c.window += 1 / c.window
	case FastRecovery:
		c.window = c.ssthresh
		c.state = CongestionAvoid
	}
}

func (c *RenoController) OnTripleDuplicateAck() {
	c.ssthresh = math.Max(c.window/2, 2)
	c.window = c.ssthresh + 3
	c.state = FastRecovery
}

// OnDuplicateAck inflates the window by one packet for each further
// duplicate ack received while in FastRecovery; outside FastRecovery it is
// a no-op (the 4th+ duplicate only matters once fast retransmit has
// already fired).
func (c *RenoController) OnDuplicateAck() {
	if c.state == FastRecovery {
		c.window++
	}
}

func (c *RenoController) OnTimeout() {
	c.ssthresh = math.Max(c.window/2, 2)
	c.window = 1
	c.state = SlowStart
}

// --- FAST -----------------------------------------------------------------

// FastController implements a delay-based controller: the window is
// pulled toward baseRTT/RTT*window + alpha each update, blended in at rate
// gamma and capped at twice the current window per sample, so the window
// tracks queuing delay rather than reacting only to loss, without ever
// jumping by more than double on a single ack.
type FastController struct {
	window  float64
	alpha   float64
	gamma   float64
	baseRTT float64 // smallest RTT observed, the no-queueing baseline
	haveRTT bool
}

// NewFastController constructs a FastController with the given alpha
// (packets) and gamma (update-rate fraction, 0 < gamma <= 1).
func NewFastController(alpha, gamma float64) *FastController {
	return &FastController{
		window: 1,
		alpha:  alpha,
		gamma:  gamma,
	}
}

func (c *FastController) Window() float64 { return c.window }

func (c *FastController) OnAck(rttSample float64) {
	if !c.haveRTT || rttSample < c.baseRTT {
		c.baseRTT = rttSample
		c.haveRTT = true
	}
	if rttSample <= 0 {
		return
	}
	target := c.baseRTT/rttSample*c.window + c.alpha
	blended := (1-c.gamma)*c.window + c.gamma*target
	c.window = math.Min(2*c.window, blended)
	if c.window < 1 {
		c.window = 1
	}
}

func (c *FastController) OnTripleDuplicateAck() {
	c.window = math.Max(c.window/2, 1)
}

// OnDuplicateAck is a no-op: FAST has no FastRecovery phase, so duplicate
// acks past the third carry no additional signal beyond the drop already
// applied by OnTripleDuplicateAck.
func (c *FastController) OnDuplicateAck() {}

// OnTimeout halves the window rather than resetting to slow start: FAST
// gives loss (whether signalled by timeout or triple-dup) the same
// response, unlike Reno, which treats a timeout as a harder signal than a
// triple-dup.
func (c *FastController) OnTimeout() {
	c.window = math.Max(c.window/2, 1)
}
