package netsim

import "testing"

func newTestFlowFixture(amountBytes int) (*Simulation, *Flow) {
	sim, a, b, _ := newTestLinkFixture(1_000_000, 0.001, 1<<20)

	f := NewFlow(a.DeviceID(), b.DeviceID(), amountBytes, 0, NewRenoController(64), 2.0, nil)
	a.AttachFlow(f)
	b.AttachFlow(f)

	return sim, f
}

func TestFlow_CompletesAndReportsBytes(t *testing.T) {
	sim, f := newTestFlowFixture(3 * PayloadPacketSize)
	eq := sim.EventQueue()

	f.Start(sim, eq)
	eq.Run(func() bool { return f.Done() || eq.Now() > 60 })

	if !f.Done() {
		t.Fatalf("flow did not complete")
	}

	var reportedBytes int
	for _, rec := range sim.Logger().Records {
		if rec.Kind == FlowRateRecord && rec.FlowID == f.ID {
			reportedBytes = rec.Bytes
		}
	}
	if reportedBytes != f.AmountBytes {
		t.Errorf("reported bytes = %d, want %d", reportedBytes, f.AmountBytes)
	}
}

func TestFlow_WindowGrowsDuringSlowStart(t *testing.T) {
	sim, f := newTestFlowFixture(20 * PayloadPacketSize)
	eq := sim.EventQueue()

	initialWindow := f.Window()
	f.Start(sim, eq)
	eq.Run(func() bool { return f.Done() || eq.Now() > 60 })

	var maxObserved float64
	for _, rec := range sim.Logger().Records {
		if rec.Kind == WindowSizeRecord && rec.FlowID == f.ID && rec.Window > maxObserved {
			maxObserved = rec.Window
		}
	}
	if maxObserved <= initialWindow {
		t.Errorf("max observed window %v did not grow past initial window %v", maxObserved, initialWindow)
	}
}

// TestFlow_RetransmitsPastPacketLoss gives the link a buffer too small to
// hold any payload or ack packet, so every packet sent while the link is
// busy is dropped (here, the extra payloads a growing window releases
// behind the one on the wire); completion is only possible if the flow's
// retransmission-timeout path actually resends.
func TestFlow_RetransmitsPastPacketLoss(t *testing.T) {
	sim, a, b, _ := newTestLinkFixture(PayloadPacketSize, 0, AckPacketSize-1)

	done := false
	f := NewFlow(a.DeviceID(), b.DeviceID(), 3*PayloadPacketSize, 0, NewRenoController(64), 0.5, func() { done = true })
	a.AttachFlow(f)
	b.AttachFlow(f)

	eq := sim.EventQueue()
	f.Start(sim, eq)
	eq.Run(func() bool { return done || eq.Now() > 120 })

	if !done {
		t.Errorf("flow never completed despite retransmission timeouts; got stuck after packet loss")
	}
}
