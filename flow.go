package netsim

// flow.go implements Flow: a sender-side transfer of a fixed number of
// bytes from a source host to a destination host, paced by a
// CongestionController and driven entirely by the arrival of cumulative
// acks and retransmission timeouts.
//
// Grounded on CreateFlow's constructor shape and the bgfPcktArrivals
// wake-function pattern of reacting to arrivals rather than polling (the
// matchParam/setParam dynamic override table those drew on was considered
// and dropped, see DESIGN.md); the send/ack/retransmit loop itself follows
// host.py's Flow semantics, expressed as event-driven methods instead of a
// thread that blocks on a queue.

// Flow represents one source-to-destination transfer of AmountBytes total
// payload, broken into PayloadPacketSize-sized packets.
type Flow struct {
	ID int

	SourceHostID int
	DestHostID   int
	AmountBytes  int
	StartTime    float64

	controller CongestionController
	tracker    *PacketTracker // observes this flow's incoming acks

	nextSeqToSend uint64
	totalPackets  uint64
	inFlight      map[uint64]inFlightPacket

	rtoSeconds      float64
	smoothedRTT     float64
	haveRTTEstimate bool

	acked  uint64 // count of packets fully acked (cumulative)
	done   bool
	onDone func()
}

type inFlightPacket struct {
	sentAt      float64
	duplicateNo uint32
}

// NewFlow constructs a Flow of amountBytes from sourceHostID to
// destHostID, starting at startTime and paced by controller. onDone, if
// non-nil, is invoked once every packet has been cumulatively acked -- the
// hook Simulation uses to detect when all flows have finished.
func NewFlow(sourceHostID, destHostID, amountBytes int, startTime float64, controller CongestionController, rtoSeconds float64, onDone func()) *Flow {
	total := uint64(amountBytes / PayloadPacketSize)
	if amountBytes%PayloadPacketSize != 0 {
		total++
	}
	return &Flow{
		ID:           nxtID(),
		SourceHostID: sourceHostID,
		DestHostID:   destHostID,
		AmountBytes:  amountBytes,
		StartTime:    startTime,
		controller:   controller,
		tracker:      NewPacketTracker(),
		totalPackets: total,
		inFlight:     make(map[uint64]inFlightPacket),
		rtoSeconds:   rtoSeconds,
		onDone:       onDone,
	}
}

// Done reports whether every packet in this flow has been cumulatively
// acked.
func (f *Flow) Done() bool { return f.done }

// Window returns the flow's current congestion window in packets.
func (f *Flow) Window() float64 { return f.controller.Window() }

// TotalPackets returns the number of packets this flow's AmountBytes splits
// into.
func (f *Flow) TotalPackets() uint64 { return f.totalPackets }

// Acked returns the count of packets this flow has cumulatively acked.
func (f *Flow) Acked() uint64 { return f.acked }

// InFlightCount returns the number of packets currently dispatched but not
// yet cumulatively acked.
func (f *Flow) InFlightCount() int { return len(f.inFlight) }

// NextSeqToSend returns the sequence number of the next packet this flow
// has not yet dispatched at least once.
func (f *Flow) NextSeqToSend() uint64 { return f.nextSeqToSend }

// Start schedules the flow's first burst of sends at StartTime.
func (f *Flow) Start(reg Registry, eq *EventQueue) {
	eq.ScheduleAt(f.StartTime, func(eq *EventQueue) {
		f.fillWindow(reg, eq)
	})
}

// fillWindow sends as many new packets as the congestion window currently
// allows, up to totalPackets.
func (f *Flow) fillWindow(reg Registry, eq *EventQueue) {
	window := uint64(f.controller.Window())
	for uint64(len(f.inFlight)) < window && f.nextSeqToSend < f.totalPackets {
		f.sendPacket(reg, eq, f.nextSeqToSend, 0)
		f.nextSeqToSend++
	}
}

func (f *Flow) sendPacket(reg Registry, eq *EventQueue, seqNo uint64, duplicateNo uint32) {
	host, ok := reg.DeviceByID(f.SourceHostID)
	if !ok {
		return
	}
	h, ok := host.(*Host)
	if !ok {
		return
	}
	link, ok := reg.LinkByID(h.AccessLink())
	if !ok {
		return
	}

	now := eq.Now()
	p := NewPayloadPacket(f.ID, seqNo, duplicateNo, f.SourceHostID, f.DestHostID)
	link.Send(reg, eq, p, link.OtherEndpoint(f.SourceHostID))
	f.inFlight[seqNo] = inFlightPacket{sentAt: now, duplicateNo: duplicateNo}

	eq.Schedule(f.rtoSeconds, func(eq *EventQueue) {
		f.checkTimeout(reg, eq, seqNo)
	})
}

func (f *Flow) checkTimeout(reg Registry, eq *EventQueue, seqNo uint64) {
	if f.done {
		return
	}
	entry, stillInFlight := f.inFlight[seqNo]
	if !stillInFlight {
		return
	}
	if seqNo < f.acked {
		delete(f.inFlight, seqNo)
		return
	}
	f.controller.OnTimeout()
	f.sendPacket(reg, eq, seqNo, entry.duplicateNo+1)
}

// OnAckArrived processes a cumulative ack received for this flow:
// advances the acked counter for any now-covered packets, feeds an RTT
// sample and a congestion-control update, and responds to a triple
// duplicate ack with a fast retransmit.
func (f *Flow) OnAckArrived(reg Registry, eq *EventQueue, p *Packet) {
	if f.done {
		return
	}
	isNew, duplicateCount := f.tracker.ObserveAck(p.ExpectedSeq)
	now := eq.Now()

	if isNew {
		rttSample := f.smoothedRTT
		for seq := f.acked; seq < p.ExpectedSeq; seq++ {
			if entry, ok := f.inFlight[seq]; ok {
				rtt := now - entry.sentAt
				f.recordRTT(reg, now, rtt)
				rttSample = rtt
				delete(f.inFlight, seq)
			}
		}
		f.acked = p.ExpectedSeq
		f.controller.OnAck(rttSample)
		reg.Logger().WindowSize(now, f.ID, f.controller.Window())
	} else if duplicateCount == 3 {
		f.controller.OnTripleDuplicateAck()
		if entry, ok := f.inFlight[p.ExpectedSeq]; ok {
			f.sendPacket(reg, eq, p.ExpectedSeq, entry.duplicateNo+1)
		}
	} else if duplicateCount > 3 {
		f.controller.OnDuplicateAck()
	}

	if f.acked >= f.totalPackets {
		f.finish(reg, now)
		return
	}
	f.fillWindow(reg, eq)
}

func (f *Flow) recordRTT(reg Registry, now, rtt float64) {
	if !f.haveRTTEstimate {
		f.smoothedRTT = rtt
		f.haveRTTEstimate = true
	} else {
		const alpha = 0.125
		f.smoothedRTT = (1-alpha)*f.smoothedRTT + alpha*rtt
	}
	reg.Logger().RTTSample(now, f.ID, rtt)
}

func (f *Flow) finish(reg Registry, now float64) {
	f.done = true
	reg.Logger().FlowRate(now, f.ID, f.AmountBytes)
	if f.onDone != nil {
		f.onDone()
	}
}
