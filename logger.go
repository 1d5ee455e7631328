package netsim

// logger.go is the Logger component: an append-only stream of structured
// records (packet_sent, packet_arrived, packet_dropped, buffer_occupancy,
// window_size, rtt_sample, flow_rate) plus a human-facing leveled trace.
//
// Grounded in trace.go's TraceManager: an InUse-style gate so a quiet run
// pays no bookkeeping cost, per-kind constructors, and a WriteToFile that
// serializes to JSON or YAML chosen by file extension. The human-facing
// half, which trace.go hands to a bare fmt.Println, instead routes
// through github.com/apex/log -- the structured logging dependency a
// sibling VPN project (ooni-minivpn) depends on directly -- so warnings
// and progress carry fields instead of formatted strings.

import (
	"encoding/json"
	"os"
	"path"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// RecordKind names the shape of a logged tuple.
type RecordKind string

const (
	PacketSentRecord      RecordKind = "packet_sent"
	PacketArrivedRecord   RecordKind = "packet_arrived"
	PacketDroppedRecord   RecordKind = "packet_dropped"
	BufferOccupancyRecord RecordKind = "buffer_occupancy"
	WindowSizeRecord      RecordKind = "window_size"
	RTTSampleRecord       RecordKind = "rtt_sample"
	FlowRateRecord        RecordKind = "flow_rate"
)

// DropReason enumerates why a packet was dropped, named in
// packet_dropped records.
type DropReason string

const (
	BufferFull       DropReason = "buffer_full"
	NoRoute          DropReason = "no_route"
	UnexpectedPacket DropReason = "unexpected_packet"
)

// Record is the uniform envelope for every logged tuple. Only the fields
// relevant to Kind are populated; the rest are zero. Keeping a single flat
// struct (rather than one type per record kind) makes WriteToFile's
// marshaling trivial and keeps the in-memory log a single ordered slice,
// which is what a determinism check across two runs needs to compare.
type Record struct {
	Kind      RecordKind `json:"kind" yaml:"kind"`
	Time      float64    `json:"time" yaml:"time"`
	PacketID  int        `json:"packet_id,omitempty" yaml:"packet_id,omitempty"`
	LinkID    int        `json:"link_id,omitempty" yaml:"link_id,omitempty"`
	DeviceID  int        `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	FlowID    int        `json:"flow_id,omitempty" yaml:"flow_id,omitempty"`
	Direction string     `json:"direction,omitempty" yaml:"direction,omitempty"`
	Reason    DropReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	UsedBytes int        `json:"used_bytes,omitempty" yaml:"used_bytes,omitempty"`
	Window    float64    `json:"window,omitempty" yaml:"window,omitempty"`
	RTT       float64    `json:"rtt,omitempty" yaml:"rtt,omitempty"`
	Bytes     int        `json:"bytes,omitempty" yaml:"bytes,omitempty"`
}

// Logger accumulates Records for post-run analysis and, when Verbose, also
// emits a human-facing structured trace through apex/log as records are
// added.
type Logger struct {
	InUse   bool `json:"inuse" yaml:"inuse"`
	Verbose bool `json:"-" yaml:"-"`

	Records []Record `json:"records" yaml:"records"`

	entry log.Interface
}

// NewLogger constructs a Logger. active gates whether records are kept at
// all (a non-active Logger discards everything, mirroring TraceManager's
// InUse flag); verbose additionally mirrors each record to apex/log at
// Info/Warn level for human consumption.
func NewLogger(active, verbose bool) *Logger {
	return &Logger{
		InUse:   active,
		Verbose: verbose,
		Records: make([]Record, 0),
		entry:   log.Log,
	}
}

// Active reports whether the Logger is capturing records.
func (lg *Logger) Active() bool {
	return lg.InUse
}

func (lg *Logger) add(r Record) {
	if !lg.InUse {
		return
	}
	lg.Records = append(lg.Records, r)
	if !lg.Verbose {
		return
	}
	fields := log.Fields{
		"time": r.Time,
	}
	if r.PacketID != 0 {
		fields["packet_id"] = r.PacketID
	}
	if r.LinkID != 0 {
		fields["link_id"] = r.LinkID
	}
	if r.FlowID != 0 {
		fields["flow_id"] = r.FlowID
	}
	entry := lg.entry.WithFields(fields)
	switch r.Kind {
	case PacketDroppedRecord:
		entry.WithField("reason", string(r.Reason)).Warn(string(r.Kind))
	default:
		entry.Info(string(r.Kind))
	}
}

// PacketSent logs a packet_sent record.
func (lg *Logger) PacketSent(t float64, packetID, linkID int, direction string) {
	lg.add(Record{Kind: PacketSentRecord, Time: t, PacketID: packetID, LinkID: linkID, Direction: direction})
}

// PacketArrived logs a packet_arrived record.
func (lg *Logger) PacketArrived(t float64, packetID, deviceID int) {
	lg.add(Record{Kind: PacketArrivedRecord, Time: t, PacketID: packetID, DeviceID: deviceID})
}

// PacketDropped logs a packet_dropped record.
func (lg *Logger) PacketDropped(t float64, packetID, linkID int, reason DropReason) {
	lg.add(Record{Kind: PacketDroppedRecord, Time: t, PacketID: packetID, LinkID: linkID, Reason: reason})
}

// BufferOccupancy logs a buffer_occupancy record.
func (lg *Logger) BufferOccupancy(t float64, linkID, usedBytes int) {
	lg.add(Record{Kind: BufferOccupancyRecord, Time: t, LinkID: linkID, UsedBytes: usedBytes})
}

// WindowSize logs a window_size record.
func (lg *Logger) WindowSize(t float64, flowID int, window float64) {
	lg.add(Record{Kind: WindowSizeRecord, Time: t, FlowID: flowID, Window: window})
}

// RTTSample logs an rtt_sample record.
func (lg *Logger) RTTSample(t float64, flowID int, rtt float64) {
	lg.add(Record{Kind: RTTSampleRecord, Time: t, FlowID: flowID, RTT: rtt})
}

// FlowRate logs a flow_rate record.
func (lg *Logger) FlowRate(t float64, flowID, bytesInInterval int) {
	lg.add(Record{Kind: FlowRateRecord, Time: t, FlowID: flowID, Bytes: bytesInInterval})
}

// WriteToFile serializes the accumulated records to filename, choosing
// JSON or YAML encoding from the file extension exactly as
// TraceManager.WriteToFile does.
func (lg *Logger) WriteToFile(filename string) error {
	if !lg.InUse {
		return nil
	}
	ext := path.Ext(filename)
	var bytes []byte
	var err error

	switch ext {
	case ".yaml", ".yml", ".YAML":
		bytes, err = yaml.Marshal(lg)
	case ".json", ".JSON":
		bytes, err = json.MarshalIndent(lg, "", "\t")
	default:
		bytes, err = json.MarshalIndent(lg, "", "\t")
	}
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(bytes)
	return err
}
