package state

import "fmt"

type PduKind int

const (
	KindGradient PduKind = iota + 1
	KindData
)

func (k PduKind) String() string {
	switch k {
	case KindGradient:
		return "gradient"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Pdu is the unit of exchange between nodes. Implementations are immutable values.
type Pdu interface {
	Kind() PduKind
	From() NodeId
}

// GradientPdu advertises the sender's routing state to every neighbour in range.
type GradientPdu struct {
	Sender   NodeId
	Rank     Rank
	Distance Distance
}

func (g GradientPdu) Kind() PduKind { return KindGradient }
func (g GradientPdu) From() NodeId  { return g.Sender }

func (g GradientPdu) String() string {
	return fmt.Sprintf("(gradient from: %s, rank: %s, dist: %g)", g.Sender, g.Rank, float64(g.Distance))
}

// DataPdu carries an application payload towards the sink, one hop at a time.
type DataPdu struct {
	Sender  NodeId // the last hop
	Origin  NodeId // the node that originated the payload
	Seq     uint32
	Hops    int // number of relays so far
	Payload []byte
}

func (d DataPdu) Kind() PduKind { return KindData }
func (d DataPdu) From() NodeId  { return d.Sender }

// Relay rewraps the packet for the next hop, preserving its origin.
func (d DataPdu) Relay(via NodeId) DataPdu {
	return DataPdu{
		Sender:  via,
		Origin:  d.Origin,
		Seq:     d.Seq,
		Hops:    d.Hops + 1,
		Payload: d.Payload,
	}
}

func (d DataPdu) String() string {
	return fmt.Sprintf("(data from: %s, origin: %s, seq: %d, hops: %d, len: %d)", d.Sender, d.Origin, d.Seq, d.Hops, len(d.Payload))
}
