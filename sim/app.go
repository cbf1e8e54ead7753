package sim

import (
	"maps"
	"sync"
	"time"

	"github.com/encodeous/gradient/core"
	"github.com/encodeous/gradient/state"
	"github.com/jellydator/ttlcache/v3"
)

type Delivery struct {
	At      time.Duration
	Origin  state.NodeId
	Via     state.NodeId // the last hop
	Seq     uint32
	Hops    int
	Payload []byte
}

type DropRecord struct {
	At     time.Duration
	Node   state.NodeId
	Origin state.NodeId
	Seq    uint32
	Err    error
}

// SinkCollector is the application shared by every node. The sink reports deliveries to it,
// every other node reports the packets it had to drop.
type SinkCollector struct {
	mu        sync.Mutex
	perOrigin map[state.NodeId]int
	drops     []DropRecord
	// Recent holds the latest delivery of each origin, bounded by state.RecentDeliveryLimit
	Recent *ttlcache.Cache[state.NodeId, Delivery]
}

func NewSinkCollector() *SinkCollector {
	return &SinkCollector{
		perOrigin: make(map[state.NodeId]int),
		Recent: ttlcache.New[state.NodeId, Delivery](
			ttlcache.WithCapacity[state.NodeId, Delivery](state.RecentDeliveryLimit),
			ttlcache.WithDisableTouchOnHit[state.NodeId, Delivery](),
		),
	}
}

func (c *SinkCollector) OnDeliver(s *state.State, pdu state.DataPdu) {
	c.mu.Lock()
	c.perOrigin[pdu.Origin]++
	c.mu.Unlock()
	c.Recent.Set(pdu.Origin, Delivery{
		At:      s.Now(),
		Origin:  pdu.Origin,
		Via:     pdu.Sender,
		Seq:     pdu.Seq,
		Hops:    pdu.Hops,
		Payload: pdu.Payload,
	}, ttlcache.DefaultTTL)
	s.Log.Info("received data", "t", s.Now(), "origin", pdu.Origin, "seq", pdu.Seq, "hops", pdu.Hops, "payload", string(pdu.Payload))
}

func (c *SinkCollector) OnDrop(s *state.State, pdu state.DataPdu, err error) {
	c.mu.Lock()
	c.drops = append(c.drops, DropRecord{
		At:     s.Now(),
		Node:   s.Id,
		Origin: pdu.Origin,
		Seq:    pdu.Seq,
		Err:    err,
	})
	c.mu.Unlock()
	s.Log.Debug("dropped data", "t", s.Now(), "origin", pdu.Origin, "seq", pdu.Seq, "err", err)
}

// Delivered returns how many packets from origin reached the sink
func (c *SinkCollector) Delivered(origin state.NodeId) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perOrigin[origin]
}

func (c *SinkCollector) PerOrigin() map[state.NodeId]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.perOrigin)
}

func (c *SinkCollector) TotalDelivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.perOrigin {
		total += n
	}
	return total
}

func (c *SinkCollector) Drops() []DropRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DropRecord(nil), c.drops...)
}

// Latest returns the most recent delivery from origin
func (c *SinkCollector) Latest(origin state.NodeId) (Delivery, bool) {
	item := c.Recent.Get(origin)
	if item == nil {
		return Delivery{}, false
	}
	return item.Value(), true
}

// TrafficSource periodically originates a payload towards the sink
type TrafficSource struct {
	*state.State
	Cfg    state.TrafficCfg
	Sent   int
	Failed int
	cancel state.CancelFunc
}

func (t *TrafficSource) Init(s *state.State) error {
	t.State = s
	t.schedule()
	return nil
}

func (t *TrafficSource) Cleanup(s *state.State) error {
	if t.cancel != nil {
		t.cancel()
	}
	t.State = nil
	return nil
}

func (t *TrafficSource) schedule() {
	lo, hi := t.Cfg.Min.D(), t.Cfg.Max.D()
	delay := lo
	if hi > lo {
		delay += time.Duration(t.Rand.Int64N(int64(hi - lo)))
	}
	t.cancel = t.ScheduleTask(t.tick, delay)
}

func (t *TrafficSource) tick(s *state.State) error {
	r := core.Get[*core.GradientRouter](s)
	pdu, err := r.Originate([]byte(t.Cfg.Payload))
	if err != nil {
		t.Failed++
		s.Log.Debug("failed to send data", "t", s.Now(), "seq", pdu.Seq, "err", err)
	} else {
		t.Sent++
		s.Log.Debug("sent data", "t", s.Now(), "seq", pdu.Seq, "parent", s.RouterState.Parent)
	}
	t.schedule()
	return nil
}
