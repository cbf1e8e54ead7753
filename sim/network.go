package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"slices"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/encodeous/gradient/core"
	"github.com/encodeous/gradient/state"
	"github.com/google/uuid"
)

var errNodeFailed = errors.New("node failed")

type Options struct {
	Level   slog.Level
	Console io.Writer // defaults to io.Discard
}

type NodeSummary struct {
	Id       state.NodeId
	Phase    state.Phase
	Rank     state.Rank
	Distance state.Distance
	Parent   state.NodeId
	// Hops is the shortest hop count to the sink over the nodes still alive, or -1 if there is no path
	Hops      int
	Delivered int // packets from this node that reached the sink
	// Sent counts payloads the node's traffic source handed to a parent, SendErrors those dropped for lack of a route
	Sent       int
	SendErrors int
	Failed     bool
}

type Summary struct {
	RunId       uuid.UUID
	At          time.Duration
	Nodes       []NodeSummary
	Delivered   int
	Dropped     int
	LinkChanges int
	Radio       RadioStats
}

func (s Summary) Get(id state.NodeId) (NodeSummary, bool) {
	idx := slices.IndexFunc(s.Nodes, func(n NodeSummary) bool {
		return n.Id == id
	})
	if idx == -1 {
		return NodeSummary{}, false
	}
	return s.Nodes[idx], true
}

// Converged reports whether every live node's rank equals its hop distance to the sink,
// and every node without a path to the sink is unreachable.
func (s Summary) Converged() bool {
	for _, n := range s.Nodes {
		if n.Failed {
			continue
		}
		if n.Hops < 0 {
			if n.Phase != state.PhaseUnreachable {
				return false
			}
			continue
		}
		if n.Rank == state.INF || int64(n.Rank) != int64(n.Hops) {
			return false
		}
	}
	return true
}

func (s Summary) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, err := fmt.Fprintf(tw, "run %s at %s\n", s.RunId, s.At)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(tw, "NODE\tSTATE\tRANK\tDIST\tPARENT\tHOPS\tSENT\tNO_ROUTE\tDELIVERED")
	if err != nil {
		return err
	}
	for _, n := range s.Nodes {
		phase := n.Phase.String()
		if n.Failed {
			phase = "FAILED"
		}
		hops := "-"
		if n.Hops >= 0 {
			hops = fmt.Sprint(n.Hops)
		}
		_, err = fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%s\t%d\t%d\t%d\n", n.Id, phase, n.Rank, float64(n.Distance), n.Parent, hops, n.Sent, n.SendErrors, n.Delivered)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(tw, "delivered %d, dropped %d, parent changes %d, radio sent %d lost %d, converged %t\n",
		s.Delivered, s.Dropped, s.LinkChanges, s.Radio.Sent, s.Radio.Lost, s.Converged())
	if err != nil {
		return err
	}
	return tw.Flush()
}

// Network is a whole sensor field: the nodes, the medium between them and the sink application.
// Unless it was created by RunRealtime, everything runs on Loop in virtual time.
type Network struct {
	Cfg      state.ScenarioCfg
	RunId    uuid.UUID
	Loop     *EventLoop
	Topology *Topology
	Radio    *Radio
	Trace    *LinkTrace
	Sink     *SinkCollector
	Log      *slog.Logger

	opts     Options
	handlers []slog.Handler
	closers  []io.Closer
	nodes    map[state.NodeId]*state.State
	halt     func(s *state.State)
	started  bool

	mu     sync.Mutex
	failed map[state.NodeId]struct{}
}

func newNetwork(cfg state.ScenarioCfg, opts Options, clock func() time.Duration) (*Network, error) {
	state.ExpandScenarioConfig(&cfg)
	err := state.ScenarioConfigValidator(&cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if opts.Console == nil {
		opts.Console = io.Discard
	}
	n := &Network{
		Cfg:    cfg,
		RunId:  uuid.New(),
		opts:   opts,
		nodes:  make(map[state.NodeId]*state.State),
		failed: make(map[state.NodeId]struct{}),
	}
	if cfg.LogPath != "" {
		h, c, err := core.OpenLogFile(cfg.LogPath, opts.Level)
		if err != nil {
			return nil, err
		}
		n.handlers = append(n.handlers, h)
		n.closers = append(n.closers, c)
	}
	n.Log = core.NewLogger("sim", opts.Level, opts.Console, n.handlers...).With("run", n.RunId.String())
	n.Topology = NewTopology(cfg.Nodes, cfg.Radio.Range)
	n.Radio = NewRadio(n.Topology, cfg.Radio, cfg.Seed)
	n.Trace = NewLinkTrace(clock)
	n.Sink = NewSinkCollector()
	return n, nil
}

// NewNetwork builds every node of the scenario on a fresh virtual time event loop
func NewNetwork(cfg state.ScenarioCfg, opts Options) (*Network, error) {
	loop := NewEventLoop()
	n, err := newNetwork(cfg, opts, loop.Now)
	if err != nil {
		return nil, err
	}
	n.Loop = loop
	n.halt = core.Stop
	for _, nc := range n.Cfg.Nodes {
		sched := loop.Node(nc.Id)
		ctx, cancel := context.WithCancelCause(context.Background())
		s := n.addNode(nc, sched, ctx, cancel)
		sched.Bind(s)
	}
	return n, nil
}

func (n *Network) addNode(nc state.NodeCfg, sched state.Scheduler, ctx context.Context, cancel context.CancelCauseFunc) *state.State {
	s := &state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			Scheduler:   sched,
			NodeCfg:     nc,
			Protocol:    n.Cfg.Trickle.Protocol(),
			Medium:      n.Radio,
			Visualizer:  n.Trace,
			Application: n.Sink,
			Context:     ctx,
			Cancel:      cancel,
			Log:         core.NewLogger(nc.Id.String(), n.opts.Level, n.opts.Console, n.handlers...),
			Rand:        rand.New(rand.NewPCG(n.Cfg.Seed, uint64(nc.Id))),
		},
	}
	n.Radio.Attach(nc.Id, sched)
	n.nodes[nc.Id] = s
	return s
}

func (n *Network) modulesFor(id state.NodeId) []state.NyModule {
	tc := n.Cfg.Traffic
	if tc.Disabled || id == state.SinkId {
		return nil
	}
	if len(tc.Sources) > 0 && !slices.Contains(tc.Sources, id) {
		return nil
	}
	if tc.Payload == "" {
		tc.Payload = state.DefaultPayload
	}
	return []state.NyModule{&TrafficSource{Cfg: tc}}
}

// Start initializes every node and schedules the scenario's failures
func (n *Network) Start() error {
	if n.started {
		return errors.New("network already started")
	}
	n.started = true
	n.Log.Info("starting network", "nodes", len(n.nodes), "seed", n.Cfg.Seed)
	for _, id := range n.Topology.Ids() {
		err := core.InitModules(n.nodes[id], n.modulesFor(id)...)
		if err != nil {
			return fmt.Errorf("failed to start node %s: %w", id, err)
		}
	}
	for _, f := range n.Cfg.Failures {
		n.Loop.AfterFunc(f.At.D(), func() {
			n.Silence(f.Node)
		})
	}
	return nil
}

// Run starts the network if needed and advances it until the scenario's duration has elapsed
func (n *Network) Run() (Summary, error) {
	if !n.started {
		err := n.Start()
		if err != nil {
			return Summary{}, err
		}
	}
	n.Loop.RunUntil(n.Cfg.Duration.D())
	return n.Summary(), nil
}

// Silence fails a node. It stops transmitting and receiving, and its neighbours eventually evict it.
func (n *Network) Silence(id state.NodeId) {
	s, ok := n.nodes[id]
	if !ok {
		return
	}
	n.mu.Lock()
	if _, dup := n.failed[id]; dup {
		n.mu.Unlock()
		return
	}
	n.failed[id] = struct{}{}
	n.mu.Unlock()

	n.Radio.Silence(id)
	n.Trace.Forget(id)
	n.Log.Info("node failed", "node", id, "t", n.Trace.clock())
	n.halt(s)
}

func (n *Network) IsFailed(id state.NodeId) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.failed[id]
	return ok
}

func (n *Network) failedIds() []state.NodeId {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]state.NodeId, 0, len(n.failed))
	for id := range n.failed {
		ids = append(ids, id)
	}
	return ids
}

// Routing returns the current routing state of a node
func (n *Network) Routing(id state.NodeId) (NodeSummary, bool) {
	s, ok := n.nodes[id]
	if !ok || s.RouterState == nil {
		return NodeSummary{}, false
	}
	res := snapshot(s)
	res.Failed = n.IsFailed(id)
	return res, true
}

// Originate sends payload from node id towards the sink right away
func (n *Network) Originate(id state.NodeId, payload []byte) (state.DataPdu, error) {
	s, ok := n.nodes[id]
	if !ok {
		return state.DataPdu{}, fmt.Errorf("node %s not found", id)
	}
	if n.IsFailed(id) || !s.Alive() {
		return state.DataPdu{}, state.ErrNodeStopped
	}
	return core.Get[*core.GradientRouter](s).Originate(payload)
}

func (n *Network) Summary() Summary {
	snaps := make(map[state.NodeId]NodeSummary)
	for id, s := range n.nodes {
		if s.RouterState == nil {
			continue
		}
		snaps[id] = snapshot(s)
	}
	return n.summarize(n.Loop.Now(), snaps)
}

// Close stops every node and releases the trace and log files
func (n *Network) Close() error {
	if n.Loop != nil {
		for _, id := range n.Topology.Ids() {
			core.Stop(n.nodes[id])
		}
	}
	errs := []error{n.Trace.Close()}
	for _, c := range n.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func snapshot(s *state.State) NodeSummary {
	rs := s.RouterState
	ns := NodeSummary{
		Id:       rs.Id,
		Phase:    rs.Phase(),
		Rank:     rs.Rank,
		Distance: rs.Distance,
		Parent:   rs.Parent,
	}
	if ts, ok := s.Modules[reflect.TypeFor[*TrafficSource]().String()].(*TrafficSource); ok {
		ns.Sent = ts.Sent
		ns.SendErrors = ts.Failed
	}
	return ns
}

func (n *Network) summarize(at time.Duration, snaps map[state.NodeId]NodeSummary) Summary {
	hops := n.Topology.HopDistances(state.SinkId, n.failedIds()...)
	delivered := n.Sink.PerOrigin()
	res := Summary{
		RunId:       n.RunId,
		At:          at,
		Delivered:   n.Sink.TotalDelivered(),
		Dropped:     len(n.Sink.Drops()),
		LinkChanges: n.Trace.Changes(),
		Radio:       n.Radio.Stats(),
	}
	for _, id := range n.Topology.Ids() {
		ns, ok := snaps[id]
		if !ok {
			ns = NodeSummary{
				Id:       id,
				Phase:    state.PhaseUnreachable,
				Rank:     state.INF,
				Distance: state.InfDistance,
				Parent:   state.NoNode,
			}
		}
		ns.Failed = ns.Failed || n.IsFailed(id)
		ns.Hops = -1
		if h, ok := hops[id]; ok {
			ns.Hops = h
		}
		ns.Delivered = delivered[id]
		res.Nodes = append(res.Nodes, ns)
	}
	return res
}

// RunRealtime runs the scenario on the wall clock for its whole duration, one goroutine per node.
func RunRealtime(ctx context.Context, cfg state.ScenarioCfg, opts Options) (Summary, error) {
	epoch := time.Now()
	n, err := newNetwork(cfg, opts, func() time.Duration {
		return time.Since(epoch)
	})
	if err != nil {
		return Summary{}, err
	}
	n.halt = func(s *state.State) {
		// the node's main loop cleans up once it notices
		s.Cancel(errNodeFailed)
	}

	runCtx, cancelAll := context.WithCancelCause(ctx)
	schedulers := make(map[state.NodeId]*state.WallScheduler)
	dispatches := make(map[state.NodeId]chan func(*state.State) error)
	for _, nc := range n.Cfg.Nodes {
		dispatch := make(chan func(*state.State) error, state.DispatchBufferSize)
		nctx, ncancel := context.WithCancelCause(runCtx)
		ws := &state.WallScheduler{
			DispatchChannel: dispatch,
			Context:         nctx,
			Cancel:          ncancel,
			Epoch:           epoch,
		}
		n.addNode(nc, ws, nctx, ncancel)
		schedulers[nc.Id] = ws
		dispatches[nc.Id] = dispatch
	}

	n.started = true
	n.Log.Info("starting network in real time", "nodes", len(n.nodes), "seed", n.Cfg.Seed)
	wg := sync.WaitGroup{}
	for _, id := range n.Topology.Ids() {
		s := n.nodes[id]
		dispatch := dispatches[id]
		modules := n.modulesFor(id)
		wg.Go(func() {
			err := core.InitModules(s, modules...)
			if err != nil {
				s.Log.Error("failed to start node", "error", err)
				s.Cancel(err)
				core.Stop(s)
				return
			}
			_ = core.MainLoop(s, dispatch)
		})
	}

	timers := make([]*time.Timer, 0, len(n.Cfg.Failures))
	for _, f := range n.Cfg.Failures {
		timers = append(timers, time.AfterFunc(f.At.D(), func() {
			n.Silence(f.Node)
		}))
	}

	deadline := time.NewTimer(n.Cfg.Duration.D())
	select {
	case <-deadline.C:
	case <-ctx.Done():
	}
	deadline.Stop()
	for _, t := range timers {
		t.Stop()
	}

	snaps := make(map[state.NodeId]NodeSummary)
	for id, ws := range schedulers {
		if n.IsFailed(id) {
			continue
		}
		res, err := ws.DispatchWait(func(s *state.State) (any, error) {
			return snapshot(s), nil
		})
		if err != nil {
			snaps[id] = NodeSummary{
				Id:       id,
				Phase:    state.PhaseUnreachable,
				Rank:     state.INF,
				Distance: state.InfDistance,
				Parent:   state.NoNode,
				Failed:   true,
			}
			continue
		}
		snaps[id] = res.(NodeSummary)
	}
	summary := n.summarize(time.Since(epoch), snaps)

	cancelAll(errors.New("simulation finished"))
	wg.Wait()
	err = n.Close()
	if err != nil {
		return summary, err
	}
	if ctx.Err() != nil {
		return summary, context.Cause(ctx)
	}
	return summary, nil
}
