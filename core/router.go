package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/gradient/perf"
	"github.com/encodeous/gradient/state"
)

// GradientRouter binds the routing algorithm to a node's environment
type GradientRouter struct {
	*state.State
	Trickle *Trickle
	seq     uint32
}

func (r *GradientRouter) BroadcastGradient(adv state.GradientPdu) {
	perf.GradientsSent.Add(1)
	r.Medium.Broadcast(r.Id, adv)
}

func (r *GradientRouter) SendData(nh state.NodeId, pdu state.DataPdu) {
	perf.DataForwarded.Add(1)
	r.Medium.Unicast(r.Id, nh, pdu)
}

func (r *GradientRouter) Deliver(pdu state.DataPdu) {
	perf.DataDelivered.Add(1)
	if r.Application != nil {
		r.Application.OnDeliver(r.State, pdu)
	}
}

func (r *GradientRouter) Drop(pdu state.DataPdu, err error) {
	perf.DataDropped.Add(1)
	if r.Application != nil {
		r.Application.OnDrop(r.State, pdu, err)
	}
}

func (r *GradientRouter) ResetTrickle() {
	perf.TrickleResets.Add(1)
	r.Trickle.Reset(true)
}

func (r *GradientRouter) LinkChanged(oldParent, newParent state.NodeId) {
	if r.Visualizer != nil {
		r.Visualizer.OnLinkChanged(r.Id, oldParent, newParent)
	}
}

func (r *GradientRouter) Log(event RouterEvent, desc string, args ...any) {
	if event == StaleNeighbourDropped {
		perf.StaleEvictions.Add(1)
	}
	level := slog.LevelDebug
	if event.IsWarning() {
		level = slog.LevelWarn
	}
	r.Env.Log.Log(r.Context, level, fmt.Sprintf("%s %s", event.String(), desc), append([]any{"t", r.Now()}, args...)...)
}

// Originate sends payload towards the sink under the next sequence number
func (r *GradientRouter) Originate(payload []byte) (state.DataPdu, error) {
	r.seq++
	pdu := state.DataPdu{
		Sender:  r.Id,
		Origin:  r.Id,
		Seq:     r.seq,
		Payload: payload,
	}
	return pdu, Originate(r.RouterState, r, pdu)
}

func (r *GradientRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	s.RouterState = state.NewRouterState(s.Id)

	p := s.Protocol
	r.Trickle = NewTrickle(s.Scheduler, p.TrickleMin, p.TrickleMax, func(s *state.State) error {
		HandleTimer(s.RouterState, r, s.Now(), s.Protocol)
		return nil
	})

	s.Log.Debug("schedule router tasks")

	jitter := time.Duration(0)
	if p.StartupJitter > 0 {
		jitter = time.Duration(s.Rand.Int64N(int64(p.StartupJitter)))
	}
	r.Trickle.Start(jitter)

	s.Env.RepeatTask(func(s *state.State) error {
		ExpireNeighbours(s.RouterState, r, s.Now(), s.Protocol)
		return nil
	}, p.GcInterval)
	return nil
}

func (r *GradientRouter) Cleanup(s *state.State) error {
	if r.Trickle != nil {
		r.Trickle.Stop()
	}
	r.State = nil
	return nil
}

// HandlePdu is the receive path. It must run on the receiving node's task.
func HandlePdu(s *state.State, pdu state.Pdu, from state.NodeId) error {
	r := Get[*GradientRouter](s)
	if pdu == nil || pdu.From() != from {
		r.Log(MalformedPdu, "discarded pdu", "from", from, "err", state.ErrMalformedPdu)
		return nil
	}
	switch p := pdu.(type) {
	case state.GradientPdu:
		HandleGradient(s.RouterState, r, p, s.Now(), s.Protocol)
	case state.DataPdu:
		err := HandleData(s.RouterState, r, p, s.Protocol)
		if err != nil && !errors.Is(err, state.ErrNoRouteAvailable) && !errors.Is(err, state.ErrHopLimit) {
			return fmt.Errorf("failed to handle data from %s: %w", from, err)
		}
	default:
		r.Log(MalformedPdu, "discarded pdu", "kind", pdu.Kind(), "from", from, "err", state.ErrMalformedPdu)
	}
	return nil
}
