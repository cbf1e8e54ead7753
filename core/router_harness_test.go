package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/gradient/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) BroadcastGradient(adv state.GradientPdu) {
	h.actions = append(h.actions, MakeEvent("BROADCAST_GRADIENT", adv))
}

func (h *RouterHarness) SendData(nh state.NodeId, pdu state.DataPdu) {
	h.actions = append(h.actions, MakeEvent("SEND_DATA", nh, pdu))
}

func (h *RouterHarness) Deliver(pdu state.DataPdu) {
	h.actions = append(h.actions, MakeEvent("DELIVER", pdu))
}

func (h *RouterHarness) Drop(pdu state.DataPdu, err error) {
	h.actions = append(h.actions, MakeEvent("DROP", pdu, err))
}

func (h *RouterHarness) ResetTrickle() {
	h.actions = append(h.actions, MakeEvent("RESET_TRICKLE"))
}

func (h *RouterHarness) LinkChanged(oldParent, newParent state.NodeId) {
	h.actions = append(h.actions, MakeEvent("LINK_CHANGED", oldParent, newParent))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns and clears everything recorded except logs
func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}

	h.actions = make([]HarnessEvent, 0)
	return x
}

// GetLogs returns the router events recorded since the last GetActions
func (h *RouterHarness) GetLogs() []RouterEvent {
	x := make([]RouterEvent, 0)
	for _, action := range h.actions {
		if action.Message == "LOG" {
			x = append(x, action.Args[0].(RouterEvent))
		}
	}
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg, cmpopts.EquateErrors(), cmpopts.EquateEmpty()) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func (h *RouterHarness) Gradient(rs *state.RouterState, from state.NodeId, rank state.Rank, dist state.Distance, now time.Duration) {
	HandleGradient(rs, h, state.GradientPdu{Sender: from, Rank: rank, Distance: dist}, now, state.DefaultProtocol())
}

func (h *RouterHarness) Timer(rs *state.RouterState, now time.Duration) {
	HandleTimer(rs, h, now, state.DefaultProtocol())
}

func MakeTable(entries ...state.Neighbour) []state.Neighbour {
	slices.SortFunc(entries, func(a, b state.Neighbour) int {
		return int(a.Id) - int(b.Id)
	})
	return entries
}

func N(id state.NodeId, rank state.Rank, dist state.Distance) state.Neighbour {
	return state.Neighbour{Id: id, Rank: rank, Distance: dist}
}
