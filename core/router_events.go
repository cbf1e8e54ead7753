package core

import "fmt"

type RouterEvent int

// trace events

const (
	ParentSelected RouterEvent = iota
	ParentLost
	RankChanged
	StaleNeighbourDropped
	GradientSent
	DataForwarded
	DataDelivered
)

// warn events

const (
	InconsistentState RouterEvent = iota + 1000
	NoRouteAvailable
	MalformedPdu
)

func (e RouterEvent) String() string {
	switch e {
	case ParentSelected:
		return "ParentSelected"
	case ParentLost:
		return "ParentLost"
	case RankChanged:
		return "RankChanged"
	case StaleNeighbourDropped:
		return "StaleNeighbourDropped"
	case GradientSent:
		return "GradientSent"
	case DataForwarded:
		return "DataForwarded"
	case DataDelivered:
		return "DataDelivered"
	case InconsistentState:
		return "InconsistentState"
	case NoRouteAvailable:
		return "NoRouteAvailable"
	case MalformedPdu:
		return "MalformedPdu"
	default:
		return fmt.Sprintf("RouterEvent(%d)", int(e))
	}
}

func (e RouterEvent) IsWarning() bool {
	return e >= InconsistentState
}
