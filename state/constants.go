package state

import "time"

var (
	TrickleMinPeriod    = time.Millisecond * 100
	TrickleMaxPeriod    = time.Second * 2
	StartupJitter       = time.Millisecond * 100 // first gradient is delayed by up to this to avoid a broadcast storm
	StaleFactor         = 2                      // neighbours silent for StaleFactor * TrickleMaxPeriod are evicted
	RankCeiling         = Rank(64)               // adverts that would put us above this rank are unusable
	TrafficMinPeriod    = time.Second * 1
	TrafficMaxPeriod    = time.Second * 5
	DefaultTxRange      = 200.0
	DefaultLatency      = time.Millisecond * 1
	DefaultDuration     = time.Second * 20
	DefaultPayload      = "HELLO"
	RecentDeliveryLimit = uint64(256)
	TraceBufferSize     = 1024
	DispatchBufferSize  = 128
)
