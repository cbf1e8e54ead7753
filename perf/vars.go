package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency = metric.NewHistogram("1m1s")
	GradientsSent   = metric.NewCounter("10s1s")
	DataForwarded   = metric.NewCounter("10s1s")
	DataDelivered   = metric.NewCounter("10s1s")
	DataDropped     = metric.NewCounter("10s1s")
	TrickleResets   = metric.NewCounter("10s1s")
	StaleEvictions  = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("gradient:GradientsSent/s", GradientsSent)
	expvar.Publish("gradient:DataForwarded/s", DataForwarded)
	expvar.Publish("gradient:DataDelivered/s", DataDelivered)
	expvar.Publish("gradient:DataDropped/s", DataDropped)
	expvar.Publish("gradient:TrickleResets/s", TrickleResets)
	expvar.Publish("gradient:StaleEvictions/s", StaleEvictions)
	expvar.Publish("gradient:DispatchLatency (µs)", DispatchLatency)
}
