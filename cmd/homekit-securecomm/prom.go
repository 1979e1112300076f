package main

import (
	"context"
	"net/http"
	"net/url"

	"github.com/caarlos0/securecomm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var armStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace:   "homekit_securecomm",
	Subsystem:   "alarm",
	Name:        "state",
	Help:        "",
	ConstLabels: map[string]string{},
})

var activeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_securecomm",
	Subsystem:   "alarm",
	Name:        "active",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"name"})

var inhibitedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_securecomm",
	Subsystem:   "alarm",
	Name:        "inhibited",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"name"})

var requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace:   "homekit_securecomm",
	Subsystem:   "client",
	Name:        "requests_total",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"path"})

var requestErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace:   "homekit_securecomm",
	Subsystem:   "client",
	Name:        "request_errors_total",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"path"})

// countingTransport counts every attempt made by the session, retries
// included.
type countingTransport struct {
	next securecomm.Transport
}

func (t countingTransport) Post(ctx context.Context, u string, header http.Header, body []byte) ([]byte, error) {
	path := u
	if parsed, err := url.Parse(u); err == nil {
		path = parsed.Path
	}
	requestCounter.WithLabelValues(path).Inc()
	resp, err := t.next.Post(ctx, u, header, body)
	if err != nil {
		requestErrorCounter.WithLabelValues(path).Inc()
	}
	return resp, err
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
