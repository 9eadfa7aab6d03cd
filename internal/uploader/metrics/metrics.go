// Package metrics exposes Prometheus collectors for the HTTP layer and the
// upload services.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fieldfiles"

// Upload modes used as label values.
const (
	ModeSubmit = "submit"
	ModeAuto   = "auto"
)

// Metrics holds the registered collectors.
type Metrics struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	filesStored    *prometheus.CounterVec
	bytesStored    *prometheus.CounterVec
	uploadFailures *prometheus.CounterVec
	uploadLatency  *prometheus.HistogramVec
}

// New registers the collectors on reg, reusing collectors that are already
// registered there.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		filesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_stored_total",
			Help:      "Files written to remote storage.",
		}, []string{"mode"}),
		bytesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stored_bytes_total",
			Help:      "Bytes written to remote storage.",
		}, []string{"mode"}),
		uploadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_failures_total",
			Help:      "Storage writes that failed or timed out.",
		}, []string{"mode"}),
		uploadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Latency of single storage writes.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"mode"}),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.requestLatency, err = register(reg, m.requestLatency); err != nil {
		return nil, err
	}
	if m.filesStored, err = register(reg, m.filesStored); err != nil {
		return nil, err
	}
	if m.bytesStored, err = register(reg, m.bytesStored); err != nil {
		return nil, err
	}
	if m.uploadFailures, err = register(reg, m.uploadFailures); err != nil {
		return nil, err
	}
	if m.uploadLatency, err = register(reg, m.uploadLatency); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestLatency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// FileStored records one successful storage write.
func (m *Metrics) FileStored(mode string, size int64, took time.Duration) {
	m.filesStored.WithLabelValues(mode).Inc()
	if size > 0 {
		m.bytesStored.WithLabelValues(mode).Add(float64(size))
	}
	m.uploadLatency.WithLabelValues(mode).Observe(took.Seconds())
}

// UploadFailed records one failed storage write.
func (m *Metrics) UploadFailed(mode string, took time.Duration) {
	m.uploadFailures.WithLabelValues(mode).Inc()
	m.uploadLatency.WithLabelValues(mode).Observe(took.Seconds())
}
