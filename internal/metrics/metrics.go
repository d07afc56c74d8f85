// Package metrics holds the prometheus collectors of the watch-party server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "watchparty"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_active_connections",
			Help:      "Number of live websocket connections",
		},
	)

	activeRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of rooms held in memory",
		},
	)

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound websocket events by type",
		},
		[]string{"type"},
	)

	eventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Inbound websocket events dropped before handling",
		},
		[]string{"reason"},
	)

	framesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped because a send buffer was full",
		},
	)

	roomFullTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_full_rejections_total",
			Help:      "Joins rejected because the room was at capacity",
		},
	)

	roomsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_deleted_total",
			Help:      "Empty rooms removed by the sweeper",
		},
	)

	mirrorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_mirror_errors_total",
			Help:      "Failed or dropped presence mirror operations",
		},
		[]string{"reason"},
	)
)

// RecordHTTPMetrics records one completed HTTP request.
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

// ConnectionOpened counts a new live websocket connection.
func ConnectionOpened() { wsActiveConnections.Inc() }

// ConnectionClosed counts a websocket connection going away.
func ConnectionClosed() { wsActiveConnections.Dec() }

// SetRooms sets the number of rooms held in memory.
func SetRooms(count int) { activeRooms.Set(float64(count)) }

// EventReceived counts an inbound event by type.
func EventReceived(eventType string) { eventsTotal.WithLabelValues(eventType).Inc() }

// EventDropped counts an inbound event dropped for reason.
func EventDropped(reason string) { eventsDroppedTotal.WithLabelValues(reason).Inc() }

// FrameDropped counts an outbound frame lost to a full send buffer.
func FrameDropped() { framesDroppedTotal.Inc() }

// RoomFull counts a join rejected at capacity.
func RoomFull() { roomFullTotal.Inc() }

// RoomDeleted counts a room removed by the sweeper.
func RoomDeleted() { roomsDeletedTotal.Inc() }

// MirrorError counts a failed or dropped presence mirror write.
func MirrorError(reason string) { mirrorErrorsTotal.WithLabelValues(reason).Inc() }
