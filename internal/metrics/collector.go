package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Collector accumulates request and fetch counters for the service.
// It is safe for concurrent use.
type Collector struct {
	mutex sync.RWMutex

	requestCounter  map[string]int64
	requestDuration map[string][]float64
	fetchOutcomes   map[string]int64
	startTime       time.Time
}

// Snapshot is a point-in-time copy of the collected counters
type Snapshot struct {
	Requests      map[string]int64   `json:"requests"`
	AvgLatency    map[string]float64 `json:"avg_latency_seconds"`
	FetchOutcomes map[string]int64   `json:"fetch_outcomes"`
	UptimeSeconds int64              `json:"uptime_seconds"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		requestCounter:  make(map[string]int64),
		requestDuration: make(map[string][]float64),
		fetchOutcomes:   make(map[string]int64),
		startTime:       time.Now(),
	}
}

// RecordHTTPRequest increments the HTTP request counter
func (c *Collector) RecordHTTPRequest(method, path string, status int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.requestCounter[buildKey(method, path, strconv.Itoa(status))]++
}

// RecordHTTPDuration records an HTTP request duration in seconds
func (c *Collector) RecordHTTPDuration(method, path string, duration float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := buildKey(method, path)
	c.requestDuration[key] = append(c.requestDuration[key], duration)
}

// RecordFetchOutcome counts one settled fetch cycle by outcome
// ("committed", "empty", "failed", "superseded", "rates_failed", ...)
func (c *Collector) RecordFetchOutcome(outcome string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.fetchOutcomes[outcome]++
}

// GetSnapshot returns a copy of all counters
func (c *Collector) GetSnapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snap := Snapshot{
		Requests:      make(map[string]int64, len(c.requestCounter)),
		AvgLatency:    make(map[string]float64, len(c.requestDuration)),
		FetchOutcomes: make(map[string]int64, len(c.fetchOutcomes)),
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
	}
	for k, v := range c.requestCounter {
		snap.Requests[k] = v
	}
	for k, durations := range c.requestDuration {
		if len(durations) == 0 {
			continue
		}
		var total float64
		for _, d := range durations {
			total += d
		}
		snap.AvgLatency[k] = total / float64(len(durations))
	}
	for k, v := range c.fetchOutcomes {
		snap.FetchOutcomes[k] = v
	}

	return snap
}

// Reset clears all counters
func (c *Collector) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.requestCounter = make(map[string]int64)
	c.requestDuration = make(map[string][]float64)
	c.fetchOutcomes = make(map[string]int64)
}

func buildKey(parts ...string) string {
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}
