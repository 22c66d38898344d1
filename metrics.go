package ide

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 10us to 10s: a PIO command's realistic range, from a
// cache-hit READ SECTORS up through a multi-second worst case on a
// spun-down drive.
var LatencyBuckets = []uint64{
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 7

// Metrics tracks performance and operational statistics for an attached
// IDE driver instance.
type Metrics struct {
	// Command counters
	ReadOps   atomic.Uint64 // Total READ SECTORS operations
	WriteOps  atomic.Uint64 // Total WRITE SECTORS operations
	FlushOps  atomic.Uint64 // Total FLUSH CACHE operations
	PacketOps atomic.Uint64 // Total ATAPI PACKET operations

	// Byte counters
	ReadBytes  atomic.Uint64 // Total bytes read
	WriteBytes atomic.Uint64 // Total bytes written

	// Error counters
	ReadErrors   atomic.Uint64
	WriteErrors  atomic.Uint64
	FlushErrors  atomic.Uint64
	PacketErrors atomic.Uint64

	// Command queue statistics, fed by RecordCmdQueueDepth. The driver
	// itself never samples queue occupancy; these stay zero unless a
	// caller records depths.
	CmdQueueDepthTotal atomic.Uint64
	CmdQueueDepthCount atomic.Uint64
	MaxCmdQueueDepth   atomic.Uint32

	// Performance tracking
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts): bucket[i] holds the
	// count of operations with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Driver lifecycle
	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new, running metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records a READ SECTORS operation.
func (m *Metrics) RecordRead(bytes uint64, latencyNs uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWrite records a WRITE SECTORS operation.
func (m *Metrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordFlush records a FLUSH CACHE operation.
func (m *Metrics) RecordFlush(latencyNs uint64, success bool) {
	m.FlushOps.Add(1)
	if !success {
		m.FlushErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordPacket records an ATAPI PACKET operation.
func (m *Metrics) RecordPacket(latencyNs uint64, success bool) {
	m.PacketOps.Add(1)
	if !success {
		m.PacketErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordCmdQueueDepth records a sample of a controller's command-queue
// occupancy, for tracking how close to MaxCmdQueueEntries the driver runs.
func (m *Metrics) RecordCmdQueueDepth(depth uint32) {
	m.CmdQueueDepthTotal.Add(uint64(depth))
	m.CmdQueueDepthCount.Add(1)

	for {
		current := m.MaxCmdQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxCmdQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the driver as stopped, fixing the uptime computation Snapshot
// reports from here on.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, non-atomic copy of Metrics, safe to
// serialize or print.
type MetricsSnapshot struct {
	ReadOps   uint64
	WriteOps  uint64
	FlushOps  uint64
	PacketOps uint64

	ReadBytes  uint64
	WriteBytes uint64

	ReadErrors   uint64
	WriteErrors  uint64
	FlushErrors  uint64
	PacketErrors uint64

	AvgCmdQueueDepth float64
	MaxCmdQueueDepth uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	ReadIOPS       float64
	WriteIOPS      float64
	ReadBandwidth  float64
	WriteBandwidth float64
	TotalOps       uint64
	TotalBytes     uint64
	ErrorRate      float64
}

// Snapshot computes a MetricsSnapshot from the live counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ReadOps:          m.ReadOps.Load(),
		WriteOps:         m.WriteOps.Load(),
		FlushOps:         m.FlushOps.Load(),
		PacketOps:        m.PacketOps.Load(),
		ReadBytes:        m.ReadBytes.Load(),
		WriteBytes:       m.WriteBytes.Load(),
		ReadErrors:       m.ReadErrors.Load(),
		WriteErrors:      m.WriteErrors.Load(),
		FlushErrors:      m.FlushErrors.Load(),
		PacketErrors:     m.PacketErrors.Load(),
		MaxCmdQueueDepth: m.MaxCmdQueueDepth.Load(),
	}

	snap.TotalOps = snap.ReadOps + snap.WriteOps + snap.FlushOps + snap.PacketOps
	snap.TotalBytes = snap.ReadBytes + snap.WriteBytes

	depthTotal := m.CmdQueueDepthTotal.Load()
	depthCount := m.CmdQueueDepthCount.Load()
	if depthCount > 0 {
		snap.AvgCmdQueueDepth = float64(depthTotal) / float64(depthCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.ReadIOPS = float64(snap.ReadOps) / uptimeSeconds
		snap.WriteIOPS = float64(snap.WriteOps) / uptimeSeconds
		snap.ReadBandwidth = float64(snap.ReadBytes) / uptimeSeconds
		snap.WriteBandwidth = float64(snap.WriteBytes) / uptimeSeconds
	}

	totalErrors := snap.ReadErrors + snap.WriteErrors + snap.FlushErrors + snap.PacketErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes every counter, for reuse between test cases.
func (m *Metrics) Reset() {
	m.ReadOps.Store(0)
	m.WriteOps.Store(0)
	m.FlushOps.Store(0)
	m.PacketOps.Store(0)
	m.ReadBytes.Store(0)
	m.WriteBytes.Store(0)
	m.ReadErrors.Store(0)
	m.WriteErrors.Store(0)
	m.FlushErrors.Store(0)
	m.PacketErrors.Store(0)
	m.CmdQueueDepthTotal.Store(0)
	m.CmdQueueDepthCount.Store(0)
	m.MaxCmdQueueDepth.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection; callers that issue
// ReadSectors/WriteSectors/Flush/SendPacket directly (bypassing Setup's own
// bookkeeping) can still record through the same interface.
type Observer interface {
	// ObserveRead is called for each READ SECTORS operation.
	ObserveRead(bytes uint64, latencyNs uint64, success bool)

	// ObserveWrite is called for each WRITE SECTORS operation.
	ObserveWrite(bytes uint64, latencyNs uint64, success bool)

	// ObserveFlush is called for each FLUSH CACHE operation.
	ObserveFlush(latencyNs uint64, success bool)

	// ObservePacket is called for each ATAPI PACKET operation.
	ObservePacket(latencyNs uint64, success bool)

	// ObserveCmdQueueDepth receives a controller's command-queue
	// occupancy. Nothing in this driver calls it; it is only called by
	// callers that sample occupancy themselves.
	ObserveCmdQueueDepth(depth uint32)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(uint64, uint64, bool)  {}
func (NoOpObserver) ObserveWrite(uint64, uint64, bool) {}
func (NoOpObserver) ObserveFlush(uint64, bool)         {}
func (NoOpObserver) ObservePacket(uint64, bool)        {}
func (NoOpObserver) ObserveCmdQueueDepth(uint32)       {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer backed by m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveRead(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordRead(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveWrite(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordWrite(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveFlush(latencyNs uint64, success bool) {
	o.metrics.RecordFlush(latencyNs, success)
}

func (o *MetricsObserver) ObservePacket(latencyNs uint64, success bool) {
	o.metrics.RecordPacket(latencyNs, success)
}

func (o *MetricsObserver) ObserveCmdQueueDepth(depth uint32) {
	o.metrics.RecordCmdQueueDepth(depth)
}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = (*NoOpObserver)(nil)
)
