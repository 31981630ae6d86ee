// Package runtime wires the relay: transport messages are routed to sharded ingest
// workers, assembled transfers are decoded by a bounded pool and every outcome is
// broadcast to the sinks. It holds no protocol or decode rules itself.
package runtime

import (
	"cam-relay/contract"
	"cam-relay/domain"
	"cam-relay/domain/event"
	"cam-relay/runtime/workers"
	"cam-relay/services"
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"
)

var _ contract.MessageHandler = (*Orchestrator)(nil)

type Options struct {
	IngestWorkers  int
	DecodeWorkers  int
	BufferSize     int
	SinkTimeout    time.Duration
	SessionTTL     time.Duration
	ReaperInterval time.Duration
	StatusSubject  string
	// MetricInterval enables queue and process sampling when positive.
	MetricInterval       time.Duration
	LowCapacityThreshold int
}

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	options        Options
	supervisor     contract.ISupervisor
	decoder        contract.Decoder
	assembler      *services.TransferAssembler
	devices        *services.DeviceTracker
	health         *workers.ProcessHealthWorker
	shards         []chan domain.InboundMessage
	jobs           chan domain.DecodeJob
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, decoder contract.Decoder, options Options) *Orchestrator {
	options.IngestWorkers = max(options.IngestWorkers, 1)
	options.DecodeWorkers = max(options.DecodeWorkers, 1)
	options.BufferSize = max(options.BufferSize, 1)

	events := make(chan event.DomainEvent, options.BufferSize)
	shards := make([]chan domain.InboundMessage, options.IngestWorkers)
	for i := range shards {
		shards[i] = make(chan domain.InboundMessage, options.BufferSize)
	}

	return &Orchestrator{
		log:        log,
		options:    options,
		supervisor: supervisor,
		decoder:    decoder,
		assembler:  services.NewTransferAssembler(log, events),
		devices:    services.NewDeviceTracker(log, events),
		health:     workers.NewProcessHealthWorker(log, options.MetricInterval),
		shards:     shards,
		jobs:       make(chan domain.DecodeJob, options.BufferSize),
		events:     events,
	}
}

// Add registers sinks receiving every relay event. Must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Handle routes a transport message to the shard owning its source.
// It blocks while the shard is full, which pushes back on the transport.
func (o *Orchestrator) Handle(ctx context.Context, msg domain.InboundMessage) error {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	select {
	case o.shards[o.shardOf(msg.Source)] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) shardOf(source domain.SourceID) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(source))
	return int(h.Sum32() % uint32(len(o.shards)))
}

// Start registers every worker to the supervisor and blocks until they all stopped.
func (o *Orchestrator) Start(ctx context.Context) error {
	ingest := services.NewIngestService(o.log, o.assembler, o.devices, o.jobs, o.events, domain.SourceID(o.options.StatusSubject))

	o.mu.Lock()
	for i, shard := range o.shards {
		o.supervisor.Add(workers.NewIngestWorker(i, shard, ingest, o.log))
	}
	for range o.options.DecodeWorkers {
		o.supervisor.Add(workers.NewDecodeWorker(o.jobs, o.events, o.decoder, o.log))
	}
	if o.options.SessionTTL > 0 {
		o.supervisor.Add(workers.NewSessionReaper(o.assembler, o.log, o.reaperInterval(), o.options.SessionTTL))
	}
	o.supervisor.Add(workers.NewEventFanout(o.log, o.events, o.sinkTimeout(), o.permanentSinks...))
	if o.options.MetricInterval > 0 {
		o.supervisor.Add(workers.NewChannelCapacityWorker(o.log, o.namedChannels(), o.options.MetricInterval, o.options.LowCapacityThreshold))
		o.supervisor.Add(o.health)
	}
	o.mu.Unlock()

	o.log.Info("Starting relay and all supervised workers",
		"ingest_workers", len(o.shards), "decode_workers", o.options.DecodeWorkers)
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised context. In-flight decodes are abandoned.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting relay shutdown")
	o.supervisor.Stop()
}

func (o *Orchestrator) ActiveSessions() int { return o.assembler.ActiveSessions() }

func (o *Orchestrator) Devices() []services.Device { return o.devices.Devices() }

// Stats feeds the debug server.
func (o *Orchestrator) Stats() map[string]any {
	health := o.health.Latest()
	stats := map[string]any{
		"active_sessions": o.assembler.ActiveSessions(),
		"devices":         len(o.devices.Devices()),
		"pending_jobs":    len(o.jobs),
		"pending_events":  len(o.events),
		"rss_bytes":       health.RSS,
		"cpu_percent":     health.CPUPercent,
		"goroutines":      health.Goroutines,
	}
	if counter, ok := o.supervisor.(interface{ Restarts() int64 }); ok {
		stats["worker_restarts"] = counter.Restarts()
	}
	return stats
}

func (o *Orchestrator) namedChannels() []workers.NamedChannel {
	channels := []workers.NamedChannel{
		{Name: "decode_jobs", Channel: o.jobs},
		{Name: "events", Channel: o.events},
	}
	for i, shard := range o.shards {
		channels = append(channels, workers.NamedChannel{Name: fmt.Sprintf("ingest_shard_%d", i), Channel: shard})
	}
	return channels
}

func (o *Orchestrator) reaperInterval() time.Duration {
	if o.options.ReaperInterval > 0 {
		return o.options.ReaperInterval
	}
	return o.options.SessionTTL / 2
}

func (o *Orchestrator) sinkTimeout() time.Duration {
	if o.options.SinkTimeout > 0 {
		return o.options.SinkTimeout
	}
	return time.Second
}
