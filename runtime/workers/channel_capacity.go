package workers

import (
	"cam-relay/contract"
	"context"
	"log/slog"
	"reflect"
	"time"
)

var _ contract.Worker = (*ChannelCapacityWorker)(nil)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically samples the length and capacity of the relay queues.
// Reading len(channel) and cap(channel) is non-blocking, so this won't interfere
// with other goroutines. A warning is logged when a queue has lowCapacityThreshold
// slots or fewer left, since full queues mean dropped jobs or events.
type ChannelCapacityWorker struct {
	log                  *slog.Logger
	channels             []NamedChannel
	metricInterval       time.Duration
	lowCapacityThreshold int
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	metricInterval time.Duration, lowCapacityThreshold int) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:                  log,
		channels:             channels,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel capacity sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

// sample returns the channels running low, for tests.
func (w ChannelCapacityWorker) sample() []string {
	var low []string
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		// Verify if this is a channel
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		capacity, length := v.Cap(), v.Len()
		w.log.Debug("Channel usage", "channel", nc.Name, "length", length, "capacity", capacity)
		if capacity <= 0 {
			// In case of unbuffered channel
			continue
		}
		if left := capacity - length; left <= w.lowCapacityThreshold {
			w.log.Warn("Channel capacity running low", "channel", nc.Name, "left", left, "capacity", capacity)
			low = append(low, nc.Name)
		}
	}
	return low
}
