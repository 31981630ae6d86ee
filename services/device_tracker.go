package services

import (
	"cam-relay/domain"
	"cam-relay/domain/event"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

type Device struct {
	ClientID string
	IP       string
	Status   string
	LastSeen time.Time
}

// DeviceTracker records the cameras announcing themselves on the status subject.
type DeviceTracker struct {
	log     *slog.Logger
	mu      sync.RWMutex
	devices map[string]Device
	events  chan<- event.DomainEvent
}

func NewDeviceTracker(log *slog.Logger, events chan<- event.DomainEvent) *DeviceTracker {
	return &DeviceTracker{log: log, devices: make(map[string]Device), events: events}
}

func (t *DeviceTracker) Seen(source domain.SourceID, status domain.DeviceStatus, at time.Time) error {
	if err := validate.Struct(status); err != nil {
		return fmt.Errorf("invalid device status: %w", err)
	}

	t.mu.Lock()
	_, known := t.devices[status.ClientID]
	t.devices[status.ClientID] = Device{ClientID: status.ClientID, IP: status.IP, Status: status.Status, LastSeen: at}
	t.mu.Unlock()

	if !known {
		t.log.Info("Camera connected", "client_id", status.ClientID, "ip", status.IP)
	}

	select {
	case t.events <- event.DeviceSeen{Source: source, ClientID: status.ClientID, IP: status.IP, Status: status.Status, At: at}:
	default:
		t.log.Debug("Event channel full, dropping device event", "client_id", status.ClientID)
	}
	return nil
}

// Devices returns the known cameras, most recently seen first.
func (t *DeviceTracker) Devices() []Device {
	t.mu.RLock()
	devices := lo.Values(t.devices)
	t.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].LastSeen.After(devices[j].LastSeen)
	})
	return devices
}
