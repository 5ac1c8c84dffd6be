package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/mqtt"
)

// ProvisioningEvent published by the provisioning service when a clinic's
// backend is created, moved or removed. A bare subdomain string is accepted too.
type ProvisioningEvent struct {
	Subdomain string `json:"subdomain"`
	Event     string `json:"event,omitempty"`
}

// Watcher invalidates cached registry entries on provisioning events.
type Watcher struct {
	sub    mqtt.Subscriber
	inv    Invalidator
	topic  string
	qos    byte
	logger *zap.Logger
}

func NewWatcher(sub mqtt.Subscriber, inv Invalidator, topic string, qos byte, logger *zap.Logger) *Watcher {
	return &Watcher{sub: sub, inv: inv, topic: topic, qos: qos, logger: logger}
}

// Start subscribes to the provisioning topic.
func (w *Watcher) Start() error {
	w.logger.Info("Watching provisioning topic", zap.String("topic", w.topic))
	return w.sub.Subscribe(w.topic, w.qos, w.HandleMessage)
}

// Check reports an error while the broker connection is down; cached
// entries then only expire by TTL.
func (w *Watcher) Check(context.Context) error {
	if !w.sub.IsConnected() {
		return fmt.Errorf("provisioning topic %s: broker disconnected", w.topic)
	}
	return nil
}

// Stop unsubscribes.
func (w *Watcher) Stop() error {
	return w.sub.Unsubscribe(w.topic)
}

// HandleMessage decodes one event and drops the matching cache entry.
func (w *Watcher) HandleMessage(topic string, payload []byte) error {
	var ev ProvisioningEvent
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("failed to decode provisioning event: %w", err)
		}
	} else {
		ev.Subdomain = trimmed
	}
	ev.Subdomain = normalize(ev.Subdomain)
	if ev.Subdomain == "" {
		return fmt.Errorf("provisioning event without subdomain")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.inv.Invalidate(ctx, ev.Subdomain); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", ev.Subdomain, err)
	}

	w.logger.Info("Backend registry entry invalidated",
		zap.String("topic", topic),
		zap.String("subdomain", ev.Subdomain),
		zap.String("event", ev.Event),
	)
	return nil
}
