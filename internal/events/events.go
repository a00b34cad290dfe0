package events

import (
	"context"
	"sync"
	"time"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventCatalogUpdated is emitted when a card is created, updated
	// or deleted. Subscribers use it to invalidate cached results.
	EventCatalogUpdated EventType = "catalog.updated"
	// EventRebateCalculated is emitted after a rebate comparison runs.
	EventRebateCalculated EventType = "rebate.calculated"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// CatalogUpdatedData contains data for catalog updated events.
type CatalogUpdatedData struct {
	CardID  string
	Deleted bool
}

// RebateCalculatedData contains data for rebate calculated events.
type RebateCalculatedData struct {
	MerchantID   string
	MerchantName string
	Amount       float64
	ResultCount  int
	CachedHit    bool
	CalculatedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so publishing never blocks the request path.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				_ = err
			}
		}(handler)
	}
}

// PublishCatalogUpdated publishes a catalog updated event.
func (m *Manager) PublishCatalogUpdated(ctx context.Context, cardID string, deleted bool) {
	m.Publish(ctx, EventCatalogUpdated, CatalogUpdatedData{CardID: cardID, Deleted: deleted})
}

// PublishRebateCalculated publishes a rebate calculated event.
func (m *Manager) PublishRebateCalculated(ctx context.Context, req models.CalculationRequest, results int, cached bool) {
	m.Publish(ctx, EventRebateCalculated, RebateCalculatedData{
		MerchantID:   req.Merchant.ID,
		MerchantName: req.Merchant.Name,
		Amount:       req.Amount,
		ResultCount:  results,
		CachedHit:    cached,
		CalculatedAt: time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
