// Package sse streams bus notifications to HTTP clients as Server-Sent Events.
package sse

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/id"
	"github.com/booklyapp/bookly/internal/logger"
)

// DefaultHeartbeatInterval is how often idle streams receive a heartbeat.
const DefaultHeartbeatInterval = 30 * time.Second

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan events.Event
	Done        chan struct{}
	ID          string
	// Types limits delivery to these event types. Empty means every type.
	Types []events.Type
}

func (c *Client) wants(t events.Type) bool {
	return t == events.Heartbeat || len(c.Types) == 0 || slices.Contains(c.Types, t)
}

// Subscriber is the part of the bus the manager listens on.
type Subscriber interface {
	Subscribe(handler events.Handler, types ...events.Type) string
	Unsubscribe(id string) bool
}

// Manager fans bus events out to SSE clients.
//
// The bus handler only queues; a single broadcast goroutine started by Start delivers,
// so a slow HTTP client never blocks a service write.
type Manager struct {
	clients           map[string]*Client
	events            chan events.Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	bus   Subscriber
	subID string

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a manager subscribed to every event on bus.
func NewManager(bus Subscriber, log *slog.Logger) *Manager {
	m := &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan events.Event, 1000),
		logger:            logger.OrDiscard(log),
		heartbeatInterval: DefaultHeartbeatInterval,
		bus:               bus,
	}
	if bus != nil {
		m.subID = bus.Subscribe(m.Emit)
	}
	return m
}

// SetHeartbeatInterval changes the heartbeat period. Call before Start.
func (m *Manager) SetHeartbeatInterval(d time.Duration) {
	if d > 0 {
		m.heartbeatInterval = d
	}
}

// Start runs the broadcast loop until ctx is cancelled or Shutdown drains the queue.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("SSE manager starting")

	heartbeatTicker := time.NewTicker(m.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				m.closeAllClients()
				return
			}
			m.broadcast(event)

		case <-heartbeatTicker.C:
			m.broadcast(events.NewHeartbeat())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, lets the broadcast loop drain the queue, and
// closes all clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("SSE manager shutdown initiated")

	if m.bus != nil {
		m.bus.Unsubscribe(m.subID)
	}

	// Mark as shutdown and close the channel while holding the lock so Emit never
	// sends on a closed channel.
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("SSE manager shutdown complete")
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
		return ctx.Err()
	}
	return nil
}

// Emit queues an event for broadcasting. It never blocks.
func (m *Manager) Emit(event events.Event) {
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- event:
	default:
		m.logger.Error("SSE event channel full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// broadcast sends an event to every interested client.
func (m *Manager) broadcast(event events.Event) {
	var delivered, dropped, filtered int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		if !client.wants(event.Type) {
			filtered++
			continue
		}

		// Non-blocking send (drop if client is slow/stuck).
		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != events.Heartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("dropped", dropped)))
	}
}

// Connect registers a new client interested in types (none = all).
func (m *Manager) Connect(types ...events.Type) (*Client, error) {
	clientID, err := id.Generate(id.PrefixSSE)
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		Types:       slices.Clone(types),
		EventChan:   make(chan events.Event, 100),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	totalClients := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", clientID),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Disconnect removes a client and closes its channels.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	totalClients := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// closeAllClients closes all client connections (used during shutdown).
func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		close(client.Done)
		close(client.EventChan)
	}
	m.clients = make(map[string]*Client)

	m.logger.Info("all SSE clients disconnected")
}
