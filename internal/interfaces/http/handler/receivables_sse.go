package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	ledgerapp "github.com/freightflow/backend/internal/application/ledger"
	ledgerdomain "github.com/freightflow/backend/internal/domain/ledger"
	"github.com/freightflow/backend/internal/interfaces/http/middleware"
	"github.com/freightflow/backend/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SSEMessage is one event on the receivables stream.
type SSEMessage struct {
	Event string
	Data  string
	ID    string
}

type sseClient struct {
	id   string
	ch   chan SSEMessage
	done chan struct{}
}

// tenantFeed is the realtime pipeline for one tenant: a sync coordinator
// plus the clients its merged view fans out to. The coordinator runs
// while at least one client is connected.
type tenantFeed struct {
	coordinator *ledgerapp.SyncCoordinator
	cancel      context.CancelFunc
	clients     map[string]*sseClient
}

// CoordinatorFactory builds a fresh sync coordinator for one tenant feed.
type CoordinatorFactory func() *ledgerapp.SyncCoordinator

// ReceivablesStreamHandler streams the merged invoice view over SSE.
// Feeds start lazily on the first client of a tenant and stop when the
// last one disconnects.
type ReceivablesStreamHandler struct {
	BaseHandler
	newCoordinator CoordinatorFactory
	logger         *zap.Logger
	heartbeat      time.Duration
	maxClients     int

	mu    sync.Mutex
	feeds map[string]*tenantFeed

	ctx    context.Context
	cancel context.CancelFunc
}

// StreamOption configures the stream handler.
type StreamOption func(*ReceivablesStreamHandler)

// WithStreamHeartbeat sets the keep-alive interval.
func WithStreamHeartbeat(interval time.Duration) StreamOption {
	return func(h *ReceivablesStreamHandler) { h.heartbeat = interval }
}

// WithStreamMaxClients caps concurrent SSE connections.
func WithStreamMaxClients(max int) StreamOption {
	return func(h *ReceivablesStreamHandler) { h.maxClients = max }
}

// NewReceivablesStreamHandler creates the SSE handler.
func NewReceivablesStreamHandler(factory CoordinatorFactory, logger *zap.Logger, opts ...StreamOption) *ReceivablesStreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &ReceivablesStreamHandler{
		newCoordinator: factory,
		logger:         logger,
		heartbeat:      30 * time.Second,
		maxClients:     1000,
		feeds:          make(map[string]*tenantFeed),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.sendHeartbeats()
	return h
}

// Stop tears down every feed and disconnects all clients.
func (h *ReceivablesStreamHandler) Stop() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for tenantID, feed := range h.feeds {
		feed.coordinator.Stop()
		feed.cancel()
		for _, client := range feed.clients {
			close(client.done)
		}
		delete(h.feeds, tenantID)
	}
}

// ClientCount reports connected clients across all tenants.
func (h *ReceivablesStreamHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, feed := range h.feeds {
		count += len(feed.clients)
	}
	return count
}

// Stream subscribes the caller to their tenant's merged invoice view.
// GET /api/v1/receivables/stream
func (h *ReceivablesStreamHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.ClientCount() >= h.maxClients {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MAX_CONNECTIONS_REACHED",
				"message": "Maximum number of stream connections reached",
			},
		})
		return
	}

	sess := middleware.GetSession(c)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	client := &sseClient{
		id:   uuid.New().String(),
		ch:   make(chan SSEMessage, 64),
		done: make(chan struct{}),
	}

	if err := h.attach(sess, client); err != nil {
		h.HandleError(c, err)
		return
	}
	defer h.detach(sess.TenantID, client)

	h.logger.Info("Receivables stream client connected",
		zap.String("client_id", client.id),
		zap.String("tenant_id", sess.TenantID))

	h.sendEvent(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"client_id":%q,"timestamp":%d}`, client.id, time.Now().Unix()),
	})
	c.Writer.Flush()

	// Deliver the current view immediately so a reconnecting table does
	// not wait for the next change.
	if current := h.currentView(sess.TenantID); current != nil {
		h.sendEvent(c.Writer, *current)
		c.Writer.Flush()
	}

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			return
		case <-client.done:
			return
		case <-h.ctx.Done():
			return
		case msg, ok := <-client.ch:
			if !ok {
				return
			}
			h.sendEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

// attach registers the client, starting the tenant's coordinator when it
// is the first one.
func (h *ReceivablesStreamHandler) attach(sess session.Context, client *sseClient) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.feeds[sess.TenantID]
	if !ok {
		coordinator := h.newCoordinator()
		feedCtx, cancel := context.WithCancel(h.ctx)

		tenantID := sess.TenantID
		coordinator.OnUpdate(func(records []*ledgerdomain.ReceivableRecord) {
			h.broadcast(tenantID, records)
		})

		if err := coordinator.Start(feedCtx, sess); err != nil {
			cancel()
			return err
		}

		feed = &tenantFeed{
			coordinator: coordinator,
			cancel:      cancel,
			clients:     make(map[string]*sseClient),
		}
		h.feeds[tenantID] = feed
		h.logger.Info("Tenant feed started", zap.String("tenant_id", tenantID))
	}

	feed.clients[client.id] = client
	return nil
}

// detach unregisters the client, stopping the feed with the last one.
func (h *ReceivablesStreamHandler) detach(tenantID string, client *sseClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.feeds[tenantID]
	if !ok {
		return
	}
	delete(feed.clients, client.id)
	close(client.ch)

	if len(feed.clients) == 0 {
		feed.coordinator.Stop()
		feed.cancel()
		delete(h.feeds, tenantID)
		h.logger.Info("Tenant feed stopped", zap.String("tenant_id", tenantID))
	}
}

func (h *ReceivablesStreamHandler) currentView(tenantID string) *SSEMessage {
	h.mu.Lock()
	feed, ok := h.feeds[tenantID]
	h.mu.Unlock()
	if !ok {
		return nil
	}
	msg, err := viewMessage(feed.coordinator.Current())
	if err != nil {
		h.logger.Error("Failed to encode current view", zap.Error(err))
		return nil
	}
	return msg
}

// broadcast fans a merged view out to the tenant's clients. Slow clients
// drop messages instead of blocking the coordinator.
func (h *ReceivablesStreamHandler) broadcast(tenantID string, records []*ledgerdomain.ReceivableRecord) {
	msg, err := viewMessage(records)
	if err != nil {
		h.logger.Error("Failed to encode receivables view", zap.Error(err))
		return
	}

	// Sends happen under the lock so a concurrent detach cannot close a
	// channel mid-broadcast; the selects never block.
	h.mu.Lock()
	defer h.mu.Unlock()
	feed, ok := h.feeds[tenantID]
	if !ok {
		return
	}
	for _, client := range feed.clients {
		select {
		case client.ch <- *msg:
		default:
			h.logger.Warn("Stream client channel full, dropping update",
				zap.String("client_id", client.id))
		}
	}
}

func viewMessage(records []*ledgerdomain.ReceivableRecord) (*SSEMessage, error) {
	if records == nil {
		records = []*ledgerdomain.ReceivableRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return &SSEMessage{
		Event: "receivables_updated",
		Data:  string(data),
		ID:    fmt.Sprintf("%d", time.Now().UnixNano()),
	}, nil
}

func (h *ReceivablesStreamHandler) sendHeartbeats() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			beat := SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			}
			h.mu.Lock()
			for _, feed := range h.feeds {
				for _, client := range feed.clients {
					select {
					case client.ch <- beat:
					default:
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *ReceivablesStreamHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
