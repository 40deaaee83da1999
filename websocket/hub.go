package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vidgrab/types"
)

// AllJobs is the subscription key for clients following every job
const AllJobs = "all"

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run(ctx context.Context)
	JobUpdated(job types.DownloadJob)
	Broadcast(msg types.ProgressMessage)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by job ID
	clients map[string]map[*Client]bool

	broadcast  chan types.ProgressMessage
	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns so senders never block on a dead hub
	done chan struct{}

	logger *slog.Logger
	mu     sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.ProgressMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main event loop
func (h *hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.jobID] == nil {
				h.clients[client.jobID] = make(map[*Client]bool)
			}
			h.clients[client.jobID][client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", slog.String("job_id", client.jobID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", slog.String("job_id", client.jobID))

		case message := <-h.broadcast:
			h.mu.Lock()
			h.deliver(message.JobID, message)
			h.deliver(AllJobs, message)
			h.mu.Unlock()
		}
	}
}

// deliver sends to one subscription group, dropping clients that cannot keep up
func (h *hub) deliver(key string, message types.ProgressMessage) {
	clients, ok := h.clients[key]
	if !ok {
		return
	}
	for client := range clients {
		if !client.Send(message) {
			client.close()
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, key)
	}
}

func (h *hub) remove(client *Client) {
	clients, ok := h.clients[client.jobID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		client.close()
		if len(clients) == 0 {
			delete(h.clients, client.jobID)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, clients := range h.clients {
		for client := range clients {
			client.close()
		}
		delete(h.clients, key)
	}
}

// JobUpdated converts a job snapshot into a progress message and broadcasts it
func (h *hub) JobUpdated(job types.DownloadJob) {
	h.Broadcast(MessageFromJob(job))
}

// Broadcast queues a message without blocking; it is dropped when the hub is saturated
func (h *hub) Broadcast(msg types.ProgressMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Debug("websocket broadcast channel full, dropping message", slog.String("job_id", msg.JobID))
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// MessageFromJob builds the wire message for a job snapshot
func MessageFromJob(job types.DownloadJob) types.ProgressMessage {
	msg := types.ProgressMessage{
		JobID:     job.ID,
		Type:      "progress",
		Progress:  job.Progress,
		Status:    string(job.Status),
		Filename:  job.Filename,
		Speed:     job.Speed,
		ETA:       job.ETA,
		Timestamp: time.Now(),
	}

	switch job.Status {
	case types.JobStatusPending:
		msg.Type = "status"
		msg.Message = "queued"
	case types.JobStatusCompleted:
		msg.Type = "complete"
		msg.Message = fmt.Sprintf("%s download completed", job.Filename)
	case types.JobStatusFailed:
		msg.Type = "error"
		msg.Message = job.Error
	}

	return msg
}
