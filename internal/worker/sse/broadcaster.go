// Package sse streams session lifecycle events to connected dashboards
// over Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// WriteTimeout bounds a single write to a client so a stale connection
// cannot stall a broadcast.
const WriteTimeout = 2 * time.Second

// Client is one connected event stream.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string

	writeMu sync.Mutex
}

// write sends one frame to the client. Writes are serialized per client so
// overlapping broadcasts never interleave on the ResponseWriter.
func (c *Client) write(message string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.Writer.Write([]byte(message)); err != nil {
		return err
	}
	c.Flusher.Flush()
	return nil
}

// Broadcaster fans lifecycle events out to every connected client. It
// satisfies the service layer's event sink.
type Broadcaster struct {
	clients map[string]*Client
	mu      sync.RWMutex
	nextID  int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*Client),
	}
}

// AddClient registers a new event stream on w.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[id] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("client_id", id).
		Int("total_clients", clientCount).
		Msg("Event stream connected")

	return client, nil
}

// RemoveClient drops a client and releases its handler. Safe to call for
// a client that was already removed.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	closeDone(client)

	log.Debug().
		Str("client_id", client.ID).
		Int("total_clients", clientCount).
		Msg("Event stream disconnected")
}

// removeClientByID removes a client by ID (for dead client cleanup).
func (b *Broadcaster) removeClientByID(id string) {
	b.mu.Lock()
	client, exists := b.clients[id]
	if exists {
		delete(b.clients, id)
	}
	clientCount := len(b.clients)
	b.mu.Unlock()

	if exists {
		closeDone(client)
	}

	log.Debug().
		Str("client_id", id).
		Int("total_clients", clientCount).
		Msg("Dead event stream removed")
}

// closeDone closes a client's Done channel exactly once.
func closeDone(client *Client) {
	if client.Done == nil {
		return
	}
	select {
	case <-client.Done:
	default:
		close(client.Done)
	}
}

// Broadcast sends one event to all connected clients. Writes run
// concurrently with individual timeouts; clients that fail or stall are
// dropped.
func (b *Broadcaster) Broadcast(data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event")
		return
	}

	message := fmt.Sprintf("data: %s\n\n", jsonData)

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	deadClientsCh := make(chan string, len(clients))
	var wg sync.WaitGroup

	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
			wg.Add(1)
			go func(c *Client) {
				defer wg.Done()
				b.writeToClient(c, message, deadClientsCh)
			}(client)
		}
	}

	wg.Wait()
	close(deadClientsCh)

	for clientID := range deadClientsCh {
		b.removeClientByID(clientID)
	}
}

// writeToClient writes a message to a single client with timeout. Only this
// function sends on deadCh, never the write goroutine: a write that stalls
// past the timeout and then fails must not touch the channel after Broadcast
// has closed it. errCh is buffered so the late writer never blocks.
func (b *Broadcaster) writeToClient(client *Client, message string, deadCh chan<- string) {
	errCh := make(chan error, 1)

	go func() {
		errCh <- client.write(message)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Debug().
				Str("client_id", client.ID).
				Err(err).
				Msg("Failed to write to event stream, marking for removal")
			deadCh <- client.ID
		}
	case <-time.After(WriteTimeout):
		log.Warn().
			Str("client_id", client.ID).
			Dur("timeout", WriteTimeout).
			Msg("Event stream write timed out, marking client for removal")
		deadCh <- client.ID
	case <-client.Done:
		// Client disconnected during write
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// CloseAll disconnects every client. Used on shutdown.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	for _, client := range clients {
		closeDone(client)
	}

	if len(clients) > 0 {
		log.Debug().Int("clients", len(clients)).Msg("Closed all event streams")
	}
}

// HandleSSE upgrades the request to an event stream and blocks until the
// client goes away or the broadcaster shuts down.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	hello, _ := json.Marshal(map[string]string{"type": "connected", "client_id": client.ID})
	if err := client.write(fmt.Sprintf("data: %s\n\n", hello)); err != nil {
		return
	}

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}
