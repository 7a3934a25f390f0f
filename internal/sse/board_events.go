package sse

import (
	"context"
	"sync"
)

// BoardEventEmitter manages SSE connections for "projection changed"
// notifications. Renderers subscribe, receive a tick whenever the board
// should be recomputed, and re-fetch the projection themselves. The payload
// is deliberately empty: the projection is pull, not push.
type BoardEventEmitter struct {
	clients     map[string][]chan struct{}
	clientMutex sync.RWMutex
}

func NewBoardEventEmitter() *BoardEventEmitter {
	return &BoardEventEmitter{
		clients: make(map[string][]chan struct{}),
	}
}

// Subscribe adds a client to a view's change notifications. The client is
// removed when its context ends.
func (e *BoardEventEmitter) Subscribe(ctx context.Context, viewKey string) chan struct{} {
	clientChan := make(chan struct{}, 10)

	e.clientMutex.Lock()
	e.clients[viewKey] = append(e.clients[viewKey], clientChan)
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(viewKey, clientChan)
	}()

	return clientChan
}

// Emit notifies every client of a view that the projection changed.
func (e *BoardEventEmitter) Emit(viewKey string) {
	e.clientMutex.RLock()
	clients := e.clients[viewKey]
	e.clientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send: a slow client misses a tick, not the stream.
		select {
		case clientChan <- struct{}{}:
		default:
		}
	}
}

// ClientCount returns the number of clients subscribed to a view.
func (e *BoardEventEmitter) ClientCount(viewKey string) int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients[viewKey])
}

func (e *BoardEventEmitter) removeClient(viewKey string, clientChan chan struct{}) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	clients := e.clients[viewKey]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[viewKey] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[viewKey]) == 0 {
		delete(e.clients, viewKey)
	}
}
