// Package websocket expone los cambios de los stores a clientes WebSocket.
// Cada cliente se suscribe a topics (patients, appointments, session) y
// recibe cada pubsub.Change de esos topics como JSON.
package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"

	"dental-clinic-admin/internal/platform/logger"
	"dental-clinic-admin/internal/platform/pubsub"
)

const sendBuffer = 64

// ClientMessage es lo que un cliente puede mandar para cambiar sus topics.
type ClientMessage struct {
	Action string   `json:"action"` // subscribe | unsubscribe
	Topics []string `json:"topics"`
}

type Client struct {
	ID     string
	Topics []string
	Send   chan []byte

	// Allow filtra los topics que el cliente puede pedir. nil => todos.
	Allow func(topic string) bool
}

// TopicFilter decide, por request, qué topics puede recibir el cliente.
type TopicFilter func(r *http.Request, topic string) bool

// Hub registra clientes por topic. Es seguro para uso concurrente.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> clientes
	all     map[*Client]struct{}

	log logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		log:     log,
	}
}

// Attach reenvía los cambios del pubsub a los clientes del topic correspondiente.
func (h *Hub) Attach(ps *pubsub.Hub) (detach func()) {
	return ps.Subscribe(h.Forward)
}

func (h *Hub) Forward(c pubsub.Change) {
	data, err := json.Marshal(c)
	if err != nil {
		h.log.Error("websocket marshal failed", map[string]any{"error": err})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[c.Topic] {
		select {
		case client.Send <- data:
		default:
			// buffer lleno: se descarta para no bloquear al publicador
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.Topics = client.allowed(client.Topics)
	h.all[client] = struct{}{}
	h.addTopics(client, client.Topics)
}

// Unregister quita al cliente y cierra su canal Send.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	h.removeTopics(client, client.Topics)
	delete(h.all, client)
	close(client.Send)
}

func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	switch msg.Action {
	case "subscribe":
		fresh := make([]string, 0, len(msg.Topics))
		for _, t := range client.allowed(msg.Topics) {
			if !contains(client.Topics, t) {
				fresh = append(fresh, t)
			}
		}
		h.addTopics(client, fresh)
		client.Topics = append(client.Topics, fresh...)
	case "unsubscribe":
		h.removeTopics(client, msg.Topics)
		remaining := client.Topics[:0]
		for _, t := range client.Topics {
			if !contains(msg.Topics, t) {
				remaining = append(remaining, t)
			}
		}
		client.Topics = remaining
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) addTopics(client *Client, topics []string) {
	for _, t := range topics {
		if h.clients[t] == nil {
			h.clients[t] = make(map[*Client]struct{})
		}
		h.clients[t][client] = struct{}{}
	}
}

func (h *Hub) removeTopics(client *Client, topics []string) {
	for _, t := range topics {
		if subs, ok := h.clients[t]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.clients, t)
			}
		}
	}
}

func (c *Client) allowed(topics []string) []string {
	if c.Allow == nil {
		return topics
	}
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if c.Allow(t) {
			out = append(out, t)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Handler HTTP
// ---------------------------------------------------------------------------

var defaultTopics = []string{pubsub.TopicPatients, pubsub.TopicAppointments, pubsub.TopicSession}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS ya lo resuelve el router.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler hace el upgrade en GET /ws. ?topics=patients,appointments elige
// los topics iniciales; sin el parámetro se suscribe a todos los que allow
// permita. allow nil => sin filtro.
func (h *Hub) Handler(allow TopicFilter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", map[string]any{"error": err})
			return
		}

		client := &Client{
			ID:     uuid.NewString(),
			Topics: parseTopics(r.URL.Query().Get("topics")),
			Send:   make(chan []byte, sendBuffer),
		}
		if allow != nil {
			client.Allow = func(topic string) bool { return allow(r, topic) }
		}
		h.Register(client)
		h.log.Debug("websocket client connected", map[string]any{"client_id": client.ID, "topics": client.Topics})

		go h.writePump(client, ws)
		go h.readPump(client, ws)
	}
}

func (h *Hub) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.Unregister(client)
		_ = ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.ProcessMessage(client, msg)
	}
}

func (h *Hub) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = ws.WriteMessage(gorillawebsocket.CloseMessage, gorillawebsocket.FormatCloseMessage(gorillawebsocket.CloseNormalClosure, ""))
}

func parseTopics(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append([]string(nil), defaultTopics...)
	}
	out := make([]string, 0)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" && !contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
