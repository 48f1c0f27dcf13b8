// Package pubsub es la lista de observadores compartida por los stores.
// No hay grafo reactivo: Publish llama a cada suscriptor en orden de
// suscripción, de forma síncrona.
package pubsub

import (
	"sync"
	"time"
)

type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
	OpLoaded  Op = "loaded"
	OpLogin   Op = "login"
	OpLogout  Op = "logout"
)

const (
	TopicPatients     = "patients"
	TopicAppointments = "appointments"
	TopicSession      = "session"
)

type Change struct {
	Topic string    `json:"topic"`
	Op    Op        `json:"op"`
	ID    string    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

type subscriber struct {
	id int
	fn func(Change)
}

type Hub struct {
	mu   sync.RWMutex
	next int
	subs []subscriber
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registra fn y devuelve la función para darse de baja.
// Llamar unsubscribe más de una vez es seguro.
func (h *Hub) Subscribe(fn func(Change)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	h.mu.Lock()
	h.next++
	id := h.next
	h.subs = append(h.subs, subscriber{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subs {
				if s.id == id {
					h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish notifica a todos los suscriptores actuales.
// Se copia la lista antes de llamar, así un suscriptor puede darse de baja
// dentro de su propio callback.
func (h *Hub) Publish(c Change) {
	if h == nil {
		return
	}
	if c.At.IsZero() {
		c.At = time.Now()
	}

	h.mu.RLock()
	subs := make([]subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.RUnlock()

	for _, s := range subs {
		s.fn(c)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
