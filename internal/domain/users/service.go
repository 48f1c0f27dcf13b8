package users

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"dental-clinic-admin/internal/platform/logger"
	"dental-clinic-admin/internal/platform/pubsub"
	"dental-clinic-admin/internal/ports/auth"
	"dental-clinic-admin/internal/ports/kv"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownUser        = errors.New("unknown user")
)

// TokenIssuer firma un token de sesión. Opcional.
type TokenIssuer interface {
	Issue(c auth.Claims) (string, error)
}

// Service maneja la sesión única persistida en la key "user".
type Service struct {
	users  []User
	store  kv.Store
	hub    *pubsub.Hub
	tokens TokenIssuer
	log    logger.Logger

	mu       sync.Mutex
	restored bool
	current  *User
}

var _ auth.Directory = (*Service)(nil)

func NewService(store kv.Store, hub *pubsub.Hub, tokens TokenIssuer, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if hub == nil {
		hub = pubsub.NewHub()
	}
	return &Service{
		users:  MockUsers(),
		store:  store,
		hub:    hub,
		tokens: tokens,
		log:    log,
	}
}

// Session es el resultado de un login. Token vacío si no hay issuer.
type Session struct {
	User  User
	Token string
}

// Login busca por email exacto (case-sensitive). La contraseña no se verifica.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, ok := s.byEmail(email)
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	var token string
	if s.tokens != nil {
		t, err := s.tokens.Issue(u.Claims())
		if err != nil {
			return Session{}, err
		}
		token = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		b, err := json.Marshal(u)
		if err != nil {
			return Session{}, err
		}
		if err := s.store.Set(ctx, kv.KeyUser, b); err != nil {
			return Session{}, err
		}
	}
	s.current = &u
	s.restored = true

	s.hub.Publish(pubsub.Change{Topic: pubsub.TopicSession, Op: pubsub.OpLogin, ID: u.ID})
	return Session{User: u, Token: token}, nil
}

func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Delete(ctx, kv.KeyUser); err != nil {
			return err
		}
	}
	prev := s.current
	s.current = nil
	s.restored = true

	id := ""
	if prev != nil {
		id = prev.ID
	}
	s.hub.Publish(pubsub.Change{Topic: pubsub.TopicSession, Op: pubsub.OpLogout, ID: id})
	return nil
}

// Current devuelve el usuario con sesión activa, restaurándolo del store la
// primera vez. Un valor ilegible se trata como sin sesión.
func (s *Service) Current(ctx context.Context) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.restored {
		s.restored = true
		s.current = s.restore(ctx)
	}
	if s.current == nil {
		return User{}, false
	}
	return *s.current, true
}

func (s *Service) restore(ctx context.Context) *User {
	if s.store == nil {
		return nil
	}
	raw, ok, err := s.store.Get(ctx, kv.KeyUser)
	if err != nil {
		s.log.Warn("session read failed", map[string]any{"error": err})
		return nil
	}
	if !ok {
		return nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil || strings.TrimSpace(u.ID) == "" {
		s.log.Warn("session parse failed", map[string]any{"error": err})
		return nil
	}
	return &u
}

// ClaimsFor resuelve un id del directorio (modo dev).
func (s *Service) ClaimsFor(_ context.Context, userID string) (auth.Claims, error) {
	for _, u := range s.users {
		if u.ID == userID {
			return u.Claims(), nil
		}
	}
	return auth.Claims{}, ErrUnknownUser
}

func (s *Service) CurrentSession(ctx context.Context) (auth.Claims, bool) {
	u, ok := s.Current(ctx)
	if !ok {
		return auth.Claims{}, false
	}
	return u.Claims(), true
}

func (s *Service) Users() []User {
	return append([]User(nil), s.users...)
}

func (s *Service) byEmail(email string) (User, bool) {
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}
