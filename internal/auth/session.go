package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Session is the process-wide credential holder. It is created once, hydrated
// with Init, and passed explicitly to whatever needs the token.
type Session struct {
	log       *zap.Logger
	providers []Provider

	mu        sync.RWMutex
	token     string
	source    string
	listeners []func()
}

// NewSession creates a Session over providers, listed in priority order.
func NewSession(log *zap.Logger, providers ...Provider) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{log: log, providers: providers}
}

// Init loads the token from the first provider that has one. Provider
// failures are logged and skipped.
func (s *Session) Init(ctx context.Context) {
	for _, p := range s.providers {
		token, err := p.Load(ctx)
		if err != nil {
			s.log.Warn("credential provider failed", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if token == "" {
			continue
		}
		s.mu.Lock()
		s.token, s.source = token, p.Name()
		s.mu.Unlock()
		s.log.Debug("credential loaded", zap.String("provider", p.Name()))
		return
	}
}

// Login stores token in memory and in every writable provider. The token is
// usable even if persisting fails; the joined persistence errors are returned.
func (s *Session) Login(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	s.mu.Lock()
	s.token, s.source = token, "login"
	s.mu.Unlock()

	var errs []error
	for _, p := range s.providers {
		err := p.Save(ctx, token)
		if err == nil || errors.Is(err, ErrReadOnly) {
			continue
		}
		errs = append(errs, fmt.Errorf("save to %s: %w", p.Name(), err))
	}
	return errors.Join(errs...)
}

// Logout forgets the token and clears it from every provider.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token, s.source = "", ""
	s.mu.Unlock()

	var errs []error
	for _, p := range s.providers {
		if err := p.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Token returns the current bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Source names the provider the token came from.
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// OnInvalidate registers fn to run after the server rejects the credential.
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Invalidate is called when the server answers 401. It logs the user out
// everywhere and notifies listeners.
func (s *Session) Invalidate() {
	s.log.Warn("credential rejected by server, logging out", zap.String("source", s.Source()))
	if err := s.Logout(context.Background()); err != nil {
		s.log.Warn("logout after rejection failed", zap.Error(err))
	}

	s.mu.RLock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
