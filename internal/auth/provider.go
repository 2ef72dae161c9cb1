// Package auth holds the bearer credential used by the API client and the
// ordered chain of places it is persisted.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/profsim/profsim/internal/store"
)

// ErrReadOnly is returned by providers that cannot persist a credential.
var ErrReadOnly = errors.New("credential provider is read-only")

// DefaultTokenTTL mirrors the lifetime of the web client's token cookie.
const DefaultTokenTTL = 30 * time.Minute

// Provider is one place a bearer token can be loaded from and saved to.
// Load returns "" when the provider holds no usable token.
type Provider interface {
	Name() string
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// EnvProvider reads a token from an environment variable. It never writes.
type EnvProvider struct {
	Var string
}

// NewEnvProvider returns a provider reading the given variable, PROFSIM_TOKEN
// when name is empty.
func NewEnvProvider(name string) *EnvProvider {
	if name == "" {
		name = "PROFSIM_TOKEN"
	}
	return &EnvProvider{Var: name}
}

func (p *EnvProvider) Name() string { return "env:" + p.Var }

func (p *EnvProvider) Load(context.Context) (string, error) {
	return os.Getenv(p.Var), nil
}

func (p *EnvProvider) Save(context.Context, string) error { return ErrReadOnly }

func (p *EnvProvider) Clear(context.Context) error { return nil }

// DefaultSlot is the credential slot used by StoreProvider.
const DefaultSlot = "default"

// StoreProvider keeps the token in the SQLite credential table.
type StoreProvider struct {
	repo store.CredentialRepo
	slot string
}

// NewStoreProvider returns a provider over repo using slot (DefaultSlot when
// empty).
func NewStoreProvider(repo store.CredentialRepo, slot string) *StoreProvider {
	if slot == "" {
		slot = DefaultSlot
	}
	return &StoreProvider{repo: repo, slot: slot}
}

func (p *StoreProvider) Name() string { return "store:" + p.slot }

func (p *StoreProvider) Load(ctx context.Context) (string, error) {
	cred, err := p.repo.Load(ctx, p.slot)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", nil
	}
	return cred.Token, nil
}

func (p *StoreProvider) Save(ctx context.Context, token string) error {
	return p.repo.Save(ctx, p.slot, store.Credential{Token: token, SavedAt: time.Now()})
}

func (p *StoreProvider) Clear(ctx context.Context) error {
	return p.repo.Delete(ctx, p.slot)
}

// FileProvider keeps the token in a JSON file that expires after TTL.
type FileProvider struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

type tokenFile struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// NewFileProvider returns a provider writing to path. A non-positive ttl
// means DefaultTokenTTL.
func NewFileProvider(path string, ttl time.Duration) *FileProvider {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &FileProvider{path: path, ttl: ttl, now: time.Now}
}

func (p *FileProvider) Name() string { return "file:" + p.path }

// Load returns the stored token unless it is older than the TTL, in which
// case the file is removed.
func (p *FileProvider) Load(context.Context) (string, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("parse token file: %w", err)
	}
	if p.now().Sub(tf.SavedAt) > p.ttl {
		_ = os.Remove(p.path)
		return "", nil
	}
	return tf.Token, nil
}

func (p *FileProvider) Save(_ context.Context, token string) error {
	data, err := json.Marshal(tokenFile{Token: token, SavedAt: p.now().UTC()})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (p *FileProvider) Clear(context.Context) error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
