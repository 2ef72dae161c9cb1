package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/profsim/profsim/internal/store"
)

// memProvider is an in-memory Provider for chain tests.
type memProvider struct {
	name    string
	token   string
	loadErr error
	saveErr error
	cleared int
}

func (m *memProvider) Name() string { return m.name }

func (m *memProvider) Load(context.Context) (string, error) { return m.token, m.loadErr }

func (m *memProvider) Save(_ context.Context, token string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *memProvider) Clear(context.Context) error {
	m.cleared++
	m.token = ""
	return nil
}

func TestSession_InitFirstProviderWins(t *testing.T) {
	broken := &memProvider{name: "broken", loadErr: errors.New("disk gone")}
	empty := &memProvider{name: "empty"}
	second := &memProvider{name: "second", token: "tok-2"}
	third := &memProvider{name: "third", token: "tok-3"}

	s := NewSession(zaptest.NewLogger(t), broken, empty, second, third)
	s.Init(context.Background())

	assert.Equal(t, "tok-2", s.Token())
	assert.Equal(t, "second", s.Source())
	assert.True(t, s.Authenticated())
}

func TestSession_LoginSavesToWritableProviders(t *testing.T) {
	t.Setenv("PROFSIM_TEST_TOKEN", "")
	env := NewEnvProvider("PROFSIM_TEST_TOKEN")
	a := &memProvider{name: "a"}
	b := &memProvider{name: "b"}

	s := NewSession(nil, env, a, b)
	require.NoError(t, s.Login(context.Background(), "fresh"))

	assert.Equal(t, "fresh", s.Token())
	assert.Equal(t, "fresh", a.token)
	assert.Equal(t, "fresh", b.token)
}

func TestSession_LoginReportsPersistenceFailure(t *testing.T) {
	bad := &memProvider{name: "bad", saveErr: errors.New("read-only fs")}
	s := NewSession(nil, bad)

	err := s.Login(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save to bad")
	assert.Equal(t, "tok", s.Token(), "token stays usable in memory")

	assert.Error(t, s.Login(context.Background(), ""))
}

func TestSession_InvalidateLogsOutAndNotifies(t *testing.T) {
	p := &memProvider{name: "p", token: "old"}
	s := NewSession(zaptest.NewLogger(t), p)
	s.Init(context.Background())

	var notified int
	s.OnInvalidate(func() { notified++ })
	s.Invalidate()

	assert.False(t, s.Authenticated())
	assert.Empty(t, p.token)
	assert.Equal(t, 1, p.cleared)
	assert.Equal(t, 1, notified)
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("PROFSIM_TOKEN", "from-env")
	p := NewEnvProvider("")

	tok, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
	assert.ErrorIs(t, p.Save(context.Background(), "x"), ErrReadOnly)
	assert.NoError(t, p.Clear(context.Background()))
}

func TestFileProvider_RoundTripAndExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "token.json")
	p := NewFileProvider(path, 0)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	tok, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok, "missing file is not an error")

	require.NoError(t, p.Save(ctx, "abc"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	now = now.Add(29 * time.Minute)
	tok, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	now = now.Add(2 * time.Minute)
	tok, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok, "token older than the TTL is dropped")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, p.Clear(ctx), "clearing a missing file is fine")
}

func TestStoreProvider(t *testing.T) {
	s, err := store.Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := NewStoreProvider(s.CredentialRepo(), "")
	ctx := context.Background()

	tok, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, p.Save(ctx, "stored"))
	tok, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored", tok)

	require.NoError(t, p.Clear(ctx))
	tok, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}
