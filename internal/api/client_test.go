package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	token       string
	invalidated int
}

func (f *fakeCreds) Token() string { return f.token }

func (f *fakeCreds) Invalidate() {
	f.invalidated++
	f.token = ""
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond, Multiplier: 2}
}

func newTestClient(t *testing.T, h http.Handler, creds Credentials) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", creds, WithRetry(fastRetry()))
}

func TestClient_SendsBearerAndDecodes(t *testing.T) {
	var gotAuth, gotAccept string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		assert.Equal(t, "/api/professions/", r.URL.Path)
		io.WriteString(w, `[{"id":1,"name":"Аналитик","category":"data, it ,","price":990,"created_at":"2025-01-02T10:00:00.123456"}]`)
	})
	c := newTestClient(t, h, &fakeCreds{token: "tok"})

	profs, err := c.Professions(context.Background())
	require.NoError(t, err)
	require.Len(t, profs, 1)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, []string{"data", "it"}, profs[0].Tags())
	require.NotNil(t, profs[0].CreatedAt)
	assert.Equal(t, time.UTC, profs[0].CreatedAt.Location())
	assert.Equal(t, 10, profs[0].CreatedAt.Hour())
}

func TestClient_UnauthorizedInvalidatesCredentials(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	})
	creds := &fakeCreds{token: "expired"}
	c := newTestClient(t, h, creds)

	_, err := c.UserProgress(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Could not validate credentials", serr.Detail)
	assert.Equal(t, 1, creds.invalidated)
}

func TestClient_LoginFailureDoesNotInvalidateWithoutToken(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"Incorrect email or password"}`)
	})
	creds := &fakeCreds{}
	c := newTestClient(t, h, creds)

	_, err := c.Login(context.Background(), "a@b.c", "nope")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, creds.invalidated)
}

func TestClient_LoginPostsCredentials(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"email": "a@b.c", "password": "pw"}, body)
		io.WriteString(w, `{"access_token":"jwt","token_type":"bearer"}`)
	})
	c := newTestClient(t, h, nil)

	tok, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok)
}

func TestClient_RetriesTransientGETs(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"profession_id":4,"total_attempts":1,"attempts":[{"profession_id":4,"attempt_number":1,"status":"in_progress","current_task_order":2}]}`)
	})
	c := newTestClient(t, h, nil)

	hist, err := c.ProgressHistory(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, hist.TotalAttempts)

	a, ok := hist.Attempt(1)
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, a.Status)
	_, ok = hist.Attempt(2)
	assert.False(t, ok)
}

func TestClient_DoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name   string
		method string
		call   func(c *Client) error
		status int
	}{
		{"GET not found", http.MethodGet, func(c *Client) error { _, err := c.Profession(context.Background(), 9); return err }, http.StatusNotFound},
		{"POST server error", http.MethodPost, func(c *Client) error { _, err := c.RestartProfession(context.Background(), 9); return err }, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				assert.Equal(t, tt.method, r.Method)
				w.WriteHeader(tt.status)
			})
			c := newTestClient(t, h, nil)

			err := tt.call(c)
			var serr *StatusError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.status, serr.Code)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClient_RestartSurfacesDetail(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"Достигнут лимит попыток прохождения профессии (3)"}`)
	})
	c := newTestClient(t, h, nil)

	_, err := c.RestartProfession(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "лимит попыток")
}

func TestClient_StreamOpensEventStream(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/12/submit", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ABC", body["answer"])
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"kind\":\"token\",\"token\":\"x\"}\n\n")
	})
	c := newTestClient(t, h, &fakeCreds{token: "t"})

	body, err := c.StreamSubmitAnswer(context.Background(), 12, "ABC")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"kind\":\"token\",\"token\":\"x\"}\n\n", string(data))
}

func TestClient_StreamNotFoundBeforeStreaming(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"No more tasks"}`)
	})
	c := newTestClient(t, h, nil)

	_, err := c.StreamCurrentTask(context.Background(), 3)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load(), "streams are never retried")
}

func TestParseDetail(t *testing.T) {
	assert.Equal(t, "boom", parseDetail([]byte(`{"detail":"boom"}`)))
	assert.Equal(t, `[{"loc":["body","email"],"msg":"bad"}]`, parseDetail([]byte(`{"detail":[{"loc":["body","email"], "msg":"bad"}]}`)))
	assert.Equal(t, "plain text", parseDetail([]byte("plain text\n")))
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(&RequestError{Err: errors.New("connection refused")}))
	assert.True(t, shouldRetry(&StatusError{Code: 503}))
	assert.True(t, shouldRetry(&StatusError{Code: 429}))
	assert.False(t, shouldRetry(&StatusError{Code: 400}))
	assert.False(t, shouldRetry(&RequestError{Err: context.Canceled}))
	assert.False(t, shouldRetry(errors.New("decode: unexpected EOF")))
}

func TestCheckCompatibility(t *testing.T) {
	assert.NoError(t, CheckCompatibility("1.0.0"))
	assert.NoError(t, CheckCompatibility("v1.4.2"))

	var incompat *IncompatibleServerError
	assert.ErrorAs(t, CheckCompatibility("0.9.0"), &incompat)
	assert.ErrorAs(t, CheckCompatibility("2.0.0"), &incompat)
	assert.Error(t, CheckCompatibility("latest"))
	assert.Error(t, CheckCompatibility(""))
}

func TestTimestamp_Unmarshal(t *testing.T) {
	var v struct {
		A *Timestamp `json:"a"`
		B *Timestamp `json:"b"`
		C *Timestamp `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2025-03-04T05:06:07Z","b":"2025-03-04T05:06:07","c":null}`), &v))
	require.NotNil(t, v.A)
	require.NotNil(t, v.B)
	assert.Nil(t, v.C)
	assert.True(t, v.A.Equal(v.B.Time))

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestClient_AttemptFillsNumberFromPath(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/professions/1/progress/2", r.URL.Path)
		io.WriteString(w, `{"profession_id":0,"status":"completed","current_task_order":5,"final_report":"THE REPORT"}`)
	})
	c := newTestClient(t, h, nil)

	a, err := c.Attempt(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, a.AttemptNumber)
	assert.Equal(t, 1, a.ProfessionID)
	assert.Equal(t, "THE REPORT", a.FinalReport)
}

func TestClient_ProgressHistoryOldestFirst(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"profession_id":4,"total_attempts":3,"attempts":[
			{"profession_id":4,"attempt_number":3,"status":"in_progress"},
			{"profession_id":4,"attempt_number":2,"status":"completed"},
			{"profession_id":4,"attempt_number":1,"status":"completed"}]}`)
	})
	c := newTestClient(t, h, nil)

	hist, err := c.ProgressHistory(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, hist.Attempts, 3)
	for i, a := range hist.Attempts {
		assert.Equal(t, i+1, a.AttemptNumber)
	}
}
