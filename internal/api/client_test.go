package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusmess/messmate/internal/errs"
	"github.com/campusmess/messmate/internal/tokenstore"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *tokenstore.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := tokenstore.New(filepath.Join(t.TempDir(), "tokens.json"))
	return New(srv.URL, store, zap.NewNop(), opts...), store
}

func TestDo_AttachesFreshBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, store.Set(tokenstore.TokenPair{Access: "tok1", Refresh: "ref1"}))
	require.NoError(t, client.Get(context.Background(), "/mess/", nil))
	assert.Equal(t, "Bearer tok1", gotAuth.Load())

	// The token is read from the store at request time, not cached.
	require.NoError(t, store.Set(tokenstore.TokenPair{Access: "tok2", Refresh: "ref1"}))
	require.NoError(t, client.Get(context.Background(), "/mess/", nil))
	assert.Equal(t, "Bearer tok2", gotAuth.Load())
}

func TestDo_RefreshRetrySuccess(t *testing.T) {
	var resourceHits, refreshHits int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshHits, 1)
		var body struct {
			Refresh string `json:"refresh"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref1", body.Refresh)
		w.Write([]byte(`{"access":"tok2"}`))
	})
	mux.HandleFunc("/booking", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&resourceHits, 1)
		if r.Header.Get("Authorization") != "Bearer tok2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"booking_id":7,"meal_slot":3,"date":"2026-09-01"}]`))
	})

	client, store := newTestClient(t, mux)
	require.NoError(t, store.Set(tokenstore.TokenPair{Access: "tok1", Refresh: "ref1"}))

	var out []struct {
		BookingID int64 `json:"booking_id"`
	}
	require.NoError(t, client.Get(context.Background(), "/booking", &out))

	// Original + exactly one retry, and the caller sees the retry's result.
	assert.EqualValues(t, 2, atomic.LoadInt32(&resourceHits))
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshHits))
	require.Len(t, out, 1)
	assert.EqualValues(t, 7, out[0].BookingID)

	// New access token persisted, refresh token unchanged.
	pair, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "tok2", pair.Access)
	assert.Equal(t, "ref1", pair.Refresh)
}

func TestDo_RefreshFailureClearsTokensAndFiresHook(t *testing.T) {
	var resourceHits int32
	expired := false

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"refresh token expired"}`))
	})
	mux.HandleFunc("/booking", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&resourceHits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, store := newTestClient(t, mux, WithSessionExpiredHook(func() { expired = true }))
	require.NoError(t, store.Set(tokenstore.TokenPair{Access: "tok1", Refresh: "ref1"}))

	err := client.Get(context.Background(), "/booking", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSessionExpired)

	// The original request ran exactly once; no retry after a failed refresh.
	assert.EqualValues(t, 1, atomic.LoadInt32(&resourceHits))
	assert.True(t, expired, "session-expired hook must fire")
	_, ok := store.Get()
	assert.False(t, ok, "token store must be cleared")
}

func TestDo_NoSecondRefreshWhenRetryAlso401(t *testing.T) {
	var resourceHits, refreshHits int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshHits, 1)
		w.Write([]byte(`{"access":"tok2"}`))
	})
	mux.HandleFunc("/booking", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&resourceHits, 1)
		// The server keeps saying 401 no matter what token arrives.
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, store := newTestClient(t, mux)
	require.NoError(t, store.Set(tokenstore.TokenPair{Access: "tok1", Refresh: "ref1"}))

	err := client.Get(context.Background(), "/booking", nil)
	require.Error(t, err)

	// The retried request's 401 is surfaced directly as a status error,
	// not another refresh cycle.
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.EqualValues(t, 2, atomic.LoadInt32(&resourceHits))
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshHits))
}

func TestDo_PassesThroughApplicationErrors(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, `{"message":"date is in the past"}`, errs.ErrInvalidInput},
		{"not found", http.StatusNotFound, `{"detail":"mess not found"}`, errs.ErrNotFound},
		{"conflict", http.StatusConflict, `{"message":"already booked"}`, errs.ErrAlreadyExists},
		{"server error", http.StatusInternalServerError, `{}`, errs.ErrServerUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			require.NoError(t, store.Set(tokenstore.TokenPair{Access: "a", Refresh: "b"}))

			err := client.Post(context.Background(), "/booking", map[string]int{"meal_slot": 1}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.status, se.Code)
			// Tokens untouched by non-401 failures.
			_, ok := store.Get()
			assert.True(t, ok)
		})
	}
}

func TestDo_MalformedSuccessBody(t *testing.T) {
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user_info":`)) // truncated
	}))
	require.NoError(t, store.Set(tokenstore.TokenPair{Access: "a", Refresh: "b"}))

	var out map[string]any
	err := client.Get(context.Background(), "/token/info", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestDo_TransportError(t *testing.T) {
	store := tokenstore.New(filepath.Join(t.TempDir(), "tokens.json"))
	client := New("http://127.0.0.1:1", store, zap.NewNop())

	err := client.Get(context.Background(), "/mess/", nil)
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se), "transport failures are not status errors")
}

func TestLogin_DoesNotTouchStoreOnFailure(t *testing.T) {
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid phone number or password"}`))
	}))

	_, err := client.Login(context.Background(), StudentLoginPath, Credentials{Phone: "9999999999", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestTokenInfo_MissingUserInfoIsError(t *testing.T) {
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	require.NoError(t, store.Set(tokenstore.TokenPair{Access: "a", Refresh: "b"}))

	_, err := client.TokenInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_info")
}
