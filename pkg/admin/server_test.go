// Copyright 2024-2026 Aiku AI

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiku/james-sync/pkg/connector"
	"github.com/aiku/james-sync/pkg/syncer"
)

type fakeDomains struct {
	list []string
	set  bool
}

func (f *fakeDomains) ReloadDomains(domains []string) (int, int) {
	added, removed := len(domains), len(f.list)
	f.list, f.set = domains, true
	return added, removed
}

func (f *fakeDomains) DomainCount() int {
	if f.list == nil {
		return -1
	}
	return len(f.list)
}

type fakeRunner struct {
	kinds []connector.Kind
	err   error
}

func (f *fakeRunner) Run(_ context.Context, kinds ...connector.Kind) ([]*syncer.Result, error) {
	f.kinds = kinds
	if f.err != nil {
		return nil, f.err
	}
	results := make([]*syncer.Result, 0, len(kinds))
	for _, k := range kinds {
		results = append(results, &syncer.Result{Kind: k, Created: 1})
	}
	return results, nil
}

func newTestServer(domains *fakeDomains, runner *fakeRunner, reload ReloadFunc) *Server {
	if reload == nil {
		reload = func() (int, int, error) { return 0, 0, nil }
	}
	return New(domains, runner, reload, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeCounts(t *testing.T, w *httptest.ResponseRecorder) map[string]int {
	t.Helper()
	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	t.Parallel()
	w := do(t, newTestServer(&fakeDomains{}, &fakeRunner{}, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	w := do(t, newTestServer(&fakeDomains{}, &fakeRunner{}, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestReloadDomains(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		body      string
		wantList  []string
		wantTotal int
	}{
		{name: "list", body: `["james.org","linagora.com"]`, wantList: []string{"james.org", "linagora.com"}, wantTotal: 2},
		{name: "empty list allows nothing", body: `[]`, wantList: []string{}, wantTotal: 0},
		{name: "null allows every domain", body: `null`, wantList: nil, wantTotal: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			domains := &fakeDomains{list: []string{"old.org"}}
			w := do(t, newTestServer(domains, &fakeRunner{}, nil), http.MethodPost, "/api/reload-domains", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.wantList, domains.list)
			resp := decodeCounts(t, w)
			assert.Equal(t, tt.wantTotal, resp["total"])
			assert.Equal(t, 1, resp["removed"])
		})
	}
}

func TestReloadDomains_EmptyBodyReloadsConfig(t *testing.T) {
	t.Parallel()
	domains := &fakeDomains{}
	called := false
	s := newTestServer(domains, &fakeRunner{}, func() (int, int, error) {
		called = true
		return 3, 1, nil
	})
	w := do(t, s, http.MethodPost, "/api/reload-domains", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
	assert.False(t, domains.set)
	resp := decodeCounts(t, w)
	assert.Equal(t, 3, resp["added"])
	assert.Equal(t, 1, resp["removed"])
}

func TestReloadDomains_Errors(t *testing.T) {
	t.Parallel()
	s := newTestServer(&fakeDomains{}, &fakeRunner{}, func() (int, int, error) {
		return 0, 0, errors.New("unreadable")
	})

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/reload-domains", `{"a":1}`).Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, s, http.MethodPost, "/api/reload-domains", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/api/reload-domains", "").Code)

	huge := `["` + strings.Repeat("a", maxReloadBodySize) + `"]`
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(t, s, http.MethodPost, "/api/reload-domains", huge).Code)
}

func TestSync(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	w := do(t, newTestServer(&fakeDomains{}, runner, nil), http.MethodPost, "/api/sync?kind=quota&kind=users", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []connector.Kind{connector.KindUsers, connector.KindQuota}, runner.kinds)

	var resp syncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Results[0].Created)
	assert.Empty(t, resp.Error)
}

func TestSync_Errors(t *testing.T) {
	t.Parallel()
	s := newTestServer(&fakeDomains{}, &fakeRunner{err: syncer.ErrRunInProgress}, nil)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/sync?kind=mailboxes", "").Code)
	w := do(t, s, http.MethodPost, "/api/sync", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already in progress")

	s = newTestServer(&fakeDomains{}, &fakeRunner{err: connector.ErrCommunication}, nil)
	assert.Equal(t, http.StatusInternalServerError, do(t, s, http.MethodPost, "/api/sync", "").Code)
}

func TestWatchConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	var mu sync.Mutex
	changes := 0
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, path, func() {
			mu.Lock()
			changes++
			mu.Unlock()
		}, zerolog.Nop())
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("a: 2\n"), 0o600)
		mu.Lock()
		defer mu.Unlock()
		return changes > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchConfig_Replaced(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	var mu sync.Mutex
	changes := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = WatchConfig(ctx, path, func() {
			mu.Lock()
			changes++
			mu.Unlock()
		}, zerolog.Nop())
	}()

	// Renaming over the watched file does not write it, only the re-add
	// after the replacement reports the change.
	next := filepath.Join(dir, "config.yaml.new")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(next, []byte("a: 2\n"), 0o600)
		_ = os.Rename(next, path)
		mu.Lock()
		defer mu.Unlock()
		return changes > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchConfig_MissingFile(t *testing.T) {
	t.Parallel()
	err := WatchConfig(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), func() {}, zerolog.Nop())
	require.Error(t, err)
}
