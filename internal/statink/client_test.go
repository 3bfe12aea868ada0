package statink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, stagesStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(weaponsPath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"key":"sshooter","main":"sshooter","sub":{"key":"kyubanbomb"},"special":{"key":"ultrashot"},"reskin_of":null},
			{"key":"heroshooter_replica","main":"sshooter","sub":{"key":"kyubanbomb"},"special":{"key":"ultrashot"},"reskin_of":{"key":"sshooter"}}
		]`))
	})
	mux.HandleFunc(abilitiesPath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"key":"ink_saver_main"}]`))
	})
	mux.HandleFunc(stagesPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(stagesStatus)
		_, _ = w.Write([]byte(`[{"key":"masaba"}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadCatalog(t *testing.T) {
	srv := newServer(t, http.StatusOK)

	c, err := NewClient(srv.URL, http.DefaultTransport)
	require.NoError(t, err)

	cat, err := c.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, cat.IsLoadout("heroshooter_replica"))
	assert.Equal(t, "sshooter", cat.Canonical("heroshooter_replica"))
	assert.True(t, cat.IsAbility("ink_saver_main"))
	assert.True(t, cat.IsStage("masaba"))
	assert.Empty(t, cat.ReskinProblems())
}

func TestLoadCatalog_Errors(t *testing.T) {
	srv := newServer(t, http.StatusServiceUnavailable)

	c, err := NewClient(srv.URL, http.DefaultTransport)
	require.NoError(t, err)

	_, err = c.LoadCatalog(context.Background())
	assert.ErrorContains(t, err, "unexpected status 503")

	_, err = NewClient("stat.ink", http.DefaultTransport)
	assert.Error(t, err)
}
