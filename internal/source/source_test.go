package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/badgebind/internal/datadoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ResolvesAgainstBase(t *testing.T) {
	s, err := New("./data/data.yml", "http://badge.local/site/")
	require.NoError(t, err)
	assert.True(t, s.Remote())
	assert.Equal(t, "http://badge.local/site/data/data.yml", s.Location())

	s, err = New("./data/data.yml", "/srv/badge")
	require.NoError(t, err)
	assert.False(t, s.Remote())
	assert.Equal(t, filepath.Join("/srv/badge", "data", "data.yml"), s.Location())

	s, err = New("https://cdn.local/d.json", "/srv/badge")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.local/d.json", s.Location())

	_, err = New("", ".")
	assert.Error(t, err)
}

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "data.yml"), []byte("user_name: alice\n"), 0o644))

	s, err := New("./data/data.yml", dir)
	require.NoError(t, err)

	doc, err := s.Fetch(context.Background())
	require.NoError(t, err)
	v, ok := datadoc.Resolve(doc, "user_name")
	require.True(t, ok)
	assert.Equal(t, "alice", v.String())
}

func TestFetch_MissingFile(t *testing.T) {
	s, err := New("missing.yml", t.TempDir())
	require.NoError(t, err)

	_, err = s.Fetch(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTransport, fe.Kind)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFetch_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"profile": {"name": "alice", "rank": "Hacker"}}`))
		case "/api/profile":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"rank": "Guru"}`))
		case "/broken.json":
			w.Write([]byte(`{"profile": `))
		default:
			http.Error(w, "no such file", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s, err := New("/data.json", srv.URL)
	require.NoError(t, err)
	doc, err := s.Fetch(context.Background())
	require.NoError(t, err)
	v, ok := datadoc.Resolve(doc, "profile.rank")
	require.True(t, ok)
	assert.Equal(t, "Hacker", v.String())

	s, err = New(srv.URL+"/api/profile?id=1", "")
	require.NoError(t, err)
	doc, err = s.Fetch(context.Background())
	require.NoError(t, err)
	v, ok = datadoc.Resolve(doc, "rank")
	require.True(t, ok)
	assert.Equal(t, "Guru", v.String())

	s, err = New("/nope.yml", srv.URL)
	require.NoError(t, err)
	_, err = s.Fetch(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Contains(t, err.Error(), "no such file")

	s, err = New("/broken.json", srv.URL)
	require.NoError(t, err)
	_, err = s.Fetch(context.Background())
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindParse, fe.Kind)
}

func TestFetch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := New("/data.yml", url)
	require.NoError(t, err)
	_, err = s.Fetch(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTransport, fe.Kind)
}
