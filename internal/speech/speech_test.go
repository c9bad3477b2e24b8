package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	dur float64
	err error
}

func (p fakeProbe) Duration(ctx context.Context, path string) (float64, error) {
	return p.dur, p.err
}

func TestSplitText(t *testing.T) {
	assert.Nil(t, SplitText("   ", MaxChunkChars))
	assert.Equal(t, []string{"hello world"}, SplitText("hello   world", MaxChunkChars))

	long := strings.Repeat("word ", 50)
	chunks := SplitText(long, MaxChunkChars)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), MaxChunkChars)
	}
	assert.Equal(t, strings.TrimSpace(long), strings.Join(chunks, " "))

	assert.Equal(t, []string{"abcd", "ef", "gh"}, SplitText("abcdef gh", 4))
}

func TestSynthesizeAppendsChunks(t *testing.T) {
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "en", q.Get("tl"))
		assert.Equal(t, "tw-ob", q.Get("client"))
		mu.Lock()
		got = append(got, q.Get("idx"))
		mu.Unlock()
		w.Write([]byte("chunk" + q.Get("idx") + ";"))
	}))
	defer srv.Close()

	g := &GoogleTTS{BaseURL: srv.URL, Language: "en", Probe: fakeProbe{dur: 2.5}}
	path := filepath.Join(t.TempDir(), "audio.mp3")

	asset, err := g.Synthesize(context.Background(), strings.Repeat("wave ", 30), path)
	require.NoError(t, err)
	assert.Equal(t, path, asset.Path)
	assert.Equal(t, 2.5, asset.Duration)
	assert.Equal(t, []string{"0", "1"}, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "chunk0;chunk1;", string(data))
}

func TestSynthesizeEmptyText(t *testing.T) {
	g := &GoogleTTS{BaseURL: "http://127.0.0.1:1", Language: "en"}
	_, err := g.Synthesize(context.Background(), "  ", filepath.Join(t.TempDir(), "a.mp3"))
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestSynthesizeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := &GoogleTTS{BaseURL: srv.URL, Language: "en", Probe: fakeProbe{dur: 1}}
	_, err := g.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "a.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSynthesizeProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not really mp3"))
	}))
	defer srv.Close()

	probeErr := errors.New("ffprobe missing")
	g := &GoogleTTS{BaseURL: srv.URL, Language: "en", Probe: fakeProbe{err: probeErr}}
	_, err := g.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "a.mp3"))
	assert.ErrorIs(t, err, probeErr)
}

func TestAudioDurationRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mp3")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	_, err := AudioDuration(path)
	assert.Error(t, err)
}
