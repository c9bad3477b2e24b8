package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/topic2video/internal/config"
	"github.com/ivlev/topic2video/internal/stock"
	"github.com/ivlev/topic2video/internal/video"
)

var sunsetLines = []string{
	"Golden light melts into waves",
	"Palm trees sway in warm breeze",
	"Footprints fade along the shore",
	"The sky blazes orange and pink",
}

type harness struct {
	project *Project
	enc     *fakeEncoder
	speech  *fakeSpeech
	tempDir string
	outDir  string

	mu     sync.Mutex
	states []State
}

func newHarness(t *testing.T, c Collaborators) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	cfg.Server.StaticDir = filepath.Join(t.TempDir(), "static")

	h := &harness{tempDir: cfg.TempDir, outDir: cfg.Server.StaticDir}
	if c.Encoder == nil {
		h.enc = &fakeEncoder{}
		c.Encoder = h.enc
	}
	if s, ok := c.Speech.(*fakeSpeech); ok {
		h.speech = s
	}

	h.project = NewProject(cfg, c)
	h.project.newRunID = func() string { return "run1" }
	h.project.OnState = func(runID string, s State) {
		h.mu.Lock()
		h.states = append(h.states, s)
		h.mu.Unlock()
	}
	return h
}

// assertNoLeftovers checks that the run left nothing in the temp root.
func (h *harness) assertNoLeftovers(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files left behind")
}

func TestBuildVideoAllCollaboratorsSucceed(t *testing.T) {
	sp := &fakeSpeech{durs: map[string]float64{
		sunsetLines[0]: 2.1, sunsetLines[1]: 2.2, sunsetLines[2]: 2.3, sunsetLines[3]: 2.4,
	}}
	h := newHarness(t, Collaborators{
		Narrator: &fakeNarrator{lines: sunsetLines},
		Speech:   sp,
		Stock:    &fakeStock{},
		Probe:    &fakeProbe{w: 1920, h: 1080, dur: 12},
		Cards:    &fakeCards{},
	})

	art, err := h.project.BuildVideo(context.Background(), "sunset beach", "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(h.outDir, "run1.mp4"), art.Path)
	assert.FileExists(t, art.Path)
	assert.Equal(t, 4, art.Scenes)
	assert.InDelta(t, 9.0, art.Duration, 1e-9)
	assert.Equal(t, 1080, art.Width)
	assert.Equal(t, 1920, art.Height)

	require.Len(t, h.enc.scenes, 4)
	for i, s := range h.enc.scenes {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, video.KindFootage, s.Visual.Kind)
		require.True(t, s.HasAudio())
		assert.Equal(t, s.Audio.Duration, s.Duration)
		w, hh := s.Plan.Size()
		assert.Equal(t, 1080, w)
		assert.Equal(t, 1920, hh)
		assert.Empty(t, s.FallbackReason)
	}
	assert.Empty(t, h.enc.missing, "intermediate files must exist while rendering")

	assert.Equal(t, "sunset beach outdoors", art.Storyboard.Scenes[1].SearchQuery)
	assert.Equal(t, "footage", art.Storyboard.Scenes[1].Visual)

	assert.Equal(t, []State{StateInit, StateNarrationGenerated, StateScenesResolving, StateConcatenated, StateRendered, StateCleanedUp}, h.states)
	h.assertNoLeftovers(t)
}

func TestBuildVideoNoFootageNoSpeech(t *testing.T) {
	h := newHarness(t, Collaborators{
		Narrator: &fakeNarrator{lines: sunsetLines},
		Speech:   &fakeSpeech{err: errUpstream},
		Stock:    &fakeStock{searchErr: stock.ErrNoResults},
		Probe:    &fakeProbe{w: 1920, h: 1080},
		Cards:    &fakeCards{},
	})

	art, err := h.project.BuildVideo(context.Background(), "sunset beach", "")
	require.NoError(t, err)
	assert.InDelta(t, 12.0, art.Duration, 1e-9)

	for _, s := range h.enc.scenes {
		assert.Equal(t, video.KindStill, s.Visual.Kind)
		assert.False(t, s.HasAudio())
		assert.Equal(t, 3.0, s.Duration)
		assert.Equal(t, 3.0, s.Visual.Duration)
		assert.True(t, s.Plan.Identity())
		assert.Contains(t, s.FallbackReason, "no videos found")
	}
	h.assertNoLeftovers(t)
}

func TestBuildVideoNoFootageWithSpeech(t *testing.T) {
	h := newHarness(t, Collaborators{
		Narrator: &fakeNarrator{lines: sunsetLines},
		Speech:   &fakeSpeech{base: 1.75},
		Stock:    &fakeStock{searchErr: stock.ErrNoResults},
		Probe:    &fakeProbe{},
		Cards:    &fakeCards{},
	})

	art, err := h.project.BuildVideo(context.Background(), "sunset beach", "")
	require.NoError(t, err)
	assert.InDelta(t, 7.0, art.Duration, 1e-9)
	for _, s := range h.enc.scenes {
		assert.Equal(t, video.KindStill, s.Visual.Kind)
		assert.Equal(t, 1.75, s.Duration)
		assert.Equal(t, 1.75, s.Visual.Duration)
	}
}

func TestBuildVideoNarrationFailureUsesPlaceholders(t *testing.T) {
	sp := &fakeSpeech{base: 2}
	h := newHarness(t, Collaborators{
		Narrator: &fakeNarrator{err: errUpstream},
		Speech:   sp,
		Stock:    &fakeStock{},
		Probe:    &fakeProbe{w: 720, h: 1280, dur: 5},
		Cards:    &fakeCards{},
	})

	art, err := h.project.BuildVideo(context.Background(), "sunset beach", "")
	require.NoError(t, err)

	want := []string{"sunset beach scene 1", "sunset beach scene 2", "sunset beach scene 3", "sunset beach scene 4"}
	var got []string
	for _, s := range art.Storyboard.Scenes {
		got = append(got, s.NarrationText)
	}
	assert.Equal(t, want, got)
	assert.ElementsMatch(t, want, sp.texts)
	assert.InDelta(t, 8.0, art.Duration, 1e-9)
}

func TestBuildVideoRenderFailureCleansUp(t *testing.T) {
	enc := &fakeEncoder{err: errors.New("ffmpeg exploded")}
	h := newHarness(t, Collaborators{
		Narrator: &fakeNarrator{lines: sunsetLines},
		Speech:   &fakeSpeech{base: 2},
		Stock:    &fakeStock{},
		Probe:    &fakeProbe{w: 1920, h: 1080, dur: 4},
		Cards:    &fakeCards{},
		Encoder:  enc,
	})

	art, err := h.project.BuildVideo(context.Background(), "sunset beach", "")
	assert.Nil(t, art)
	assert.ErrorIs(t, err, ErrRender)
	assert.Contains(t, err.Error(), "ffmpeg exploded")
	assert.Equal(t, 1, enc.calls)
	assert.Empty(t, enc.missing)

	h.assertNoLeftovers(t)
	assert.Equal(t, StateCleanedUp, h.states[len(h.states)-1])
	assert.NotContains(t, h.states, StateRendered)
}

func TestBuildVideoPartialDownloadsRemoved(t *testing.T) {
	h := newHarness(t, Collaborators{
		Narrator: &fakeNarrator{lines: sunsetLines},
		Speech:   &fakeSpeech{base: 2},
		Stock:    &fakeStock{downloadErr: &stock.StatusError{Op: "download", StatusCode: 503}},
		Probe:    &fakeProbe{w: 1920, h: 1080},
		Cards:    &fakeCards{},
	})

	_, err := h.project.BuildVideo(context.Background(), "sunset beach", "")
	require.NoError(t, err)
	for _, s := range h.enc.scenes {
		assert.Equal(t, video.KindStill, s.Visual.Kind)
		assert.Contains(t, s.FallbackReason, "503")
	}
	h.assertNoLeftovers(t)
}

func TestBuildVideoZeroScenes(t *testing.T) {
	h := newHarness(t, Collaborators{})
	h.project.Config.Narration.Lines = 0

	_, err := h.project.BuildVideo(context.Background(), "empty", "")
	assert.ErrorIs(t, err, ErrNoScenes)
	assert.Equal(t, 0, h.enc.calls)
	assert.NoFileExists(t, filepath.Join(h.outDir, "run1.mp4"))
	h.assertNoLeftovers(t)
}

func TestBuildVideoCancelled(t *testing.T) {
	h := newHarness(t, Collaborators{
		Narrator: &fakeNarrator{lines: sunsetLines},
		Speech:   &fakeSpeech{base: 2},
		Cards:    &fakeCards{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.project.BuildVideo(ctx, "sunset beach", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.enc.calls)
	h.assertNoLeftovers(t)
}

func TestBuildVideoWithoutCollaborators(t *testing.T) {
	h := newHarness(t, Collaborators{})

	art, err := h.project.BuildVideo(context.Background(), "quiet", filepath.Join(t.TempDir(), "out", "final.mp4"))
	require.NoError(t, err)
	assert.InDelta(t, 12.0, art.Duration, 1e-9)
	for _, s := range h.enc.scenes {
		assert.Equal(t, video.KindBlank, s.Visual.Kind)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "scenes_resolving", StateScenesResolving.String())
	assert.Equal(t, "state(42)", State(42).String())
}
