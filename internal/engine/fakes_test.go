package engine

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ivlev/topic2video/internal/config"
	"github.com/ivlev/topic2video/internal/stock"
	"github.com/ivlev/topic2video/internal/video"
)

type fakeNarrator struct {
	lines []string
	err   error
}

func (f *fakeNarrator) GenerateNarrations(ctx context.Context, topic string, lines, minWords, maxWords int) ([]string, error) {
	return f.lines, f.err
}

// fakeSpeech gives scene n a duration of base + n/10 seconds.
type fakeSpeech struct {
	base float64
	err  error

	mu    sync.Mutex
	texts []string
	durs  map[string]float64
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, path string) (video.AudioAsset, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if err := os.WriteFile(path, []byte("mp3"), 0644); err != nil {
		return video.AudioAsset{}, err
	}
	if f.err != nil {
		return video.AudioAsset{}, f.err
	}
	d := f.base
	if dd, ok := f.durs[text]; ok {
		d = dd
	}
	return video.AudioAsset{Path: path, Duration: d}, nil
}

type fakeStock struct {
	searchErr   error
	downloadErr error
}

func (f *fakeStock) Search(ctx context.Context, query, orientation string) (string, error) {
	if f.searchErr != nil {
		return "", f.searchErr
	}
	return "http://footage/" + query, nil
}

func (f *fakeStock) Download(ctx context.Context, link, path string) error {
	// Частичная загрузка остаётся на диске и при ошибке
	if err := os.WriteFile(path, []byte("mp4"), 0644); err != nil {
		return err
	}
	return f.downloadErr
}

type fakeProbe struct {
	w, h int
	dur  float64
	err  error
}

func (f *fakeProbe) VideoSize(ctx context.Context, path string) (int, int, error) {
	return f.w, f.h, f.err
}

func (f *fakeProbe) Duration(ctx context.Context, path string) (float64, error) {
	return f.dur, f.err
}

type fakeCards struct {
	err error
}

func (f *fakeCards) Render(text string, duration float64, path string) (video.MediaAsset, error) {
	if f.err != nil {
		return video.MediaAsset{}, f.err
	}
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		return video.MediaAsset{}, err
	}
	return video.MediaAsset{Kind: video.KindStill, Path: path, Width: 1080, Height: 1920, Duration: duration}, nil
}

type fakeEncoder struct {
	err error

	calls   int
	scenes  []video.RenderedScene
	missing []string
}

func (f *fakeEncoder) Render(ctx context.Context, scenes []video.RenderedScene, outputPath string, params config.RenderParams) error {
	f.calls++
	f.scenes = scenes
	for _, s := range scenes {
		paths := []string{}
		if s.Visual.Path != "" {
			paths = append(paths, s.Visual.Path)
		}
		if s.HasAudio() {
			paths = append(paths, s.Audio.Path)
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				f.missing = append(f.missing, p)
			}
		}
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("video"), 0644)
}

var errUpstream = errors.New("upstream down")

var _ stock.FootageSource = (*fakeStock)(nil)
