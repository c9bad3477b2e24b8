package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/topic2video/internal/config"
	"github.com/ivlev/topic2video/internal/director"
	"github.com/ivlev/topic2video/internal/narration"
	"github.com/ivlev/topic2video/internal/speech"
	"github.com/ivlev/topic2video/internal/stock"
	"github.com/ivlev/topic2video/internal/video"
)

var (
	ErrNoScenes = video.ErrNoScenes
	ErrRender   = errors.New("render failed")
)

type State int

const (
	StateInit State = iota
	StateNarrationGenerated
	StateScenesResolving
	StateConcatenated
	StateRendered
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateNarrationGenerated:
		return "narration_generated"
	case StateScenesResolving:
		return "scenes_resolving"
	case StateConcatenated:
		return "concatenated"
	case StateRendered:
		return "rendered"
	case StateCleanedUp:
		return "cleaned_up"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Artifact describes a finished video.
type Artifact struct {
	RunID      string
	Path       string
	URL        string
	Duration   float64
	Width      int
	Height     int
	Scenes     int
	Storyboard *director.Storyboard
}

// Collaborators are the external services a project talks to. Any of them
// may be nil; the pipeline then takes the corresponding fallback.
type Collaborators struct {
	Narrator narration.Generator
	Speech   speech.Synthesizer
	Stock    stock.FootageSource
	Probe    Prober
	Cards    CardRenderer
	Encoder  video.VideoEncoder
}

type Project struct {
	Config *config.Config
	Collaborators
	Director *director.Director
	Logger   *slog.Logger

	// OnState, if set, is called on every state transition.
	OnState func(runID string, s State)

	newRunID func() string
}

func NewProject(cfg *config.Config, c Collaborators) *Project {
	return &Project{
		Config:        cfg,
		Collaborators: c,
		Director:      director.NewDirector(),
		Logger:        slog.Default(),
		newRunID:      uuid.NewString,
	}
}

// BuildVideo runs the whole pipeline for one topic. An empty outputPath
// puts the result at <static_dir>/<run_id>.mp4.
func (p *Project) BuildVideo(ctx context.Context, topic, outputPath string) (*Artifact, error) {
	startTime := time.Now()
	runID := p.runID()
	log := p.logger().With("run_id", runID)
	p.setState(log, runID, StateInit)

	if outputPath == "" {
		outputPath = filepath.Join(p.Config.Server.StaticDir, runID+".mp4")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runDir, err := os.MkdirTemp(p.Config.TempDir, "topic2video_"+runID+"_")
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	temp := NewTempFiles(runDir)
	defer func() {
		if err := temp.Cleanup(); err != nil {
			log.Warn("Cleanup incomplete", "error", err)
		}
		p.setState(log, runID, StateCleanedUp)
	}()

	sb, err := p.Plan(ctx, topic, runID)
	if err != nil {
		return nil, err
	}
	p.setState(log, runID, StateNarrationGenerated)

	p.setState(log, runID, StateScenesResolving)
	scenes, err := p.resolveScenes(ctx, runID, temp, sb.Scenes, log)
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}
	p.setState(log, runID, StateConcatenated)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Encoder == nil {
		return nil, fmt.Errorf("%w: no encoder configured", ErrRender)
	}
	if err := p.Encoder.Render(ctx, scenes, outputPath, p.Config.Render()); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	p.setState(log, runID, StateRendered)

	annotate(sb, scenes)
	art := &Artifact{
		RunID:      runID,
		Path:       outputPath,
		Duration:   video.TotalDuration(scenes),
		Width:      p.Config.Video.Width,
		Height:     p.Config.Video.Height,
		Scenes:     len(scenes),
		Storyboard: sb,
	}
	log.Info("Video ready", "path", outputPath, "duration", art.Duration, "scenes", art.Scenes, "elapsed", time.Since(startTime).Round(time.Millisecond))
	return art, nil
}

// Plan generates narration (or placeholders) and lays out the scenes.
// Only cancellation of ctx makes it fail.
func (p *Project) Plan(ctx context.Context, topic, runID string) (*director.Storyboard, error) {
	lines := p.narrate(ctx, topic)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoScenes
	}
	return p.director().Storyboard(topic, runID, lines)
}

func (p *Project) narrate(ctx context.Context, topic string) []string {
	n := p.Config.Narration
	if p.Narrator == nil {
		return narration.Placeholders(topic, n.Lines)
	}

	nctx := ctx
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	lines, err := p.Narrator.GenerateNarrations(nctx, topic, n.Lines, n.MinWords, n.MaxWords)
	if err == nil && len(lines) == 0 {
		err = errors.New("empty narration")
	}
	if err != nil {
		p.logger().Warn("Narration unavailable, using placeholders", "topic", topic, "error", err)
		return narration.Placeholders(topic, n.Lines)
	}
	return lines
}

// resolveScenes fans scene resolution out over the worker limit and keeps
// results in scene order.
func (p *Project) resolveScenes(ctx context.Context, runID string, temp *TempFiles, planned []director.Scene, log *slog.Logger) ([]video.RenderedScene, error) {
	r := &Resolver{
		RunID:   runID,
		Temp:    temp,
		Video:   p.Config.Video,
		Footage: p.Config.Footage,
		Speech:  p.Speech,
		Stock:   p.Stock,
		Probe:   p.Probe,
		Cards:   p.Cards,
		Logger:  log,
	}

	results := make([]video.RenderedScene, len(planned))

	var g errgroup.Group
	if p.Config.Workers > 0 {
		g.SetLimit(p.Config.Workers)
	}
	for i, sc := range planned {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = r.Resolve(ctx, sc)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func annotate(sb *director.Storyboard, scenes []video.RenderedScene) {
	for i := range sb.Scenes {
		if i >= len(scenes) {
			break
		}
		sb.Scenes[i].Visual = scenes[i].Visual.Kind.String()
		sb.Scenes[i].Duration = scenes[i].Duration
		sb.Scenes[i].Fallback = scenes[i].FallbackReason
	}
}

func (p *Project) setState(log *slog.Logger, runID string, s State) {
	log.Info("Run state", "state", s.String())
	if p.OnState != nil {
		p.OnState(runID, s)
	}
}

func (p *Project) runID() string {
	if p.newRunID != nil {
		return p.newRunID()
	}
	return uuid.NewString()
}

func (p *Project) director() *director.Director {
	if p.Director != nil {
		return p.Director
	}
	return director.NewDirector()
}

func (p *Project) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
