package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ivlev/topic2video/internal/config"
	"github.com/ivlev/topic2video/internal/director"
	"github.com/ivlev/topic2video/internal/effects"
	"github.com/ivlev/topic2video/internal/source"
	"github.com/ivlev/topic2video/internal/speech"
	"github.com/ivlev/topic2video/internal/stock"
	"github.com/ivlev/topic2video/internal/video"
)

// Prober reads stream properties of a downloaded clip.
type Prober interface {
	VideoSize(ctx context.Context, path string) (int, int, error)
	Duration(ctx context.Context, path string) (float64, error)
}

type CardRenderer interface {
	Render(text string, duration float64, path string) (video.MediaAsset, error)
}

// FootageResult is either Found or Unavailable.
type FootageResult interface {
	footageResult()
}

type Found struct {
	Asset video.MediaAsset
}

type Unavailable struct {
	Reason string
	Err    error
}

func (Found) footageResult()       {}
func (Unavailable) footageResult() {}

func unavailable(reason string, err error) Unavailable {
	return Unavailable{Reason: fmt.Sprintf("%s: %v", reason, err), Err: err}
}

// Resolver turns one planned scene into a renderable one. It never fails:
// missing audio gives a silent scene, missing footage gives a text card.
type Resolver struct {
	RunID   string
	Temp    *TempFiles
	Video   config.VideoConfig
	Footage config.FootageConfig

	Speech speech.Synthesizer
	Stock  stock.FootageSource
	Probe  Prober
	Cards  CardRenderer
	Logger *slog.Logger
}

func (r *Resolver) Resolve(ctx context.Context, scene director.Scene) video.RenderedScene {
	log := r.logger().With("scene", scene.Index)

	out := video.RenderedScene{Index: scene.Index, Duration: r.Video.FallbackDuration}

	if audio := r.synthesize(ctx, scene, log); audio != nil {
		out.Audio = audio
		out.Duration = audio.Duration
	}

	switch res := r.FetchFootage(ctx, scene).(type) {
	case Found:
		out.Visual = res.Asset
		log.Debug("Footage found", "path", res.Asset.Path, "size", fmt.Sprintf("%dx%d", res.Asset.Width, res.Asset.Height))
	case Unavailable:
		log.Info("Footage unavailable, using text card", "reason", res.Reason)
		out.FallbackReason = res.Reason
		out.Visual = r.card(scene, out.Duration, log)
	}

	out.Plan = effects.Normalize(out.Visual.Width, out.Visual.Height, r.Video.Width, r.Video.Height)
	return out
}

func (r *Resolver) synthesize(ctx context.Context, scene director.Scene, log *slog.Logger) *video.AudioAsset {
	if r.Speech == nil {
		return nil
	}
	path := r.Temp.Path(fmt.Sprintf("audio_%s_%d.mp3", r.RunID, scene.Index))

	asset, err := r.Speech.Synthesize(ctx, scene.NarrationText, path)
	if err != nil {
		log.Warn("Speech synthesis failed, scene will be silent", "error", err)
		return nil
	}
	if asset.Duration <= 0 {
		log.Warn("Speech synthesis returned empty audio, scene will be silent")
		return nil
	}
	return &asset
}

// FetchFootage searches, downloads and probes a clip for the scene.
func (r *Resolver) FetchFootage(ctx context.Context, scene director.Scene) FootageResult {
	if r.Stock == nil || r.Probe == nil {
		return Unavailable{Reason: "footage source disabled"}
	}

	link, err := r.Stock.Search(ctx, scene.SearchQuery, r.Footage.Orientation)
	if err != nil {
		return unavailable("search", err)
	}

	path := r.Temp.Path(fmt.Sprintf("footage_%s_%d.mp4", r.RunID, scene.Index))
	if err := r.Stock.Download(ctx, link, path); err != nil {
		return unavailable("download", err)
	}

	w, h, err := r.Probe.VideoSize(ctx, path)
	if err != nil {
		return unavailable("probe", err)
	}
	dur, err := r.Probe.Duration(ctx, path)
	if err != nil {
		return unavailable("probe", err)
	}

	return Found{Asset: video.MediaAsset{Kind: video.KindFootage, Path: path, Width: w, Height: h, Duration: dur}}
}

func (r *Resolver) card(scene director.Scene, duration float64, log *slog.Logger) video.MediaAsset {
	blank := video.MediaAsset{Kind: video.KindBlank, Width: r.Video.Width, Height: r.Video.Height, Duration: duration}
	if r.Cards == nil {
		return blank
	}

	path := r.Temp.Path(fmt.Sprintf("card_%s_%d.png", r.RunID, scene.Index))
	asset, err := r.Cards.Render(scene.NarrationText, duration, path)
	if err != nil {
		log.Warn("Text card failed, using blank frame", "error", err)
		return blank
	}

	if asset.Width <= 0 || asset.Height <= 0 {
		w, h, err := source.ImageSize(path)
		if err != nil {
			log.Warn("Text card unreadable, using blank frame", "error", err)
			return blank
		}
		asset.Width, asset.Height = w, h
	}
	asset.Duration = duration
	return asset
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
