package video

import (
	"github.com/ivlev/topic2video/internal/effects"
)

type Kind int

const (
	// KindFootage is a decoded stock clip.
	KindFootage Kind = iota
	// KindStill is a rendered image whose duration is imposed.
	KindStill
	// KindBlank is a solid frame generated by the encoder; it has no file.
	KindBlank
)

func (k Kind) String() string {
	switch k {
	case KindStill:
		return "still"
	case KindBlank:
		return "blank"
	default:
		return "footage"
	}
}

// MediaAsset is the visual part of a scene.
type MediaAsset struct {
	Kind     Kind
	Path     string
	Width    int
	Height   int
	Duration float64 // native duration for footage, imposed for stills
}

// AudioAsset is synthesized narration for one scene.
type AudioAsset struct {
	Path     string
	Duration float64
}

// RenderedScene is a visual with its audio attached and its duration fixed.
type RenderedScene struct {
	Index    int
	Visual   MediaAsset
	Audio    *AudioAsset
	Duration float64
	Plan     effects.Plan

	// Reason footage was not used; empty for footage scenes.
	FallbackReason string
}

// HasAudio reports whether narration is attached.
func (s RenderedScene) HasAudio() bool {
	return s.Audio != nil && s.Audio.Path != ""
}

// TotalDuration sums scene durations.
func TotalDuration(scenes []RenderedScene) float64 {
	total := 0.0
	for _, s := range scenes {
		total += s.Duration
	}
	return total
}
