package source

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/topic2video/internal/config"
	"github.com/ivlev/topic2video/internal/system"
	"github.com/ivlev/topic2video/internal/video"
)

const (
	CharsPerLine    = 18
	MaxFontSize     = 72
	MinFontSize     = 28
	FontSizeStep    = 4
	LineSpacing     = 10
	MaxBlockHeight  = 0.55
	horizontalInset = 40
)

// CardRenderer draws narration text on a solid canvas when no footage exists.
type CardRenderer struct {
	Width, Height int
	Background    color.Color
	TextColor     color.Color
	FontPath      string

	once sync.Once
	font *opentype.Font // nil = bitmap fallback
}

func NewCardRenderer(cfg config.VideoConfig) *CardRenderer {
	return &CardRenderer{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Background: parseHexColor(cfg.Background, color.Black),
		TextColor:  parseHexColor(cfg.TextColor, color.White),
		FontPath:   cfg.FontPath,
	}
}

// Render writes the card as PNG to path and returns it as a still asset
// lasting exactly duration seconds.
func (r *CardRenderer) Render(text string, duration float64, path string) (video.MediaAsset, error) {
	img := r.Draw(text)
	defer system.PutCanvas(img)

	f, err := os.Create(path)
	if err != nil {
		return video.MediaAsset{}, fmt.Errorf("failed to create card file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return video.MediaAsset{}, fmt.Errorf("failed to encode card: %w", err)
	}
	if err := f.Close(); err != nil {
		return video.MediaAsset{}, fmt.Errorf("failed to write card: %w", err)
	}

	return video.MediaAsset{
		Kind:     video.KindStill,
		Path:     path,
		Width:    r.Width,
		Height:   r.Height,
		Duration: duration,
	}, nil
}

// Draw rasterizes the card. The returned canvas comes from the shared pool.
func (r *CardRenderer) Draw(text string) *image.RGBA {
	rect := image.Rect(0, 0, r.Width, r.Height)
	img := system.GetCanvas(rect)
	draw.Draw(img, rect, image.NewUniform(r.Background), image.Point{}, draw.Src)

	lines := Wrap(text, CharsPerLine)
	if len(lines) == 0 {
		return img
	}

	face, lineH := r.fitFace(lines)
	defer face.Close()

	ascent := face.Metrics().Ascent.Ceil()
	y := (r.Height - blockHeight(len(lines), lineH)) / 2

	d := &font.Drawer{Dst: img, Src: image.NewUniform(r.TextColor), Face: face}
	for _, line := range lines {
		lw := d.MeasureString(line).Ceil()
		d.Dot = fixed.P((r.Width-lw)/2, y+ascent)
		d.DrawString(line)
		y += lineH + LineSpacing
	}
	return img
}

// fitFace picks the largest size whose text block fits 55% of the canvas
// height and the canvas width, stopping at the floor size.
func (r *CardRenderer) fitFace(lines []string) (font.Face, int) {
	fnt := r.loadFont()
	if fnt == nil {
		face := basicfont.Face7x13
		return face, lineHeight(face)
	}

	maxH := int(float64(r.Height) * MaxBlockHeight)
	maxW := r.Width - 2*horizontalInset

	for size := MaxFontSize; ; size -= FontSizeStep {
		face, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			slog.Warn("Failed to build font face, using bitmap font", "size", size, "error", err)
			return basicfont.Face7x13, lineHeight(basicfont.Face7x13)
		}

		lineH := lineHeight(face)
		if size <= MinFontSize || (blockHeight(len(lines), lineH) <= maxH && widest(face, lines) <= maxW) {
			return face, lineH
		}
		face.Close()
	}
}

func (r *CardRenderer) loadFont() *opentype.Font {
	r.once.Do(func() {
		if r.FontPath != "" {
			data, err := os.ReadFile(r.FontPath)
			if err == nil {
				r.font, err = opentype.Parse(data)
			}
			if err == nil {
				return
			}
			slog.Warn("Failed to load card font, using embedded", "path", r.FontPath, "error", err)
		}

		f, err := opentype.Parse(gobold.TTF)
		if err != nil {
			slog.Warn("Embedded font unavailable, using bitmap font", "error", err)
			return
		}
		r.font = f
	})
	return r.font
}

func lineHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

func blockHeight(n, lineH int) int {
	if n == 0 {
		return 0
	}
	return n*lineH + (n-1)*LineSpacing
}

func widest(face font.Face, lines []string) int {
	w := 0
	for _, l := range lines {
		if lw := font.MeasureString(face, l).Ceil(); lw > w {
			w = lw
		}
	}
	return w
}

// parseHexColor accepts "#RRGGBB" or "RRGGBB".
func parseHexColor(s string, def color.Color) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
