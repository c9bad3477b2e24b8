package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ivlev/topic2video/internal/config"
)

// ErrNoScenes is returned when asked to render an empty sequence.
var ErrNoScenes = errors.New("no scenes to render")

type VideoEncoder interface {
	Render(ctx context.Context, scenes []RenderedScene, outputPath string, params config.RenderParams) error
}

type FFmpegEncoder struct {
	Binary string
}

// Render composes every scene in slice order and encodes one file.
// Output is written to a sibling temp file and renamed into place on success,
// so a failed render never leaves a partial artifact at outputPath.
func (e *FFmpegEncoder) Render(ctx context.Context, scenes []RenderedScene, outputPath string, params config.RenderParams) error {
	if len(scenes) == 0 {
		return ErrNoScenes
	}

	partial := outputPath + ".partial"
	args := e.buildRenderArgs(scenes, partial, params)

	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(partial)
		return fmt.Errorf("ffmpeg render error: %w, output: %s", err, tail(out, 2048))
	}

	if err := os.Rename(partial, outputPath); err != nil {
		os.Remove(partial)
		return fmt.Errorf("failed to move render into place: %w", err)
	}
	return nil
}

func (e *FFmpegEncoder) buildRenderArgs(scenes []RenderedScene, outputPath string, p config.RenderParams) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	// Входы: на каждую сцену пара (видео, аудио), индексы 2i и 2i+1
	for _, s := range scenes {
		dur := fmtSeconds(s.Duration)
		switch s.Visual.Kind {
		case KindStill:
			args = append(args, "-loop", "1", "-framerate", fmt.Sprintf("%d", p.FPS), "-t", dur, "-i", s.Visual.Path)
		case KindBlank:
			src := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", padColor(p.PadColor), p.Width, p.Height, p.FPS)
			args = append(args, "-f", "lavfi", "-t", dur, "-i", src)
		default:
			args = append(args, "-i", s.Visual.Path)
		}

		if s.HasAudio() {
			args = append(args, "-i", s.Audio.Path)
		} else {
			args = append(args, "-f", "lavfi", "-t", dur, "-i", "anullsrc=r=44100:cl=stereo")
		}
	}

	args = append(args, "-filter_complex", e.buildFilterGraph(scenes, p))
	args = append(args, "-map", "[vout]", "-map", "[aout]")
	args = append(args, "-r", fmt.Sprintf("%d", p.FPS))
	args = append(args, "-c:v", p.VideoCodec, "-pix_fmt", "yuv420p")
	args = append(args, qualityArgs(p)...)
	args = append(args, "-c:a", p.AudioCodec, "-b:a", "192k", "-ar", "44100")
	if p.Threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", p.Threads))
	}
	args = append(args, "-movflags", "+faststart", "-f", "mp4", outputPath)
	return args
}

// buildFilterGraph brings every input to the same size, rate, sar and audio
// layout before concat, so inputs with differing codecs still compose.
func (e *FFmpegEncoder) buildFilterGraph(scenes []RenderedScene, p config.RenderParams) string {
	var graph strings.Builder
	var concatInputs strings.Builder

	for i, s := range scenes {
		dur := fmtSeconds(s.Duration)

		// Футаж короче аудио удерживается на последнем кадре, длиннее обрезается
		fmt.Fprintf(&graph, "[%d:v]%s,fps=%d,format=yuv420p,tpad=stop_mode=clone:stop_duration=%s,trim=duration=%s,setpts=PTS-STARTPTS[v%d];",
			2*i, s.Plan.Filter(p.PadColor), p.FPS, dur, dur, i)
		fmt.Fprintf(&graph, "[%d:a]aresample=44100,aformat=sample_fmts=fltp:channel_layouts=stereo,apad,atrim=duration=%s,asetpts=PTS-STARTPTS[a%d];",
			2*i+1, dur, i)
		fmt.Fprintf(&concatInputs, "[v%d][a%d]", i, i)
	}

	fmt.Fprintf(&graph, "%sconcat=n=%d:v=1:a=1[vout][aout]", concatInputs.String(), len(scenes))
	return graph.String()
}

func qualityArgs(p config.RenderParams) []string {
	switch p.VideoCodec {
	case "h264_videotoolbox":
		// VideoToolbox не везде понимает -q:v, используем битрейт
		return []string{"-b:v", fmt.Sprintf("%dk", p.Quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", p.Quality), "-preset", "p1"}
	default: // libx264
		var args []string
		if p.Preset != "" {
			args = append(args, "-preset", p.Preset)
		}
		if p.Quality > 0 {
			args = append(args, "-crf", fmt.Sprintf("%d", p.Quality))
		}
		return args
	}
}

// padColor converts "#RRGGBB" into the 0xRRGGBB form lavfi sources accept.
func padColor(c string) string {
	if c == "" {
		return "black"
	}
	if strings.HasPrefix(c, "#") {
		return "0x" + c[1:]
	}
	return c
}

func fmtSeconds(d float64) string {
	return fmt.Sprintf("%.3f", d)
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
