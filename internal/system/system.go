package system

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		slog.Warn("Failed to read open file limit", "error", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		slog.Warn("Failed to raise open file limit", "error", err)
		return
	}
	slog.Debug("Open file limit raised", "limit", rLimit.Cur)
}

// FFprobe reads media properties with the ffprobe binary.
type FFprobe struct {
	Binary string
}

func (p *FFprobe) binary() string {
	if p == nil || p.Binary == "" {
		return "ffprobe"
	}
	return p.Binary
}

// Duration returns the container duration in seconds.
func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.binary(), "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %s: %w", path, err)
	}
	return parseDuration(string(out))
}

// VideoSize returns the frame size of the first video stream.
func (p *FFprobe) VideoSize(ctx context.Context, path string) (int, int, error) {
	cmd := exec.CommandContext(ctx, p.binary(), "-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0:s=x", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe size %s: %w", path, err)
	}
	return parseSize(string(out))
}

func parseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %f", d)
	}
	return d, nil
}

func parseSize(s string) (int, int, error) {
	// у некоторых файлов ffprobe печатает лишний разделитель в конце
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(s), "\n", 2)[0])
	line = strings.TrimSuffix(line, "x")

	parts := strings.Split(line, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe size %q", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad height %q: %w", parts[1], err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	return w, h, nil
}

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg has one.
func GetBestH264Encoder() string {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(encoders string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(encoders, name) {
			return name
		}
	}
	return "libx264"
}
