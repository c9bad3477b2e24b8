package system

import (
	"image"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1920x1080\n", 1920, 1080, false},
		{"1080x1920x\n", 1080, 1920, false},
		{"640x480\n720x576\n", 640, 480, false},
		{"", 0, 0, true},
		{"axb", 0, 0, true},
		{"0x1080", 0, 0, true},
	}

	for _, tt := range tests {
		w, h, err := parseSize(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSize(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSize(%q): unexpected error %v", tt.in, err)
			continue
		}
		if w != tt.w || h != tt.h {
			t.Errorf("parseSize(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
		}
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration(" 2.304000\n")
	if err != nil || d != 2.304 {
		t.Errorf("Expected 2.304, got %f (%v)", d, err)
	}
	if _, err := parseDuration("N/A"); err == nil {
		t.Error("Expected error for N/A")
	}
	if _, err := parseDuration("0"); err == nil {
		t.Error("Expected error for zero duration")
	}
}

func TestPickEncoder(t *testing.T) {
	if got := pickEncoder(" V....D h264_nvenc  NVIDIA NVENC"); got != "h264_nvenc" {
		t.Errorf("Expected h264_nvenc, got %s", got)
	}
	if got := pickEncoder(" V....D libx264"); got != "libx264" {
		t.Errorf("Expected libx264, got %s", got)
	}
}

func TestEncoderThreads(t *testing.T) {
	if got := EncoderThreads(3); got != 3 {
		t.Errorf("Configured threads should win, got %d", got)
	}
	if got := EncoderThreads(0); got < 1 {
		t.Errorf("Expected at least one thread, got %d", got)
	}
}

func TestCanvasPool(t *testing.T) {
	pool := NewCanvasPool()
	rect := image.Rect(0, 0, 16, 32)

	img := pool.Get(rect)
	if img.Bounds() != rect {
		t.Fatalf("Unexpected bounds %v", img.Bounds())
	}
	pool.Put(img)
	pool.Put(nil)
	pool.Put(image.NewRGBA(image.Rect(0, 0, 1, 1))) // незнакомый размер просто отбрасывается

	again := pool.Get(rect)
	if again.Bounds() != rect {
		t.Errorf("Unexpected bounds after reuse %v", again.Bounds())
	}
}
