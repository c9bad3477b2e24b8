package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Video     VideoConfig     `yaml:"video"`
	Narration NarrationConfig `yaml:"narration"`
	Speech    SpeechConfig    `yaml:"speech"`
	Footage   FootageConfig   `yaml:"footage"`
	Log       LogConfig       `yaml:"log"`

	// Каталог для временных файлов прогона (пусто = системный tmp)
	TempDir string `yaml:"temp_dir"`
	Workers int    `yaml:"workers"`
}

type ServerConfig struct {
	Address           string `yaml:"address"`
	PublicURL         string `yaml:"public_url"`
	StaticDir         string `yaml:"static_dir"`
	MaxConcurrentRuns int    `yaml:"max_concurrent_runs"`
}

type VideoConfig struct {
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	FPS              int     `yaml:"fps"`
	VideoCodec       string  `yaml:"video_codec"` // "auto" = лучший доступный H.264
	AudioCodec       string  `yaml:"audio_codec"`
	Preset           string  `yaml:"preset"`
	Quality          int     `yaml:"quality"`
	Threads          int     `yaml:"threads"` // 0 = по числу ядер
	FallbackDuration float64 `yaml:"fallback_duration"`
	Background       string  `yaml:"background"`
	TextColor        string  `yaml:"text_color"`
	FontPath         string  `yaml:"font_path"`
}

type NarrationConfig struct {
	Provider    string        `yaml:"provider"` // nvidia, openai, gemini
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Key         string        `yaml:"key"`
	Lines       int           `yaml:"lines"`
	MinWords    int           `yaml:"min_words"`
	MaxWords    int           `yaml:"max_words"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type SpeechConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

type FootageConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Key             string        `yaml:"key"`
	Orientation     string        `yaml:"orientation"`
	SearchTimeout   time.Duration `yaml:"search_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// RenderParams are the fixed encoding parameters of the final render.
type RenderParams struct {
	Width, Height int
	FPS           int
	VideoCodec    string
	AudioCodec    string
	Preset        string
	Quality       int
	Threads       int
	PadColor      string
}

// Default returns the configuration the service runs with when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           ":8000",
			PublicURL:         "http://localhost:8000",
			StaticDir:         "static",
			MaxConcurrentRuns: 2,
		},
		Video: VideoConfig{
			Width:            1080,
			Height:           1920,
			FPS:              30,
			VideoCodec:       "libx264",
			AudioCodec:       "aac",
			Preset:           "ultrafast",
			Quality:          23,
			FallbackDuration: 3.0,
			Background:       "#000000",
			TextColor:        "#FFFFFF",
		},
		Narration: NarrationConfig{
			Provider:    "nvidia",
			BaseURL:     "https://integrate.api.nvidia.com/v1",
			Model:       "meta/llama3-8b-instruct",
			Lines:       4,
			MinWords:    5,
			MaxWords:    6,
			Temperature: 0.8,
			MaxTokens:   150,
			Timeout:     30 * time.Second,
		},
		Speech: SpeechConfig{
			BaseURL:  "https://translate.google.com/translate_tts",
			Language: "en",
			Timeout:  20 * time.Second,
		},
		Footage: FootageConfig{
			BaseURL:         "https://api.pexels.com",
			Orientation:     "portrait",
			SearchTimeout:   15 * time.Second,
			DownloadTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Workers: 4,
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error.
// Secrets left empty in the file are taken from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("Config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Footage.Key == "" {
		c.Footage.Key = os.Getenv("PEXELS_API_KEY")
	}
	if c.Narration.Key == "" {
		switch c.Narration.Provider {
		case "gemini":
			c.Narration.Key = os.Getenv("GEMINI_API_KEY")
		case "openai":
			c.Narration.Key = os.Getenv("OPENAI_API_KEY")
		default:
			c.Narration.Key = os.Getenv("NVIDIA_API_KEY")
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Address = ":" + port
	}
}

// Validate rejects configurations the pipeline cannot render with.
func (c *Config) Validate() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return fmt.Errorf("invalid video size %dx%d", c.Video.Width, c.Video.Height)
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		return fmt.Errorf("video size %dx%d must be even for yuv420p", c.Video.Width, c.Video.Height)
	}
	if c.Video.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", c.Video.FPS)
	}
	if c.Video.FallbackDuration <= 0 {
		return fmt.Errorf("fallback_duration must be positive")
	}
	if c.Narration.Lines <= 0 {
		return fmt.Errorf("narration.lines must be positive")
	}
	if c.Narration.MinWords > c.Narration.MaxWords {
		return fmt.Errorf("narration.min_words (%d) > max_words (%d)", c.Narration.MinWords, c.Narration.MaxWords)
	}
	return nil
}

// Render derives the encoder parameters from the video section.
func (c *Config) Render() RenderParams {
	return RenderParams{
		Width:      c.Video.Width,
		Height:     c.Video.Height,
		FPS:        c.Video.FPS,
		VideoCodec: c.Video.VideoCodec,
		AudioCodec: c.Video.AudioCodec,
		Preset:     c.Video.Preset,
		Quality:    c.Video.Quality,
		Threads:    c.Video.Threads,
		PadColor:   c.Video.Background,
	}
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(cfg.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
