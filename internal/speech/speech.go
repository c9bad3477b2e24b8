// Package speech synthesizes narration audio through the Google Translate TTS endpoint.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gopxl/beep/v2/mp3"

	"github.com/ivlev/topic2video/internal/config"
	"github.com/ivlev/topic2video/internal/video"
)

// MaxChunkChars is the endpoint's per-request text limit.
const MaxChunkChars = 100

var ErrEmptyText = errors.New("speech: empty text")

type Synthesizer interface {
	Synthesize(ctx context.Context, text, path string) (video.AudioAsset, error)
}

// Prober measures media duration when the mp3 decoder cannot.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

type GoogleTTS struct {
	BaseURL  string
	Language string
	Client   *http.Client
	Probe    Prober
}

func NewGoogleTTS(cfg config.SpeechConfig, probe Prober) *GoogleTTS {
	return &GoogleTTS{
		BaseURL:  cfg.BaseURL,
		Language: cfg.Language,
		Client:   &http.Client{Timeout: cfg.Timeout},
		Probe:    probe,
	}
}

// Synthesize fetches every chunk in order and appends the MP3 frames into path.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, path string) (video.AudioAsset, error) {
	chunks := SplitText(text, MaxChunkChars)
	if len(chunks) == 0 {
		return video.AudioAsset{}, ErrEmptyText
	}

	f, err := os.Create(path)
	if err != nil {
		return video.AudioAsset{}, fmt.Errorf("failed to create audio file: %w", err)
	}
	for i, chunk := range chunks {
		if err := g.fetchChunk(ctx, chunk, i, len(chunks), f); err != nil {
			f.Close()
			return video.AudioAsset{}, err
		}
	}
	if err := f.Close(); err != nil {
		return video.AudioAsset{}, fmt.Errorf("failed to write audio file: %w", err)
	}

	dur, err := g.duration(ctx, path)
	if err != nil {
		return video.AudioAsset{}, err
	}
	return video.AudioAsset{Path: path, Duration: dur}, nil
}

func (g *GoogleTTS) fetchChunk(ctx context.Context, chunk string, idx, total int, w io.Writer) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", g.Language)
	q.Set("client", "tw-ob")
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len([]rune(chunk))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tts error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read tts audio: %w", err)
	}
	return nil
}

func (g *GoogleTTS) duration(ctx context.Context, path string) (float64, error) {
	d, err := AudioDuration(path)
	if err == nil && d > 0 {
		return d, nil
	}
	if g.Probe == nil {
		return 0, fmt.Errorf("failed to measure audio duration: %w", err)
	}

	d, perr := g.Probe.Duration(ctx, path)
	if perr != nil {
		return 0, fmt.Errorf("failed to measure audio duration: %w", perr)
	}
	return d, nil
}

// AudioDuration decodes an MP3 header stream and returns its length in seconds.
func AudioDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("mp3 decode: %w", err)
	}
	defer streamer.Close()

	if format.SampleRate == 0 {
		return 0, errors.New("mp3 decode: zero sample rate")
	}
	return format.SampleRate.D(streamer.Len()).Seconds(), nil
}

// SplitText breaks text into chunks of at most limit characters on word boundaries.
func SplitText(text string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	for _, w := range strings.Fields(text) {
		word := []rune(w)
		for len(word) > limit {
			if curLen > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
				curLen = 0
			}
			chunks = append(chunks, string(word[:limit]))
			word = word[limit:]
		}

		if curLen > 0 && curLen+1+len(word) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(string(word))
		curLen += len(word)
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
