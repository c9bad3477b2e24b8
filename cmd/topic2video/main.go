package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ivlev/topic2video/internal/api"
	"github.com/ivlev/topic2video/internal/config"
	"github.com/ivlev/topic2video/internal/director"
	"github.com/ivlev/topic2video/internal/engine"
	"github.com/ivlev/topic2video/internal/narration"
	"github.com/ivlev/topic2video/internal/source"
	"github.com/ivlev/topic2video/internal/speech"
	"github.com/ivlev/topic2video/internal/stock"
	"github.com/ivlev/topic2video/internal/system"
	"github.com/ivlev/topic2video/internal/video"
)

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// .env необязателен, переменные окружения имеют приоритет
	_ = godotenv.Load()

	configPtr := flag.String("config", "config.yaml", "Путь к YAML-конфигу (если файла нет, используются значения по умолчанию)")
	topicPtr := flag.String("topic", "", "Тема видео")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	servePtr := flag.Bool("serve", false, "Запустить HTTP-сервер вместо однократной генерации")
	planPtr := flag.Bool("plan", false, "Только сгенерировать раскадровку и вывести её в YAML, без рендера")
	addrPtr := flag.String("addr", "", "Адрес HTTP-сервера (перекрывает конфиг и PORT)")

	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	if *addrPtr != "" {
		cfg.Server.Address = *addrPtr
	}

	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if cfg.Video.VideoCodec == "" || cfg.Video.VideoCodec == "auto" {
		cfg.Video.VideoCodec = system.GetBestH264Encoder()
		if cfg.Video.VideoCodec != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.Video.VideoCodec)
		}
	}
	cfg.Video.Threads = system.EncoderThreads(cfg.Video.Threads)

	if err := os.MkdirAll(cfg.Server.StaticDir, 0755); err != nil {
		log.Fatalf("[-] Не удалось создать каталог %s: %v", cfg.Server.StaticDir, err)
	}

	project := newProject(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *servePtr:
		fmt.Printf("[*] Сервер: %s | Публичный URL: %s\n", cfg.Server.Address, cfg.Server.PublicURL)
		if err := api.NewServer(cfg.Server, project, logger).Run(ctx); err != nil {
			log.Fatalf("[-] Ошибка сервера: %v", err)
		}

	case *planPtr:
		topic := requireTopic(*topicPtr)
		sb, err := project.Plan(ctx, topic, "")
		if err != nil {
			log.Fatalf("[-] Ошибка планирования: %v", err)
		}
		if err := director.WriteStoryboard(os.Stdout, sb); err != nil {
			log.Fatalf("[-] Ошибка вывода раскадровки: %v", err)
		}

	default:
		topic := requireTopic(*topicPtr)
		output := *outputPtr
		if output == "" {
			output = defaultOutput(topic)
		}

		fmt.Println("--- [PROJECT: TOPIC2VIDEO] ---")
		fmt.Printf("[*] Тема: %s\n", topic)
		fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Кодек: %s | Потоки: %d\n",
			cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS, cfg.Video.VideoCodec, cfg.Video.Threads)
		fmt.Println("-----------------------------")

		art, err := project.BuildVideo(ctx, topic, output)
		if err != nil {
			log.Fatalf("[-] Ошибка сборки видео: %v", err)
		}
		fmt.Printf("[+++] Успех! Видео сохранено: %s (%.2fs, сцен: %d)\n", art.Path, art.Duration, art.Scenes)
	}
}

// newProject wires the real collaborators. Missing API keys disable the
// corresponding service; the pipeline then uses its fallbacks.
func newProject(cfg *config.Config, logger *slog.Logger) *engine.Project {
	probe := &system.FFprobe{}

	c := engine.Collaborators{
		Speech:  speech.NewGoogleTTS(cfg.Speech, probe),
		Probe:   probe,
		Cards:   source.NewCardRenderer(cfg.Video),
		Encoder: &video.FFmpegEncoder{},
	}

	if cfg.Narration.Key != "" {
		gen, err := narration.New(cfg.Narration)
		if err != nil {
			log.Fatalf("[-] Ошибка инициализации генератора текста: %v", err)
		}
		c.Narrator = gen
	} else {
		fmt.Printf("[!] Ключ для %s не задан, будут использованы заглушки текста\n", cfg.Narration.Provider)
	}

	if cfg.Footage.Key != "" {
		c.Stock = stock.NewPexelsClient(cfg.Footage)
	} else {
		fmt.Println("[!] PEXELS_API_KEY не задан, вместо футажей будут текстовые карточки")
	}

	p := engine.NewProject(cfg, c)
	p.Logger = logger
	return p
}

func requireTopic(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		log.Fatalf("[-] Ошибка: укажите тему через -topic")
	}
	return topic
}

func defaultOutput(topic string) string {
	clean := strings.ReplaceAll(strings.ToLower(topic), " ", "_")
	clean = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, clean)
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", clean, timestamp))
}
