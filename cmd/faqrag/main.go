package main

import (
	"context"
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"faqrag/internal/config"
	"faqrag/internal/domain"
	"faqrag/internal/embedding/hash"
	embollama "faqrag/internal/embedding/ollama"
	"faqrag/internal/embedding/openai"
	"faqrag/internal/history"
	"faqrag/internal/index"
	llmollama "faqrag/internal/llm/ollama"
	"faqrag/internal/service"
	"faqrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/faqrag/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	assistant, closeFn := assemble(cfg)
	defer closeFn()

	if _, err := tea.NewProgram(tui.New(assistant), tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

// assemble wires the pipeline from config. Startup failures are fatal: there
// is no degraded mode without an index.
func assemble(cfg *config.AppConfig) (*service.Assistant, func()) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "ollama", "":
		ecfg := cfg.Embedder.Ollama
		if ecfg == nil {
			ecfg = &config.OllamaEmbedderConfig{}
		}
		emb = embollama.NewClient(embollama.Config{
			BaseURL: ecfg.BaseURL,
			Model:   ecfg.Model,
			Timeout: time.Duration(ecfg.TimeoutSecs) * time.Second,
		})
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatalf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = client
	case "hash":
		dim := 0
		if cfg.Embedder.Hash != nil {
			dim = cfg.Embedder.Hash.Dimension
		}
		emb = hash.New(dim)
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var gen domain.Generator
	switch cfg.Generator.Type {
	case "ollama", "":
		gcfg := cfg.Generator.Ollama
		if gcfg == nil {
			gcfg = &config.OllamaGeneratorConfig{}
		}
		gen = llmollama.NewClient(llmollama.Config{
			BaseURL:     gcfg.BaseURL,
			Model:       gcfg.Model,
			Temperature: gcfg.Temperature,
			Timeout:     time.Duration(gcfg.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatalf("unknown generator: %s", cfg.Generator.Type)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Fatalf("failed to open history: %v", err)
	}

	ix, err := index.NewManager(cfg.Index.Path, cfg.Corpus.Path, emb).GetOrBuild(context.Background())
	if err != nil {
		store.Close()
		log.Fatalf("failed to prepare index: %v", err)
	}

	assistant := service.NewAssistant(emb, ix, gen, store, cfg.Index.TopK, cfg.Prompt.Template)
	return assistant, func() { store.Close() }
}
