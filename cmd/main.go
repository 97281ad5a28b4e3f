package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdfrag/internal/chunker"
	"pdfrag/internal/config"
	"pdfrag/internal/embedding"
	"pdfrag/internal/llmservice"
	"pdfrag/internal/rag"
	"pdfrag/internal/server"
	"pdfrag/internal/transcript"
	"pdfrag/internal/vectorindex"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Credentials may live in a .env file next to the binary.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	embedder, err := embedding.NewEmbedder(cfg.OpenRouterKey, cfg.OpenRouterBase, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	chat := llmservice.NewClient(cfg.OpenRouterKey, cfg.OpenRouterBase, cfg.InferenceModel)
	index := vectorindex.New()
	split := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)

	ingestor := rag.NewIngestor(rag.PDFParser(), embedder, index, split, os.TempDir())
	querier := rag.NewQuerier(embedder, index, chat, cfg.RAG)
	srv := server.New(ingestor, querier, transcript.New())

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-done
	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
