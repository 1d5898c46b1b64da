package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-chat/internal/chat"
	"document-chat/internal/config"
	"document-chat/internal/db"
	"document-chat/internal/helper"
	"document-chat/internal/llmservice"
	"document-chat/internal/models"
	"document-chat/internal/parser"
	"document-chat/internal/session"
	"document-chat/internal/store"
	"document-chat/internal/web"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePaths := flag.String("file", "", "Comma separated document files to use as context")
	query := flag.String("query", "", "Question to be answered")
	save := flag.Bool("save", false, "Save the given files for later")
	dryRun := flag.Bool("dry-run", false, "Print the extracted documents and exit")
	dropSaved := flag.Bool("drop-saved", false, "Drop the saved documents table (postgres store) before starting")
	addr := flag.String("addr", "", "Address to serve the web page on")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setLogLevel(cfg.Log.Level)
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx := context.Background()

	s, closeStore, err := openStore(ctx, cfg, *dropSaved)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening document store")
	}
	defer closeStore()

	svc := chat.NewService(s, llmservice.NewClient(cfg.LLM), chat.Limiter{MaxChars: cfg.Prompt.MaxChars})

	if *filePaths != "" || *query != "" {
		runOnce(ctx, svc, splitPaths(*filePaths), *query, *save, *dryRun)
		return
	}

	serve(cfg, svc)
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func openStore(ctx context.Context, cfg *config.Config, drop bool) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "", "json":
		log.Debug().Str("path", cfg.Store.Path).Msg("Using JSON document store")
		return store.NewJSONStore(cfg.Store.Path), func() {}, nil
	case "postgres":
		dbClient, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		dbInstance := db.NewDB(dbClient, cfg.Database.Debug)
		if drop {
			if err := db.DropDocuments(ctx, dbInstance); err != nil {
				dbInstance.Close()
				return nil, nil, err
			}
		}
		if err := db.InitDB(ctx, dbInstance); err != nil {
			dbInstance.Close()
			return nil, nil, err
		}
		pg := db.NewPostgresStore(dbInstance)
		return pg, func() { _ = pg.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func splitPaths(raw string) []string {
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// runOnce is the command line flow: extract the files, optionally save them,
// and answer the query.
func runOnce(ctx context.Context, svc *chat.Service, paths []string, query string, save, dryRun bool) {
	if dryRun {
		var docs []models.Document
		for _, p := range paths {
			doc, err := parser.ExtractFile(p)
			if err != nil {
				log.Error().Err(err).Str("file", p).Msg("Error parsing document")
				continue
			}
			docs = append(docs, doc)
		}
		log.Info().Int("documents", len(docs)).Msg("Parsed content")
		helper.PrettyPrint(docs)
		return
	}

	state := &session.State{ID: "cli"}

	var files []chat.File
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Fatal().Err(err).Str("file", p).Msg("Error reading file")
		}
		files = append(files, chat.File{Name: p, Data: data})
	}
	for _, r := range svc.Upload(state, files) {
		log.Info().Str("file", r.Name).Str("format", r.Format).Str("status", string(r.Status)).Str("error", r.Error).Msg("Upload")
	}

	if save {
		for i := range state.Uploads {
			if _, err := svc.SaveForLater(ctx, state, i); err != nil {
				log.Fatal().Err(err).Msg("Error saving file")
			}
		}
	}

	if query == "" {
		return
	}

	res, err := svc.Ask(ctx, state, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}
	if res == nil {
		log.Warn().Msg("Empty question, nothing to ask")
		return
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", res.Content)
}

func serve(cfg *config.Config, svc *chat.Service) {
	router := web.NewRouter(web.NewHandler(svc, session.NewManager(), cfg.Upload.MaxFileBytes), cfg.Server.GinMode)
	if cfg.Upload.MaxFileBytes > 0 {
		router.MaxMultipartMemory = cfg.Upload.MaxFileBytes
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Serving chat page")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Error serving")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down server")
	}
	log.Info().Msg("Server stopped")
}
