package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avoronov/xscout/app/api"
	"github.com/avoronov/xscout/app/brief"
	"github.com/avoronov/xscout/app/cfg"
	"github.com/avoronov/xscout/app/database"
	"github.com/avoronov/xscout/app/llm"
	"github.com/avoronov/xscout/app/profile"
	"github.com/avoronov/xscout/app/scout"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appCfg.Serve {
		err = runServer(ctx)
	} else {
		err = runScout(ctx)
	}
	if err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

// runScout executes a single scouting run: fetch, brief, output.
func runScout(ctx context.Context) error {
	appCfg := cfg.Get()

	prof, err := loadProfile(appCfg)
	if err != nil {
		return err
	}

	slog.Info("Starting scout run", "version", appCfg.Version, "topic", prof.Topic,
		"profile", appCfg.Profile, "lookback_hours", prof.Settings.LookbackHours)

	payload, err := buildPayload(ctx, appCfg, prof)
	if err != nil {
		return err
	}

	if len(payload.Posts) == 0 {
		slog.Warn("No posts found, skipping brief generation", "topic", prof.Topic)
		return nil
	}

	payloadJSON, err := payload.JSON()
	if err != nil {
		return err
	}

	client := llm.NewClient(appCfg.LLMAPIKey, appCfg.LLMBaseURL, appCfg.LLMModel, appCfg.MaxTokens)
	systemPrompt := llm.BuildSystemPrompt(prof.Topic, prof.Description)

	slog.Info("Generating brief", "model", appCfg.LLMModel, "posts", len(payload.Posts))
	briefText, err := client.Complete(ctx, systemPrompt, "Brief me.\n\n"+payloadJSON)
	if err != nil {
		return fmt.Errorf("brief generation failed: %w", err)
	}

	fmt.Println(briefText)

	if appCfg.Save || appCfg.SavePosts {
		if err := saveFiles(appCfg, payload, briefText); err != nil {
			return err
		}
	}

	if appCfg.DBPath != "" {
		archiveRun(appCfg, payload, briefText)
	}

	return nil
}

// loadProfile resolves the effective topic profile: a named profile from
// the profiles directory (or the built-in default), with command-line
// topic and source overrides applied on top.
func loadProfile(appCfg *cfg.Cfg) (*profile.Profile, error) {
	cache := profile.NewCache(appCfg.ProfilesDir)
	if err := cache.Run(); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	prof, err := cache.Get(appCfg.Profile)
	if err != nil {
		return nil, err
	}

	if appCfg.Topic != "" {
		prof.Topic = appCfg.Topic
		prof.Description = appCfg.Topic
	}
	if appCfg.TopicDescription != "" {
		prof.Description = appCfg.TopicDescription
	}
	if len(appCfg.Sources) > 0 {
		prof.Sources.Enabled = appCfg.Sources
	}
	if appCfg.LookbackHours > 0 {
		prof.Settings.LookbackHours = appCfg.LookbackHours
	}
	if appCfg.MaxResults > 0 {
		prof.Settings.MaxResults = appCfg.MaxResults
	}

	return prof, nil
}

func buildPayload(ctx context.Context, appCfg *cfg.Cfg, prof *profile.Profile) (*scout.Payload, error) {
	if appCfg.FromFile != "" {
		slog.Info("Replaying saved posts", "file", appCfg.FromFile)
		return scout.LoadPayload(appCfg.FromFile)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	aggregator := scout.NewAggregator(httpClient, appCfg.UserAgent)
	return aggregator.Run(ctx, prof, appCfg.Sources)
}

func saveFiles(appCfg *cfg.Cfg, payload *scout.Payload, briefText string) error {
	writer := brief.NewWriter(appCfg.BriefsDir)
	now := time.Now()

	if appCfg.Save {
		path, err := writer.WriteBrief(briefText, now)
		if err != nil {
			return err
		}
		slog.Info("Brief saved", "path", path)
	}

	if appCfg.SavePosts {
		path, err := writer.WritePosts(payload, now)
		if err != nil {
			return err
		}
		slog.Info("Posts saved", "path", path)
	}

	return nil
}

// archiveRun records the run, its posts, and the brief in the SQLite
// archive. Archive failures are reported but do not fail the run; the
// brief was already produced.
func archiveRun(appCfg *cfg.Cfg, payload *scout.Payload, briefText string) {
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Warn("Failed to open archive", "db", appCfg.DBPath, "error", err)
		return
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Warn("Failed to migrate archive", "db", appCfg.DBPath, "error", err)
		return
	}
	slog.Debug("Migrations applied", "version", version, "dirty", dirty)

	runRepo := database.NewRunRepository(db)
	postRepo := database.NewPostRepository(db)

	runID, err := runRepo.CreateRun(payload.Topic, appCfg.Profile, payload.LookbackHours,
		payload.PulledAt, payload.SourceCounts, len(payload.Posts))
	if err != nil {
		slog.Warn("Failed to archive run", "db", appCfg.DBPath, "error", err)
		return
	}

	if err := postRepo.InsertPosts(runID, payload.Posts); err != nil {
		slog.Warn("Failed to archive posts", "run", runID, "error", err)
	}

	if _, err := runRepo.SaveBrief(runID, appCfg.LLMModel, briefText); err != nil {
		slog.Warn("Failed to archive brief", "run", runID, "error", err)
	}

	slog.Info("Run archived", "run", runID, "db", appCfg.DBPath)
}

// runServer exposes the run archive over HTTP until interrupted.
func runServer(ctx context.Context) error {
	appCfg := cfg.Get()

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	handler := api.NewHandler(database.NewRunRepository(db), database.NewPostRepository(db))
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server started", "port", appCfg.Port, "auth", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	slog.Info("Shutdown complete")
	return nil
}
