package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kube-rca/jvm-analyzer/internal/client"
	"github.com/kube-rca/jvm-analyzer/internal/config"
	"github.com/kube-rca/jvm-analyzer/internal/db"
	"github.com/kube-rca/jvm-analyzer/internal/flamegraph"
	"github.com/kube-rca/jvm-analyzer/internal/handler"
	"github.com/kube-rca/jvm-analyzer/internal/service"
	"github.com/kube-rca/jvm-analyzer/internal/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 1. 오브젝트 스토어
	store, closeStore, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	// 2. AI (소스 코드 조회 도구는 GITHUB_REPO_URL이 있을 때만)
	var source client.SourceLookup
	if cfg.GitHub.RepoURL != "" {
		gh, err := client.NewGitHubSource(ctx, cfg.GitHub)
		if err != nil {
			return fmt.Errorf("failed to init GitHub source lookup: %w", err)
		}
		source = gh
		log.Printf("[AI] Source lookup enabled for %s", cfg.GitHub.RepoURL)
	}
	chat, err := client.NewChat(ctx, cfg.AI, cfg.Storage.Region, source)
	if err != nil {
		return fmt.Errorf("failed to init AI client: %w", err)
	}

	// 3. flamegraph: 외부 변환기 + in-process collapsed fallback
	converter := flamegraph.NewConverter(cfg.Flamegraph.Converter)
	if !converter.Available() {
		log.Printf("[Flamegraph] %s not found in PATH, HTML flamegraphs will fail", cfg.Flamegraph.Converter)
	}
	generator := &flamegraph.Fallback{Primary: converter, Secondary: flamegraph.NewCollapser()}

	// 4. 선택 구성 요소: run ledger, 알림
	opts := service.AnalyzerOptions{
		FlamegraphInclude: cfg.Flamegraph.Include,
		MaxConcurrency:    cfg.Analyzer.MaxConcurrency,
	}
	analysisHandler := handler.NewAnalysisHandler(nil)
	if cfg.Postgres.Enabled() {
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()

		ledger := &db.Postgres{Pool: pool}
		if err := ledger.EnsureAnalysisRunsSchema(ctx); err != nil {
			return err
		}
		opts.Ledger = ledger
		analysisHandler = handler.NewAnalysisHandler(ledger)
		log.Printf("[DB] Run ledger enabled")
	}
	if slack := client.NewSlackClient(cfg.Slack); slack.IsConfigured() {
		opts.Notifiers = append(opts.Notifiers, service.NewSlackNotifier(slack))
	}
	if webhook := service.NewWebhookNotifier(cfg.Webhook); webhook != nil {
		opts.Notifiers = append(opts.Notifiers, webhook)
	}

	analyzer := service.NewAnalyzerService(
		client.NewThreadDumpClient(cfg.ThreadDump),
		service.NewProfilingLocator(store, cfg.Storage.ProfilingPrefix),
		generator,
		// bedrock은 도구 호출을 지원하지 않는다
		service.NewReportBuilder(chat, source != nil && cfg.AI.Provider != "bedrock"),
		service.NewArtifactStore(store, cfg.Storage.AnalysisPrefix),
		opts,
	)

	router := handler.NewRouter(handler.NewAlertHandler(analyzer, cfg.Analyzer.Async), analysisHandler)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on :%s (storage=%s, ai=%s, async=%t)",
			cfg.Server.Port, cfg.Storage.Backend, cfg.AI.Provider, cfg.Analyzer.Async)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, func(), error) {
	if cfg.Bucket == "" {
		return nil, nil, errors.New("ANALYZER_BUCKET is required")
	}

	switch cfg.Backend {
	case "", "s3":
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3Store, func() {}, nil
	case "gcs":
		gcsStore, err := storage.NewGCSStore(ctx, cfg.Bucket, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return gcsStore, func() {
			if err := gcsStore.Close(); err != nil {
				log.Printf("Failed to close GCS client: %v", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
}
