package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bountyhooks/internal"
	"bountyhooks/pkg/api"
	"bountyhooks/pkg/bounty"
	"bountyhooks/pkg/providers/github"
	"bountyhooks/pkg/storage"
	"bountyhooks/pkg/storage/gormstore"
	"bountyhooks/pkg/tasks"
	"bountyhooks/pkg/webhook"
)

func main() {
	logger := internal.NewLogger("server")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := gormstore.Open(config.Storage)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer store.Close()
	if err := seedRepositories(ctx, store, config.Repositories); err != nil {
		logger.Fatalf("seed repositories: %v", err)
	}

	ruleEngine, err := internal.NewRuleEngine(config.Rules, internal.NewLogger("rules"))
	if err != nil {
		logger.Fatalf("compile rules: %v", err)
	}

	gh, err := github.NewClient(ctx, config.GitHub)
	if err != nil {
		logger.Fatalf("github client: %v", err)
	}

	labels, err := bounty.NewLabels(config.Bounty.Label)
	if err != nil {
		logger.Fatalf("bounty label: %v", err)
	}

	taskLogger := internal.NewLogger("tasks")
	var metrics internal.Metrics
	queue, err := tasks.New(ctx, config.Tasks, taskLogger, tasks.Listener{
		OnError: func(ctx context.Context, task tasks.Task, err error) {
			metrics.IncTaskError(task.Kind)
			internal.WithRequestID(taskLogger, task.RequestID).Printf("task failed kind=%s attempt=%d: %v", task.Kind, task.Attempt, err)
		},
	})
	if err != nil {
		logger.Fatalf("task queue: %v", err)
	}
	defer queue.Close()

	bountyLogger := internal.NewLogger("bounty")
	resolver := bounty.NewResolver(gh, labels, bountyLogger)
	commits := bounty.NewCommitResolver(gh, bountyLogger)
	service := bounty.NewService(store, labels)

	hookLogger := internal.NewLogger("webhook")
	issues := webhook.NewIssueHandler(service, commits, queue, hookLogger)
	pulls := webhook.NewPullRequestHandler(resolver, commits, store, store, webhook.NewNotifier(ruleEngine, queue, hookLogger), hookLogger)
	hooks := webhook.NewGitHubHandler(
		webhook.NewVerifier(webhook.NewRegistry(store), hookLogger),
		webhook.NewDispatcher(issues, pulls, hookLogger),
		hookLogger,
		config.Server.MaxBodyBytes,
	)

	queue.Handle(webhook.TaskCommitSearch, issues.HandleCommitSearch)
	if err := queue.Start(ctx); err != nil {
		logger.Fatalf("start task queue: %v", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.With(internal.RateLimit(config.Server.RateLimitRPS, config.Server.RateLimitBurst, 10*time.Minute)).
		Post(config.Server.WebhookPath, hooks.ServeHTTP)
	api.Mount(router, store, store, internal.NewLogger("api"))
	if config.Server.MetricsEnabled {
		router.Method(http.MethodGet, config.Server.MetricsPath, expvar.Handler())
		logger.Printf("metrics enabled on %s", config.Server.MetricsPath)
	}

	addr := ":" + strconv.Itoa(config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       time.Duration(config.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(config.Server.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:       time.Duration(config.Server.IdleTimeoutMS) * time.Millisecond,
		ReadHeaderTimeout: time.Duration(config.Server.ReadHeaderMS) * time.Millisecond,
	}

	go func() {
		logger.Printf("listening on %s webhook=%s tasks=%s", addr, config.Server.WebhookPath, config.Tasks.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

func seedRepositories(ctx context.Context, store storage.RepositoryStore, repos []internal.RepositoryConfig) error {
	var errs []error
	for _, repo := range repos {
		err := store.UpsertRepository(ctx, storage.RepositoryRecord{
			ID:         repo.ID,
			Owner:      repo.Owner,
			Name:       repo.Name,
			FullName:   repo.FullName,
			HookSecret: repo.HookSecret,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
