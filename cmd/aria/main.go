package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ent0n29/aria/internal/bot"
	"github.com/ent0n29/aria/internal/commands"
	"github.com/ent0n29/aria/internal/config"
	"github.com/ent0n29/aria/internal/gateway"
	"github.com/ent0n29/aria/internal/history"
	"github.com/ent0n29/aria/internal/httpapi"
	"github.com/ent0n29/aria/internal/llm"
	"github.com/ent0n29/aria/internal/memory"
	"github.com/ent0n29/aria/internal/music"
	"github.com/ent0n29/aria/internal/observability"
	"github.com/ent0n29/aria/internal/spamguard"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := memory.NewStore(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer store.Close()

	if ls, ok := store.(memory.LexicalSearcher); ok && cfg.SemanticSearchEnabled {
		if ls.SupportsLexicalSearch() {
			log.Printf("memory: backend ranks with its own full-text statistic")
		} else {
			log.Printf("memory: backend ranks with the in-process lexical heuristic")
		}
	}

	client, err := llm.NewClient(llm.Config{Mode: cfg.LLMMode, URL: cfg.LLMURL})
	if err != nil {
		log.Fatalf("llm client init failed: %v", err)
	}

	var relay *gateway.RelayClient
	var fetcher gateway.Fetcher
	if cfg.GatewayURL != "" {
		relay = gateway.NewRelayClient(cfg.GatewayURL, cfg.GatewayToken)
		fetcher = relay
	} else {
		log.Printf("gateway: GATEWAY_URL not set, serving HTTP replies only")
	}

	assembler := history.NewAssembler(store, cfg.SemanticSearchEnabled, cfg.MaxContextMessages, metrics)
	recorder := bot.NewRecorder(store, cfg.BotName)
	orchestrator := bot.NewOrchestrator(assembler, client, recorder, fetcher, metrics, bot.Options{
		BotName:        cfg.BotName,
		SystemPrompt:   cfg.SystemPrompt,
		HomeChannelID:  cfg.HomeChannelID,
		ResponseChance: cfg.ResponseChance,
		Cooldown:       cfg.Cooldown,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.Temperature,
		Debug:          cfg.Debug,
	})

	if relay != nil {
		guard := spamguard.New(cfg.SpamThreshold, cfg.SpamWindow)
		birthdays := commands.NewBirthdayBook()
		router := commands.NewRouter(relay, orchestrator,
			commands.NewSearchRelay(cfg.SearchBaseURL),
			commands.NewCatalogClient(cfg.CatalogBaseURL),
			birthdays, guard, metrics)

		go relay.Run(ctx)
		go birthdays.Run(ctx, relay, cfg.HomeChannelID)
		go func() {
			for s := range relay.Events() {
				s := s
				go func() {
					if router.Handle(ctx, s) {
						return
					}
					orchestrator.HandleStimulus(ctx, s, relay)
				}()
			}
		}()
	}

	worker := music.NewWorker(cfg.MusicWorkerCommand)
	if worker.Enabled() {
		go worker.Run(ctx)
	}

	go retentionSweep(ctx, store, metrics, cfg.RetentionDays)

	server := &http.Server{Addr: cfg.BindAddr, Handler: httpapi.New(orchestrator).Router()}
	go func() {
		log.Printf("http: listening on %s", cfg.BindAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if relay != nil {
		relay.Close()
	}
	recorder.Flush()
}

// retentionSweep purges aged user turns daily. Assistant turns are exempt by
// the store contract.
func retentionSweep(ctx context.Context, store memory.Store, metrics *observability.Metrics, days int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		removed := store.PurgeOlderThan(ctx, days)
		if removed > 0 {
			log.Printf("memory: retention sweep removed %d turns", removed)
			metrics.PurgedTurns.Add(float64(removed))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
