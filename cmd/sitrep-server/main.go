// Command sitrep-server runs the situational-awareness API: it wires the
// store, enrichment, ingest, fusion, dossier, auth, notify, scheduler, and
// realtime services together and serves the REST and GraphQL-explorer
// surfaces, following the teacher's cmd/main.go service-wiring shape
// (connect DB, migrate, construct services, start scheduler, serve with
// graceful shutdown).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/harrowgate/sitrep/internal/apierr"
	"github.com/harrowgate/sitrep/internal/auth"
	"github.com/harrowgate/sitrep/internal/config"
	"github.com/harrowgate/sitrep/internal/dossier"
	"github.com/harrowgate/sitrep/internal/enrichment"
	"github.com/harrowgate/sitrep/internal/fusion"
	"github.com/harrowgate/sitrep/internal/geocode"
	"github.com/harrowgate/sitrep/internal/graphql"
	"github.com/harrowgate/sitrep/internal/httpapi"
	"github.com/harrowgate/sitrep/internal/ingest"
	"github.com/harrowgate/sitrep/internal/metrics"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/harrowgate/sitrep/internal/notify"
	"github.com/harrowgate/sitrep/internal/realtime"
	"github.com/harrowgate/sitrep/internal/scheduler"
	"github.com/harrowgate/sitrep/internal/store"
	"github.com/rs/zerolog"
)

func setupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Caller().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func main() {
	cfg := config.Load()
	log := setupLogger(cfg)

	st, err := store.New(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	var primary enrichment.Capability
	if cfg.LLMProviderURL != "" {
		primary = enrichment.NewOpenAIClient(cfg.LLMProviderURL, cfg.LLMAPIKey, cfg.LLMModelID, cfg.LLMTemperature, cfg.LLMMaxTokens)
	}
	fallback := enrichment.NewFallbackClient()
	if primary == nil {
		primary = fallback
	}
	geocoder := geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderDisable, cfg.GeocoderRPS)
	enrichSvc := enrichment.NewService(primary, fallback, geocoder, log, cfg.LLMTimeout)

	matcher := dossier.NewMatcher(st)
	broker := realtime.NewBroker(log)

	var transport notify.Transport = &notify.NoopTransport{}
	if cfg.SMTPHost != "" {
		transport = &notify.SMTPTransport{Host: cfg.SMTPHost, Port: cfg.SMTPPort, User: cfg.SMTPUser, Pass: cfg.SMTPPass, From: cfg.SMTPFrom}
	}
	dispatcher := notify.NewDispatcher(transport, log)

	// postIngest is the supplemented dossier-driven alerting control flow:
	// every newly-persisted event is matched against dossiers, broadcast to
	// realtime subscribers, and (if it crosses an org's thresholds) handed
	// to the notify dispatcher.
	postIngest := func(ctx context.Context, e *models.Event) {
		broker.PublishNewEvent(ctx, e)

		results, err := matcher.Match(ctx, e)
		if err != nil {
			log.Warn().Err(err).Msg("dossier match failed")
			return
		}
		for _, res := range results {
			broker.PublishAlertTriggered(ctx, res.OrgID, e, "dossier_match:"+res.DossierID)
			dispatchAlertIfDue(ctx, st, dispatcher, res.OrgID, e, log)
		}
	}

	pool := ingest.NewPool(st, enrichSvc.Enrich, postIngest, cfg.IngestMaxInFlightPerSource, cfg.BreakerFailureThreshold, cfg.BreakerHalfOpenAfter, log)
	fusionEngine := fusion.NewEngine(st, log, cfg.FusionWindow)
	authSvc := auth.NewService(cfg.JWTSecret, 24*time.Hour)

	ingestInterval := time.Duration(cfg.IngestDefaultIntervalS) * time.Second

	sched := scheduler.NewService(log)
	_ = sched.AddJob(scheduler.Job{
		Name: "ingest", Spec: "@every " + ingestInterval.String(),
		Run: func(ctx context.Context) error {
			n, err := pool.RunOnce(ctx)
			log.Info().Int("events", n).Msg("ingest pass complete")
			return err
		},
	})
	_ = sched.AddJob(scheduler.Job{
		Name: "fusion", Spec: "@every " + cfg.FusionTickInterval.String(),
		Run: func(ctx context.Context) error {
			n, err := fusionEngine.RunPass(ctx, 0)
			log.Info().Int("clusters_created", n).Msg("fusion pass complete")
			return err
		},
	})
	_ = sched.AddJob(scheduler.Job{
		Name: "dossier_stats", Spec: "@every " + cfg.DossierStatsInterval.String(),
		Run: func(ctx context.Context) error {
			_, err := dossier.RefreshAll(ctx, st)
			return err
		},
	})
	_ = sched.AddJob(scheduler.Job{
		Name: "retention", Spec: "@every " + cfg.RetentionTickInterval.String(),
		Run: func(ctx context.Context) error {
			softDeleted, err := st.SoftDeleteExpiredEvents(ctx, cfg.EventRetentionDays)
			if err != nil {
				return err
			}
			purged, err := st.PurgeDeletedEvents(ctx, cfg.RetentionGraceDays)
			if err != nil {
				return err
			}
			auditPurged, err := st.PurgeExpiredAudit(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("soft_deleted", softDeleted).Int("purged", purged).Int("audit_purged", auditPurged).Msg("retention sweep complete")
			return nil
		},
	})

	api := httpapi.New(st, authSvc, fusionEngine, matcher, cfg.AdminAPIKey, log)

	r := chi.NewRouter()
	r.Mount("/", api.Router())
	r.Handle("/ws", broker)
	if !cfg.MetricsDisabled {
		r.Handle("/metrics", metrics.Handler())
	}
	// The GraphQL explorer is operator-only: it answers only requests that
	// carry the configured X-Admin-API-Key.
	r.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if cfg.AdminAPIKey == "" || req.Header.Get("X-Admin-API-Key") != cfg.AdminAPIKey {
				apierr.WriteProblem(w, apierr.Unauthorized("invalid admin api key", nil), "")
				return
			}
			next.ServeHTTP(w, req)
		})
	}).Handle("/graphql", graphql.NewHandler(st))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("sitrep server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("shutdown complete")
}

// dispatchAlertIfDue checks the matched event's org settings and, when
// email alerts are enabled and the event's priority_score reaches the org's
// high_priority_threshold, sends an alert to each of the org's admin users.
// Alert categories and sentiment types are not consulted here.
func dispatchAlertIfDue(ctx context.Context, st *store.Store, d *notify.Dispatcher, orgID string, e *models.Event, log zerolog.Logger) {
	settings, err := st.GetOrgSettings(ctx, orgID)
	if err != nil {
		log.Warn().Err(err).Str("org", orgID).Msg("load org settings for alert dispatch")
		return
	}
	if !settings.EmailAlertsEnabled {
		return
	}
	if e.PriorityScore < settings.HighPriorityThreshold {
		return
	}

	emails, err := st.OrgAdminEmails(ctx, orgID)
	if err != nil || len(emails) == 0 {
		return
	}
	for _, to := range emails {
		_ = d.Dispatch(ctx, notify.Alert{OrgID: orgID, Event: *e, Reason: "high_priority", Recipient: to})
	}
}
