package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/gauge/internal/api"
	apimiddleware "github.com/phrazzld/gauge/internal/api/middleware"
	"github.com/phrazzld/gauge/internal/catalog"
	"github.com/phrazzld/gauge/internal/config"
	"github.com/phrazzld/gauge/internal/domain/analysis"
	"github.com/phrazzld/gauge/internal/domain/irt"
	domainmastery "github.com/phrazzld/gauge/internal/domain/mastery"
	"github.com/phrazzld/gauge/internal/domain/pathing"
	domainreminder "github.com/phrazzld/gauge/internal/domain/reminder"
	"github.com/phrazzld/gauge/internal/domain/selection"
	"github.com/phrazzld/gauge/internal/events"
	"github.com/phrazzld/gauge/internal/platform/postgres"
	"github.com/phrazzld/gauge/internal/service/auth"
	"github.com/phrazzld/gauge/internal/service/diagnostic"
	"github.com/phrazzld/gauge/internal/service/mastery"
	"github.com/phrazzld/gauge/internal/service/planning"
	"github.com/phrazzld/gauge/internal/service/reminder"
	"github.com/phrazzld/gauge/internal/store"
)

// application holds the wired stores and services shared by every command.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	tx        store.TxRunner
	domains   *postgres.PostgresDomainStore
	items     *postgres.PostgresItemStore
	paths     *postgres.PostgresLearningPathStore
	sessions  *postgres.PostgresSessionStore
	responses *postgres.PostgresResponseStore
	plans     *postgres.PostgresPlanStore
	masteries *postgres.PostgresMasteryStore

	emitter    *events.InMemoryEventEmitter
	diagnostic diagnostic.Service
	planning   planning.Service
	mastery    mastery.Service
	reminders  reminder.Service
	tokens     *auth.HMACValidator
}

// newApplication wires stores, services and event handlers on top of db.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		tx:        store.NewSQLTxRunner(db),
		domains:   postgres.NewPostgresDomainStore(db, logger),
		items:     postgres.NewPostgresItemStore(db, logger),
		paths:     postgres.NewPostgresLearningPathStore(db, logger),
		sessions:  postgres.NewPostgresSessionStore(db, logger),
		responses: postgres.NewPostgresResponseStore(db, logger),
		plans:     postgres.NewPostgresPlanStore(db, logger),
		masteries: postgres.NewPostgresMasteryStore(db, logger),
		emitter:   events.NewInMemoryEventEmitter(logger),
	}

	estimator := irt.NewEstimatorWithParams(cfg.Diagnostic.Estimator.EstimatorParams())

	app.diagnostic = diagnostic.NewService(diagnostic.Dependencies{
		Tx:        app.tx,
		Sessions:  app.sessions,
		Responses: app.responses,
		Items:     app.items,
		Domains:   app.domains,
		Plans:     app.plans,
		Selector:  selection.NewSelectorWithParams(cfg.Diagnostic.SelectionParams()),
		Estimator: estimator,
		Emitter:   app.emitter,
	}, diagnosticParams(cfg.Diagnostic), logger)

	app.planning = planning.NewService(planning.Dependencies{
		Tx:        app.tx,
		Sessions:  app.sessions,
		Responses: app.responses,
		Items:     app.items,
		Domains:   app.domains,
		Paths:     app.paths,
		Plans:     app.plans,
		Analyzer:  analysis.NewAnalyzer(estimator, cfg.AnalysisParams()),
		Pathing:   pathing.NewSelectorWithParams(cfg.Planning.PathingParams()),
	}, logger)

	tracker, err := domainmastery.NewTrackerWithParams(cfg.Mastery.MasteryParams())
	if err != nil {
		return nil, fmt.Errorf("failed to create mastery tracker: %w", err)
	}
	app.mastery = mastery.NewService(app.tx, app.masteries, tracker, nil, logger)

	tiers, err := cfg.Reminder.TierConfig()
	if err != nil {
		return nil, err
	}
	policy, err := domainreminder.NewPolicy(tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder policy: %w", err)
	}
	app.reminders = reminder.NewService(app.plans, policy, nil, cfg.Reminder.Concurrency, logger)

	app.tokens, err = auth.NewHMACValidator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}

	app.emitter.RegisterHandler(planning.NewCompletionHandler(app.planning, app.sessions, logger))
	app.emitter.RegisterHandler(mastery.NewResponseHandler(app.mastery, logger))

	return app, nil
}

// diagnosticParams converts the diagnostic section into session defaults.
func diagnosticParams(cfg config.DiagnosticConfig) *diagnostic.Params {
	timeLimit, grace := cfg.TimeLimit, cfg.InactivityGrace
	return diagnostic.NewParams(diagnostic.ParamsConfig{
		MaxQuestions:       cfg.MaxQuestions,
		PrecisionThreshold: cfg.PrecisionThreshold,
		TimeLimit:          &timeLimit,
		InactivityGrace:    &grace,
	})
}

// router builds the HTTP handler for the serve command.
func (app *application) router() http.Handler {
	authMiddleware := apimiddleware.NewAuthMiddleware(app.tokens, app.config.Auth.AdminRole)

	return api.NewRouter(api.RouterConfig{
		Auth:     authMiddleware,
		Sessions: api.NewSessionHandler(app.diagnostic, app.planning, authMiddleware.IsAdmin, app.logger),
		Plans:    api.NewPlanHandler(app.planning, app.logger),
		Mastery:  api.NewMasteryHandler(app.mastery, app.logger),
		Admin:    api.NewAdminHandler(app.diagnostic, app.reminders, nil, app.logger),
		DB:       app.db,
		Logger:   app.logger,
	})
}

// seeder returns the catalog seeder bound to the application's stores.
func (app *application) seeder() *catalog.Seeder {
	return catalog.NewSeeder(app.tx, app.domains, app.items, app.paths, app.config.Diagnostic.CriticalFloor, app.logger)
}

// cleanup releases the database pool.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", slog.String("error", err.Error()))
		return
	}
	app.logger.Debug("database connection closed")
}
