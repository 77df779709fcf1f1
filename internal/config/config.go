package config

import (
	"fmt"
	"time"

	"github.com/phrazzld/gauge/internal/domain/analysis"
	"github.com/phrazzld/gauge/internal/domain/irt"
	"github.com/phrazzld/gauge/internal/domain/mastery"
	"github.com/phrazzld/gauge/internal/domain/pathing"
	"github.com/phrazzld/gauge/internal/domain/reminder"
	"github.com/phrazzld/gauge/internal/domain/selection"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Diagnostic DiagnosticConfig `mapstructure:"diagnostic"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Planning   PlanningConfig   `mapstructure:"planning"`
	Mastery    MasteryConfig    `mapstructure:"mastery"`
	Reminder   ReminderConfig   `mapstructure:"reminder"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains the settings used to verify bearer tokens issued by the
// host application.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	AdminRole string `mapstructure:"admin_role" validate:"required"`
	Issuer    string `mapstructure:"issuer"`
}

// DiagnosticConfig contains session defaults, selection and estimation settings.
type DiagnosticConfig struct {
	MaxQuestions       int             `mapstructure:"max_questions" validate:"gt=0,lte=500"`
	PrecisionThreshold float64         `mapstructure:"precision_threshold" validate:"gt=0"`
	TimeLimit          time.Duration   `mapstructure:"time_limit" validate:"gte=0"`
	InactivityGrace    time.Duration   `mapstructure:"inactivity_grace" validate:"gte=0"`
	ExposureCap        float64         `mapstructure:"exposure_cap" validate:"gt=0,lte=1"`
	CriticalFloor      float64         `mapstructure:"critical_floor" validate:"gte=0,lt=100"`
	Estimator          EstimatorConfig `mapstructure:"estimator"`
}

// EstimatorConfig contains the quadrature settings of the ability estimator.
type EstimatorConfig struct {
	ThetaMin      float64 `mapstructure:"theta_min" validate:"ltfield=ThetaMax"`
	ThetaMax      float64 `mapstructure:"theta_max"`
	InitialPoints int     `mapstructure:"initial_points" validate:"gte=3"`
	MaxIterations int     `mapstructure:"max_iterations" validate:"gt=0,lte=12"`
	Tolerance     float64 `mapstructure:"tolerance" validate:"gt=0"`
	PriorSD       float64 `mapstructure:"prior_sd" validate:"gt=0"`
}

// AnalysisConfig contains the domain classification thresholds.
type AnalysisConfig struct {
	TargetAbility float64 `mapstructure:"target_ability" validate:"gte=-4,lte=4"`
	WeakMargin    float64 `mapstructure:"weak_margin" validate:"gt=0"`
	StrongMargin  float64 `mapstructure:"strong_margin" validate:"gt=0"`
}

// PlanningConfig contains learning path scoring and scheduling settings.
type PlanningConfig struct {
	DifficultyMargin  float64       `mapstructure:"difficulty_margin" validate:"gt=0"`
	CoverageWeight    float64       `mapstructure:"coverage_weight" validate:"gt=0"`
	ProximityWeight   float64       `mapstructure:"proximity_weight" validate:"gt=0"`
	FallbackOffset    float64       `mapstructure:"fallback_offset" validate:"gt=0"`
	FallbackHours     float64       `mapstructure:"fallback_hours" validate:"gt=0"`
	StudyHoursPerWeek float64       `mapstructure:"study_hours_per_week" validate:"gt=0"`
	ReassessAfter     time.Duration `mapstructure:"reassess_after" validate:"gt=0"`
}

// MasteryConfig contains the mastery rule settings.
type MasteryConfig struct {
	Threshold int    `mapstructure:"threshold" validate:"gt=0"`
	Location  string `mapstructure:"location" validate:"required"`
}

// ReminderConfig contains reminder tier boundaries and batch settings.
type ReminderConfig struct {
	FirstDays   int `mapstructure:"first_days" validate:"gtefield=SecondDays"`
	SecondDays  int `mapstructure:"second_days" validate:"gtefield=FinalDays"`
	FinalDays   int `mapstructure:"final_days" validate:"gte=0"`
	OverdueDays int `mapstructure:"overdue_days" validate:"gte=0"`
	Concurrency int `mapstructure:"concurrency" validate:"gt=0,lte=64"`
}

// CatalogConfig points at the YAML file used by the seed command.
type CatalogConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

// SelectionParams converts the diagnostic section into item selector parameters.
func (c DiagnosticConfig) SelectionParams() *selection.Params {
	return selection.NewParams(selection.ParamsConfig{
		ExposureCap:   c.ExposureCap,
		CriticalFloor: c.CriticalFloor,
	})
}

// EstimatorParams converts the estimator section into estimator parameters.
func (c EstimatorConfig) EstimatorParams() *irt.EstimatorParams {
	return irt.NewEstimatorParams(irt.EstimatorParamsConfig{
		ThetaMin:      c.ThetaMin,
		ThetaMax:      c.ThetaMax,
		InitialPoints: c.InitialPoints,
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
		PriorSD:       c.PriorSD,
	})
}

// AnalysisParams converts the analysis section into analyzer parameters. The
// prior SD is shared with the estimator.
func (c *Config) AnalysisParams() *analysis.Params {
	target := c.Analysis.TargetAbility
	return analysis.NewParams(analysis.ParamsConfig{
		TargetAbility: &target,
		WeakMargin:    c.Analysis.WeakMargin,
		StrongMargin:  c.Analysis.StrongMargin,
		PriorSD:       c.Diagnostic.Estimator.PriorSD,
	})
}

// PathingParams converts the planning section into path selector parameters.
func (c PlanningConfig) PathingParams() *pathing.Params {
	return pathing.NewParams(pathing.ParamsConfig{
		DifficultyMargin:  c.DifficultyMargin,
		CoverageWeight:    c.CoverageWeight,
		ProximityWeight:   c.ProximityWeight,
		FallbackOffset:    c.FallbackOffset,
		FallbackHours:     c.FallbackHours,
		StudyHoursPerWeek: c.StudyHoursPerWeek,
		ReassessAfter:     c.ReassessAfter,
	})
}

// MasteryParams converts the mastery section into mastery rule parameters.
func (c MasteryConfig) MasteryParams() *mastery.Params {
	return mastery.NewParams(mastery.ParamsConfig{
		Threshold: c.Threshold,
		Location:  c.Location,
	})
}

// TierConfig converts the reminder section into a validated tier configuration.
func (c ReminderConfig) TierConfig() (reminder.Config, error) {
	cfg, err := reminder.NewConfig(c.FirstDays, c.SecondDays, c.FinalDays, c.OverdueDays)
	if err != nil {
		return reminder.Config{}, fmt.Errorf("reminder tiers: %w", err)
	}
	return cfg, nil
}
