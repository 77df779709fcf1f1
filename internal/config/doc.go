// Package config loads, defaults and validates application settings.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional config.yaml, and GAUGE_* environment variables (a local .env file
// is read into the environment first). Nested keys map to variables by
// replacing dots with underscores, so diagnostic.max_questions is read from
// GAUGE_DIAGNOSTIC_MAX_QUESTIONS.
//
// Sections convert into the parameter types of the domain packages so that
// defaults are resolved once, at startup.
package config
