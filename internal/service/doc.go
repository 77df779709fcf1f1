// Package service groups the application services of gauge. Each subpackage
// owns one use case and coordinates the domain algorithms with the stores:
//
//   - diagnostic runs adaptive sessions and sweeps timed-out ones
//   - planning analyzes completed sessions and generates learning plans
//   - mastery maintains the per-item mastery ledger
//   - reminder sends re-assessment reminders for active plans
//   - auth verifies the bearer tokens presented to the API
//
// Services receive their stores through constructors and never depend on a
// concrete database implementation.
package service
