// Package domain contains the core entities of the diagnostic engine: items and
// knowledge domains, diagnostic sessions and their responses, learning paths,
// personal learning plans, and the per-item mastery ledger. Entities validate
// themselves; the algorithms that act on them live in the subpackages.
package domain
