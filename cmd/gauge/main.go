// Package main is the gauge command: it serves the diagnostic API and runs the
// operator jobs (migrations, catalog seeding, session sweeps and reminders).
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
