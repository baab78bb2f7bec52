// Package data bundles the scenario catalogues shipped with the engine.
package data

import "embed"

// Scenarios holds every file under scenarios/.
//
//go:embed scenarios
var Scenarios embed.FS
