// Package ui implements a terminal sync monitor using bubbletea's Elm architecture.
//
// The [Model] renders a live view of a sync run:
//  1. [RunningView] : per-phase progress with a gradient bar
//  2. [ResultView] : run summary with per-operation failures
//
// Progress updates flow through a buffered channel from the sync
// executor, keeping status reporting non-blocking during the run.
package ui
