// Package sink plays brightness alerts.
//
// A Sink starts an alert and returns at once. It reports the end of the alert
// by calling done exactly once, from any goroutine, even when playback fails.
package sink
