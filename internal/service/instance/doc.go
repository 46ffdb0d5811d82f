// Package instance keeps a single light-alarm capture session per machine.
package instance
