// Package monitor runs the light alarm: it feeds frames from a capture source
// through a brightness extractor into the alarm and hands triggered alerts to
// a sink, while a threshold control adjusts the alarm at runtime.
package monitor
