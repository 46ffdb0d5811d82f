// Package logger wraps zap with a context-carried sugared logger.
//
// Every service receives a context and pulls its logger from it, so names
// and key-value pairs attached upstream (source, sink, alert id) follow the
// frame through the whole pipeline.
package logger
