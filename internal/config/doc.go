// Package config defines the light-alarm settings and helpers to load,
// validate and save them as YAML, or as TOML when the file ends in .toml.
package config
