// Package config provides application configuration loaded from
// environment variables (EP_ prefix) with an optional YAML file overlay.
// Configuration covers the HTTP server, logging, the four upstream
// result feeds with their cache windows, and pipeline behavior.
package config
