// Package config loads application settings from defaults, an optional
// YAML file, a .env file and SCRY_-prefixed environment variables, and
// validates them before anything else starts.
package config
