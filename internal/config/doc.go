// Package config loads server settings in four layers: built-in defaults, an
// optional JSON file, environment variables and finally command-line flags.
// Each layer only overrides the values it actually sets.
package config
