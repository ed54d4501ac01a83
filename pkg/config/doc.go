// Package config holds the settings of a bulkmail run. Settings come from an
// optional YAML file and are then overridden by command line flags and
// environment variables; Validate reports every missing or invalid field at
// once so a run fails before any contact is read.
package config
