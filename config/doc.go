// Package config loads the YAML configuration file for the steward daemon
// and fills in defaults for anything the file leaves out.
package config
