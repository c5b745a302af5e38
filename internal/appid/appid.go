// Package appid holds the identity the binary presents in help text, config
// discovery, environment variables, and telemetry.
package appid

import "strings"

// Identity names the application across its surfaces.
type Identity struct {
	BinaryName         string
	ConfigName         string
	EnvPrefix          string
	Description        string
	TelemetryNamespace string
}

var current = Identity{
	BinaryName:         "ixra",
	ConfigName:         "ixra",
	EnvPrefix:          "IXRA",
	Description:        "IXRA site backend: chat assistant, quote estimator, and contact intake",
	TelemetryNamespace: "ixra",
}

// Get returns the application identity.
func Get() Identity {
	return current
}

// EnvVar returns the prefixed environment variable name for key.
func (i Identity) EnvVar(key string) string {
	prefix := strings.TrimSuffix(i.EnvPrefix, "_")
	return prefix + "_" + strings.ToUpper(key)
}
