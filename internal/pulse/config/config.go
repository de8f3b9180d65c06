// Package config loads the server's own tuning knobs — the ones
// spec.md §1 carves out as distinct from the opaque engine's
// configuration file — from an optional YAML file, layered under
// command-line defaults the same way the teacher's CLI layers flag
// defaults under parsed values.
package config

import (
	"os"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// Tuning holds the server-local knobs a deployment may want to override
// without touching the opaque engine's own config: the advertised server
// name and version, the default sample format, channel count and rate,
// and the idle-stream timeout. It holds no pool or buffer-negotiation
// knobs; the pulse.min.*/pulse.default.* client properties are the only
// per-stream negotiation overrides.
type Tuning struct {
	ServerName      string `yaml:"server_name"`
	ServerVersion   string `yaml:"server_version"`
	DefaultFormat   uint8  `yaml:"default_format"`
	DefaultChannels uint8  `yaml:"default_channels"`
	DefaultRate     uint32 `yaml:"default_rate"`
	IdleTimeout     uint32 `yaml:"idle_timeout_seconds"`
}

// Defaults returns the tuning baseline used when no file is given, and
// to fill any field a given file leaves at its zero value.
func Defaults() Tuning {
	return Tuning{
		ServerName:      "pulsed",
		ServerVersion:   "15.0.0",
		DefaultFormat:   3, // sample.S16LE's wire value
		DefaultChannels: 2,
		DefaultRate:     44100,
		IdleTimeout:     20,
	}
}

// Load reads a YAML tuning file at path, if non-empty, and merges it
// over Defaults(): any field the file leaves zero falls back to the
// default rather than zeroing out the server's negotiation behavior. An
// empty path returns Defaults() unchanged.
func Load(path string) (Tuning, error) {
	defaults := Defaults()
	if path == "" {
		return defaults, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, pulseerrors.NewIOError("config.load.read", err)
	}

	tuning := Tuning{}
	if err := yaml.Unmarshal(raw, &tuning); err != nil {
		return Tuning{}, pulseerrors.NewIOError("config.load.unmarshal", err)
	}

	if err := mergo.Merge(&tuning, defaults); err != nil {
		return Tuning{}, pulseerrors.NewIOError("config.load.merge", err)
	}
	return tuning, nil
}

// LoadCookie reads the 256-byte auth cookie from path. A missing or
// unreadable cookie file disables cookie auth (the caller proceeds with
// a nil/empty cookie, falling back to peer-credential auth) rather than
// failing startup, matching spec.md's "unreadable cookie disables
// cookie auth" rule.
func LoadCookie(path string) []byte {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}
