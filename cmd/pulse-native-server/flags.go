package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliConfig holds user-supplied flag values prior to translation into
// server.Config, so main.go can validate and map in one place.
type cliConfig struct {
	socketPath   string
	tcpAddr      string
	cookiePath   string
	logLevel     string
	tuningPath   string
	selfSnapName string
	zeroconf     bool
	showVersion  bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := pflag.NewFlagSet("pulse-native-server", pflag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	defaultSocket := defaultSocketPath()

	fs.StringVar(&cfg.socketPath, "socket", defaultSocket, "UNIX control socket path")
	fs.StringVar(&cfg.tcpAddr, "tcp", "", "optional TCP listen address (host:port); empty disables it")
	fs.StringVar(&cfg.cookiePath, "cookie", defaultCookiePath(), "auth cookie file path")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.StringVar(&cfg.tuningPath, "config", "", "optional YAML tuning file")
	fs.StringVar(&cfg.selfSnapName, "snap-name", os.Getenv("SNAP_NAME"), "this server's own snap name, if confined")
	fs.BoolVar(&cfg.zeroconf, "zeroconf", false, "announce the TCP listener over DNS-SD (requires -tcp)")
	fs.BoolVar(&cfg.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	if cfg.zeroconf && cfg.tcpAddr == "" {
		return nil, fmt.Errorf("-zeroconf requires -tcp to be set")
	}

	return cfg, nil
}

// defaultSocketPath mirrors libpulse's own default: the native socket
// lives under the user's XDG runtime directory.
func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir + "/pulse/native"
	}
	return fmt.Sprintf("/run/user/%d/pulse/native", os.Getuid())
}

// defaultCookiePath mirrors libpulse's own default cookie location,
// honoring PULSE_COOKIE when set.
func defaultCookiePath() string {
	if p := os.Getenv("PULSE_COOKIE"); p != "" {
		return p
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.config/pulse/cookie"
	}
	return ""
}
