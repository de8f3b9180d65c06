package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"syscall"
	"time"

	"github.com/pulsenative/pulsed/internal/logger"
	"github.com/pulsenative/pulsed/internal/pulse/command"
	"github.com/pulsenative/pulsed/internal/pulse/config"
	"github.com/pulsenative/pulsed/internal/pulse/listener"
	"github.com/pulsenative/pulsed/internal/pulse/sandbox"
	srv "github.com/pulsenative/pulsed/internal/pulse/server"
	"github.com/pulsenative/pulsed/internal/pulse/zeroconf"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		// pflag prints its own parse errors; parseFlags' validation errors
		// exit without a message
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	tuning, err := config.Load(cfg.tuningPath)
	if err != nil {
		log.Error("failed to load tuning file", "path", cfg.tuningPath, "error", err)
		os.Exit(1)
	}

	server := srv.New(srv.Config{
		Listener: listener.Config{
			SocketPath:   cfg.socketPath,
			TCPAddr:      cfg.tcpAddr,
			SelfSnapName: cfg.selfSnapName,
			PolicyClient: sandbox.NewSnapdClient(""),
		},
		Command: command.Config{
			ServerName:      tuning.ServerName,
			ServerVersion:   tuning.ServerVersion,
			UserName:        currentUsername(),
			HostName:        hostName(),
			Cookie:          config.LoadCookie(cfg.cookiePath),
			SelfSnapName:    cfg.selfSnapName,
			IdleTimeout:     tuning.IdleTimeout,
			DefaultFormat:   tuning.DefaultFormat,
			DefaultChannels: tuning.DefaultChannels,
			DefaultRate:     tuning.DefaultRate,
		},
	}, nil)

	if err := server.Start(); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	log.Info("server started", "socket", cfg.socketPath, "tcp", cfg.tcpAddr, "version", version)

	var announcer *zeroconf.Announcer
	if cfg.zeroconf {
		announcer, err = zeroconf.Start(zeroconf.Config{
			InstanceName: tuning.ServerName,
			Port:         tcpPort(cfg.tcpAddr),
			Text: map[string]string{
				"protocol-version": fmt.Sprintf("%d", 35),
			},
		})
		if err != nil {
			log.Warn("zeroconf announcement failed to start", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutdown signal received")

	announcer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		server.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
		os.Exit(1)
	}
}

func currentUsername() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

func hostName() string {
	h, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return h
}

// tcpPort extracts the numeric port from a host:port address for the
// zeroconf announcement; 0 if unset or unparsable (Start skips
// announcing a service with no useful port).
func tcpPort(addr string) int {
	var port int
	if addr == "" {
		return 0
	}
	if _, err := fmt.Sscanf(lastColonField(addr), "%d", &port); err != nil {
		return 0
	}
	return port
}

func lastColonField(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i+1:]
		}
	}
	return addr
}
