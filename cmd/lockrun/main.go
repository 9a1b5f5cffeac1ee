// Command lockrun runs a shell command while holding a distributed lock,
// so that at most one instance of the command runs across all hosts sharing
// the same Redis. Usage:
//
//	lockrun -key nightly-report [-config lockrun.yaml] -- ./report.sh
//
// The command's exit code is passed through; exit code 75 (EX_TEMPFAIL)
// means the lock was held elsewhere and the command never ran.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"redislock"
	"redislock/internal/config"
	"redislock/internal/executor"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

// exitContended is returned when the lock is held by another process.
const exitContended = 75

func main() {
	configPath := flag.String("config", "", "path to configuration file (optional)")
	key := flag.String("key", "", "name of the resource to lock (required)")
	showVersion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lockrun %s\n", version)
		os.Exit(0)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *key == "" {
		logger.Error("missing required -key flag")
		os.Exit(1)
	}
	command := strings.Join(flag.Args(), " ")
	if command == "" {
		logger.Error("no command given")
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Verify Redis connection
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err, "address", cfg.Redis.Address)
		cancel()
		os.Exit(1)
	}
	cancel()
	logger.Debug("connected to Redis", "address", cfg.Redis.Address)

	// Build the lock
	registry := redislock.NewRegistry(redislock.Options{
		Timeout: cfg.Lock.Timeout,
		Retries: cfg.Lock.Retries,
		Delay:   cfg.Lock.Delay,
	})
	lock := registry.NewLock(redisClient, redislock.Options{})
	lockKey := cfg.Redis.KeyPrefix + *key

	// Shutdown signals cancel the acquisition wait and the command
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := lock.Acquire(ctx, lockKey); err != nil {
		var acqErr *redislock.AcquisitionError
		if errors.As(err, &acqErr) {
			logger.Error("resource is locked by another process", "key", lockKey)
			redisClient.Close()
			os.Exit(exitContended)
		}
		logger.Error("failed to acquire lock", "key", lockKey, "error", err)
		redisClient.Close()
		os.Exit(1)
	}
	logger.Info("acquired lock", "key", lockKey, "id", lock.ID(), "ttl", cfg.Lock.Timeout)

	// Notify systemd that we're ready and keep its watchdog fed while the
	// command runs
	notifySystemd(logger)
	stopWatchdog := startWatchdog(logger)

	// Run the guarded command
	result := executor.New().Execute(ctx, executor.Options{
		Command: command,
		WorkDir: cfg.Run.WorkDir,
		Env:     cfg.Run.Env,
		Timeout: cfg.Run.Timeout,
	})

	if stopWatchdog != nil {
		stopWatchdog()
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if result.Success() {
		logger.Info("command completed", "duration", formatDuration(result.Duration))
	} else {
		logger.Error("command failed",
			"duration", formatDuration(result.Duration),
			"exit_code", result.ExitCode,
			"error", result.Err,
		)
	}

	// Release with a fresh context: the signal context may already be done
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := lock.Release(releaseCtx); err != nil {
		var relErr *redislock.ReleaseError
		if errors.As(err, &relErr) {
			// Lease expired mid-run: the command may have lost exclusivity
			logger.Warn("lock ownership was lost before release", "key", lockKey)
		} else {
			logger.Error("failed to release lock", "key", lockKey, "error", err)
		}
	} else {
		logger.Debug("released lock", "key", lockKey)
	}
	cancel()

	redisClient.Close()

	exitCode := result.ExitCode
	if exitCode < 0 {
		exitCode = 1
	}
	os.Exit(exitCode)
}

// formatDuration formats a duration as seconds with 2 decimal places.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// notifySystemd sends the ready notification to systemd if running under systemd.
func notifySystemd(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd", "error", err)
	} else if sent {
		logger.Debug("notified systemd ready")
	}
}

// startWatchdog starts the systemd watchdog if configured.
// Returns a function to stop the watchdog, or nil if not running.
func startWatchdog(logger *slog.Logger) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return nil
	}

	logger.Info("starting systemd watchdog", "interval", interval)

	ticker := time.NewTicker(interval / 2)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				ticker.Stop()
				return
			case <-ticker.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()

	return func() {
		close(done)
	}
}
