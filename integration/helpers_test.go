//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	buildOnce   sync.Once
	binaryPath  string
	buildErr    error
	projectRoot string
)

// RedisContainer wraps a testcontainers Redis instance.
type RedisContainer struct {
	container testcontainers.Container
	addr      string
	client    *redis.Client
}

// setupRedis starts a Redis container and returns connection info.
func setupRedis(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis host: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis port: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", host, port.Port())

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisContainer{
		container: container,
		addr:      addr,
		client:    client,
	}, nil
}

// Addr returns the Redis address.
func (r *RedisContainer) Addr() string {
	return r.addr
}

// Client returns the Redis client.
func (r *RedisContainer) Client() *redis.Client {
	return r.client
}

// Terminate stops the Redis container.
func (r *RedisContainer) Terminate(ctx context.Context) error {
	if r.client != nil {
		r.client.Close()
	}
	if r.container != nil {
		return r.container.Terminate(ctx)
	}
	return nil
}

// KeyValue returns the value stored under key, or "" if absent.
func (r *RedisContainer) KeyValue(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// KeyExists checks if a key exists.
func (r *RedisContainer) KeyExists(ctx context.Context, key string) (bool, error) {
	result, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// buildLockrun builds the lockrun binary once and returns the path.
func buildLockrun(t *testing.T) string {
	buildOnce.Do(func() {
		// Find project root
		wd, err := os.Getwd()
		if err != nil {
			buildErr = fmt.Errorf("failed to get working directory: %w", err)
			return
		}

		// Navigate to project root (parent of integration/)
		projectRoot = filepath.Dir(wd)

		// Build binary
		binaryPath = filepath.Join(projectRoot, "lockrun-test")
		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/lockrun")
		cmd.Dir = projectRoot
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			buildErr = fmt.Errorf("failed to build lockrun: %w", err)
			return
		}
	})

	if buildErr != nil {
		t.Fatalf("build failed: %v", buildErr)
	}

	return binaryPath
}

// writeLockrunConfig generates a YAML config file and returns the path.
func writeLockrunConfig(t *testing.T, redisAddr string, lockTimeout, lockDelay time.Duration, retries int) string {
	t.Helper()

	configContent := fmt.Sprintf(`redis:
  address: "%s"
  key_prefix: "lockrun:"

lock:
  timeout: %s
  retries: %d
  delay: %s
`, redisAddr, lockTimeout, retries, lockDelay)

	configPath := filepath.Join(t.TempDir(), "lockrun.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return configPath
}

// runLockrun runs the lockrun binary to completion and returns its exit
// code and combined output.
func runLockrun(t *testing.T, ctx context.Context, configPath, key, command string) (int, string) {
	t.Helper()

	binaryPath := buildLockrun(t)

	cmd := exec.CommandContext(ctx, binaryPath, "-config", configPath, "-key", key, "--", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), string(out)
		}
		t.Fatalf("failed to run lockrun: %v\n%s", err, out)
	}
	return 0, string(out)
}

// startLockrun starts the lockrun binary without waiting for it.
func startLockrun(t *testing.T, ctx context.Context, configPath, key, command string) *exec.Cmd {
	t.Helper()

	binaryPath := buildLockrun(t)

	cmd := exec.CommandContext(ctx, binaryPath, "-config", configPath, "-key", key, "--", command)
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start lockrun: %v", err)
	}
	return cmd
}

// waitForFile waits for a file to exist and optionally have minimum content.
func waitForFile(path string, timeout time.Duration, minSize int64) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err == nil && info.Size() >= minSize {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for file %s", path)
}
