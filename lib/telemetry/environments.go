package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"catalogdesk-backend/lib/configutil"
)

// ErrNotConfigured is returned by SetupFromEnv when no telemetry.json5 exists
// anywhere above the working directory.
var ErrNotConfigured = errors.New("telemetry.json5 not found")

var (
	setupTestLock         sync.Mutex
	setupTestEnvironments = map[string]bool{}
)

// sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once. a missing telemetry.json5 is not an error here.
func SetupForTesting(serviceName string) func() {
	setupTestLock.Lock()
	defer setupTestLock.Unlock()

	if setupTestEnvironments[serviceName] {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	InitSlog(true)
	err := SetupFromEnv(context.Background(), serviceName)
	if errors.Is(err, ErrNotConfigured) {
		return func() {}
	}
	if err != nil {
		panic(err)
	}

	return func() {
		err = Shutdown(context.Background())
		if err != nil {
			panic(err)
		}
	}
}

// searches up the filesystem from the cwd to find a file
// called telemetry.json5, once found it will then use it
// as a config to setup telemetry
func SetupFromEnv(ctx context.Context, serviceName string) error {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if os.IsNotExist(err) {
		return ErrNotConfigured
	}
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "telemetry config found", "service", serviceName)
	return Setup(ctx, serviceName, config)
}
