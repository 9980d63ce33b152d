package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"infobeamer-cms/internal/cache"
	"infobeamer-cms/internal/services"
	"infobeamer-cms/internal/syncer"
)

// CheckDirectoryAccess verifies path is a directory the process may read and
// write.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCache writes and reads back a probe key.
func CheckCache(ctx context.Context, store cache.Store) Result {
	const name = "Request cache"
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	key := "ibh:preflight"
	value := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := store.Set(checkCtx, key, value, time.Minute); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("write failed: %v", err)}
	}
	got, err := store.Get(checkCtx, key)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("read failed: %v", err)}
	}
	if string(got) != string(value) {
		return Result{Name: name, Detail: "read back a different value"}
	}
	return Result{Name: name, Passed: true, Detail: "read/write ok"}
}

// CheckHostedAPI verifies the API key by listing devices.
func CheckHostedAPI(ctx context.Context, api API) Result {
	const name = "Hosted API"
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	devices, err := api.ListDevices(checkCtx, false)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authenticated, %d devices", len(devices))}
}

// CheckSetup verifies a setup exists and carries a "User Content" schedule.
func CheckSetup(ctx context.Context, api API, id int64) Result {
	name := fmt.Sprintf("Setup %d", id)
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	setup, err := api.GetSetup(checkCtx, id)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	raw, ok := setup.DefaultConfig()
	if !ok {
		return Result{Name: name, Detail: "no default configuration"}
	}
	found, err := syncer.HasSchedule(raw)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if !found {
		return Result{Name: name, Detail: fmt.Sprintf("%s: no %q schedule", setup.Name, syncer.ScheduleName)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s: %q schedule present", setup.Name, syncer.ScheduleName)}
}

func summarizeError(err error) string {
	switch {
	case errors.Is(err, services.ErrConfiguration):
		return "credentials rejected"
	case errors.Is(err, services.ErrNotFound):
		return "not found"
	case errors.Is(err, services.ErrTimeout):
		return "timed out"
	default:
		return err.Error()
	}
}
