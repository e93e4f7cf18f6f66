package cmd

import (
	"errors"
	"fmt"
	"os"

	berrors "go.etcd.io/bbolt/errors"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/bbolt"
	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/socket"
	"github.com/mommothazaz123/avrae-search-nn/internal/app"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
func isDBLockError(err error) bool {
	return errors.Is(err, berrors.ErrTimeout)
}

// diagnoseDBLock returns actionable guidance when the store cannot be opened
// because another process holds its file lock.
func diagnoseDBLock(storePath string) string {
	msg := fmt.Sprintf("store %s is locked by another process\n", storePath)
	sockPath := app.SocketPath(cfg)
	if socket.NewClient(sockPath).Ping() {
		return msg + "  -> a running daemon does not hold the store; look for another prepare or evaluate run"
	}
	if _, err := os.Stat(sockPath); err == nil {
		return msg + fmt.Sprintf("  -> a stale daemon socket exists at %s\n", sockPath) +
			"  -> find the process:  ps aux | grep nnsearch"
	}
	return msg + "  -> find the process:  ps aux | grep nnsearch\n" +
		"  -> then retry your command"
}

// openStore opens the configured batch store, the parent directory included.
func openStore() (*bbolt.Store, error) {
	path := cfg.Data.Store
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	store, err := bbolt.NewStore(path)
	if err != nil {
		if isDBLockError(err) {
			return nil, errors.New(diagnoseDBLock(path))
		}
		return nil, err
	}
	return store, nil
}
