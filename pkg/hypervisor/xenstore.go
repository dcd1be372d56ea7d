package hypervisor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// XenStoreClient talks to the shared host/guest store through the
// xenstore command-line tools. Store access needs elevated privilege, so
// every invocation goes through sudo; that is an implementation detail of
// this client, not part of the reset engine's contract.
type XenStoreClient struct {
	// runner executes a command and returns its combined output. Swapped
	// out in tests.
	runner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewXenStoreClient returns a client that shells out to xenstore-*.
func NewXenStoreClient() *XenStoreClient {
	return &XenStoreClient{
		runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

func (c *XenStoreClient) Write(ctx context.Context, key, value string) error {
	if out, err := c.runner(ctx, "sudo", "xenstore-write", key, value); err != nil {
		return fmt.Errorf("xenstore-write %s: %w (%s)", key, err, strings.TrimSpace(string(out)))
	}

	return nil
}

func (c *XenStoreClient) Read(ctx context.Context, key string) (string, error) {
	out, err := c.runner(ctx, "sudo", "xenstore-read", key)
	if err != nil {
		return "", fmt.Errorf("xenstore-read %s: %w", key, err)
	}

	return strings.TrimSpace(string(out)), nil
}

func (c *XenStoreClient) Exists(ctx context.Context, key string) (bool, error) {
	// xenstore-exists exits non-zero when the key is absent.
	if _, err := c.runner(ctx, "sudo", "xenstore-exists", key); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}

		return false, fmt.Errorf("xenstore-exists %s: %w", key, err)
	}

	return true, nil
}

func (c *XenStoreClient) Remove(ctx context.Context, key string) error {
	if out, err := c.runner(ctx, "sudo", "xenstore-rm", key); err != nil {
		return fmt.Errorf("xenstore-rm %s: %w (%s)", key, err, strings.TrimSpace(string(out)))
	}

	return nil
}
