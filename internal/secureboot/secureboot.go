// Package secureboot reads the firmware Secure Boot state.
package secureboot

import (
	"errors"
	"os"
	"os/exec"
	"strings"
)

// EfivarPath is the SecureBoot EFI variable exposed by efivarfs.
// The first four bytes are variable attributes, the fifth is the value.
const EfivarPath = "/sys/firmware/efi/efivars/SecureBoot-8be4df61-93ca-11d2-aa0d-00e098032b8c"

type runFunc func(name string, args ...string) ([]byte, error)

func run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Client queries the Secure Boot state via mokutil, falling back to a
// direct efivarfs read when mokutil is unavailable.
type Client struct {
	run        runFunc
	efivarPath string
}

// New creates a Client using the default efivar path.
func New() *Client {
	return &Client{run: run, efivarPath: EfivarPath}
}

// Enabled reports whether Secure Boot is active.
func (c *Client) Enabled() (bool, error) {
	out, err := c.run("mokutil", "--sb-state")
	if err == nil {
		return parseMokutil(string(out)), nil
	}

	data, readErr := os.ReadFile(c.efivarPath)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			// Non-EFI boot, Secure Boot cannot be active
			return false, nil
		}
		return false, readErr
	}
	return parseEfivar(data)
}

// parseMokutil scans mokutil --sb-state output.
func parseMokutil(out string) bool {
	return strings.Contains(out, "SecureBoot enabled")
}

// parseEfivar interprets the raw SecureBoot efivar contents.
func parseEfivar(data []byte) (bool, error) {
	if len(data) < 5 {
		return false, errors.New("SecureBoot efivar too short")
	}
	return data[4] == 1, nil
}
