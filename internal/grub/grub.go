// Package grub manages persistent kernel arguments and the boot menu
// via grubby and grub2-mkconfig.
package grub

import (
	"fmt"
	"os/exec"
	"strings"
)

const (
	// GrubbyBin updates kernel arguments across installed kernels.
	GrubbyBin = "grubby"
	// MkconfigBin regenerates the boot menu file.
	MkconfigBin = "grub2-mkconfig"
)

type runFunc func(name string, args ...string) ([]byte, error)

func run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Client shells out to the bootloader tools.
type Client struct {
	run       runFunc
	configOut string // boot menu output path, e.g. /boot/grub2/grub.cfg
	arg       string // kernel argument toggled on all kernels
}

// New creates a Client that toggles arg and writes the regenerated
// menu to configOut.
func New(configOut, arg string) *Client {
	return &Client{run: run, configOut: configOut, arg: arg}
}

// RootCryptoUUID extracts the root volume's crypto UUID from the
// default kernel's arguments. Returns "" when no rd.luks.uuid argument
// is present.
func (c *Client) RootCryptoUUID() (string, error) {
	out, err := c.run(GrubbyBin, "--info=DEFAULT")
	if err != nil {
		return "", fmt.Errorf("grubby --info=DEFAULT failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return parseRootUUID(string(out)), nil
}

// parseRootUUID finds rd.luks.uuid=[luks-]<uuid> in a grubby info dump.
func parseRootUUID(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "args=") {
			continue
		}
		args := strings.Trim(strings.TrimPrefix(line, "args="), `"`)
		for _, tok := range strings.Fields(args) {
			if !strings.HasPrefix(tok, "rd.luks.uuid=") {
				continue
			}
			uuid := strings.TrimPrefix(tok, "rd.luks.uuid=")
			uuid = strings.TrimPrefix(uuid, "luks-")
			if uuid != "" {
				return uuid
			}
		}
	}
	return ""
}

// HasUnlockArg reports whether any installed kernel carries the unlock
// argument.
func (c *Client) HasUnlockArg() (bool, error) {
	out, err := c.run(GrubbyBin, "--info=ALL")
	if err != nil {
		return false, fmt.Errorf("grubby --info=ALL failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return strings.Contains(string(out), c.arg), nil
}

// AddUnlockArg appends the unlock argument to every installed kernel.
func (c *Client) AddUnlockArg() error {
	out, err := c.run(GrubbyBin, "--update-kernel=ALL", "--args="+c.arg)
	if err != nil {
		return fmt.Errorf("failed to add kernel argument: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// RemoveUnlockArg strips the unlock argument from every installed kernel.
func (c *Client) RemoveUnlockArg() error {
	out, err := c.run(GrubbyBin, "--update-kernel=ALL", "--remove-args="+c.arg)
	if err != nil {
		return fmt.Errorf("failed to remove kernel argument: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Regenerate rebuilds the boot menu file from the current kernel
// arguments.
func (c *Client) Regenerate() error {
	out, err := c.run(MkconfigBin, "-o", c.configOut)
	if err != nil {
		return fmt.Errorf("grub2-mkconfig failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
