// Package enroll wraps systemd-cryptenroll for managing the TPM2
// keyslot of a LUKS volume.
package enroll

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Tool is the enrollment binary name.
const Tool = "systemd-cryptenroll"

type runFunc func(name string, args ...string) ([]byte, error)

func run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// runTTY runs a command with the caller's terminal attached so the
// tool can prompt for the existing passphrase.
func runTTY(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Client shells out to systemd-cryptenroll.
type Client struct {
	run    runFunc
	runTTY func(name string, args ...string) error
	pcrs   string
}

// New creates a Client binding the TPM2 policy to the given PCR list
// (systemd-cryptenroll --tpm2-pcrs syntax, e.g. "7").
func New(pcrs string) *Client {
	return &Client{run: run, runTTY: runTTY, pcrs: pcrs}
}

// HasTPM2Slot reports whether the volume has a tpm2 keyslot enrolled.
// Parsed from the slot listing systemd-cryptenroll prints when invoked
// with only a device argument.
func (c *Client) HasTPM2Slot(device string) (bool, error) {
	out, err := c.run(Tool, device)
	if err != nil {
		return false, fmt.Errorf("%s failed: %w: %s", Tool, err, strings.TrimSpace(string(out)))
	}
	return parseSlotListing(string(out)), nil
}

// parseSlotListing scans the SLOT/TYPE table for a tpm2 slot.
func parseSlotListing(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "tpm2" {
			return true
		}
	}
	return false
}

// EnrollTPM2 wipes any existing tpm2 slot and enrolls a new one in a
// single invocation. The tool prompts for the existing passphrase on
// the attached terminal.
func (c *Client) EnrollTPM2(device string) error {
	err := c.runTTY(Tool,
		"--wipe-slot=tpm2",
		"--tpm2-device=auto",
		"--tpm2-pcrs="+c.pcrs,
		device)
	if err != nil {
		return fmt.Errorf("TPM2 enrollment failed: %w", err)
	}
	return nil
}

// WipeTPM2 removes the tpm2 keyslot. Fails when no slot exists, which
// callers on the disable path treat as benign.
func (c *Client) WipeTPM2(device string) error {
	out, err := c.run(Tool, "--wipe-slot=tpm2", device)
	if err != nil {
		return fmt.Errorf("failed to wipe tpm2 slot: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
