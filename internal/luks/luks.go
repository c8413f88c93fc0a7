// Package luks inspects LUKS devices on the running system.
package luks

import (
	"os"
	"os/exec"
	"strings"
)

// Device represents a LUKS encrypted device
type Device struct {
	Path string
	UUID string
}

type runFunc func(name string, args ...string) ([]byte, error)

func run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Prober finds LUKS devices using blkid.
type Prober struct {
	run    runFunc
	isLuks func(devicePath string) bool
}

// NewProber creates a blkid-backed Prober.
func NewProber() *Prober {
	return &Prober{run: run, isLuks: IsLuks}
}

// Detect finds all LUKS devices on the system using blkid. Each hit is
// verified against the LUKS header magic; blkid caches can report
// devices that no longer carry one.
func (p *Prober) Detect() ([]Device, error) {
	out, err := p.run("blkid", "-t", "TYPE=crypto_LUKS", "-o", "device")
	if err != nil {
		// No LUKS devices found is not an error
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 2 {
			return nil, nil
		}
		return nil, err
	}

	var devices []Device
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		if !p.isLuks(line) {
			continue
		}
		dev := Device{Path: line}
		if uuid, err := p.uuidOf(line); err == nil {
			dev.UUID = uuid
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// FirstUUID returns the UUID of the first detected LUKS device.
// Returns "" when no device is found.
func (p *Prober) FirstUUID() (string, error) {
	devices, err := p.Detect()
	if err != nil {
		return "", err
	}
	for _, dev := range devices {
		if dev.UUID != "" {
			return dev.UUID, nil
		}
	}
	return "", nil
}

// uuidOf retrieves the UUID of a LUKS device via blkid.
func (p *Prober) uuidOf(devicePath string) (string, error) {
	out, err := p.run("blkid", "-o", "value", "-s", "UUID", devicePath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// IsLuks checks the device for the LUKS header magic.
func IsLuks(devicePath string) bool {
	f, err := os.Open(devicePath)
	if err != nil {
		return false
	}
	defer f.Close()

	magic := make([]byte, 6)
	n, err := f.Read(magic)
	if err != nil || n < 6 {
		return false
	}
	return string(magic[:4]) == "LUKS"
}
