package main

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/zaolin/warden/internal/config"
	"github.com/zaolin/warden/internal/image"
	"github.com/zaolin/warden/internal/tui"
)

// VerifyCmd checks the initramfs image for tpm2-tss support
type VerifyCmd struct {
	Config string `type:"path" help:"Path to TOML config file"`
	Image  string `short:"i" help:"Path to the initramfs image (default: /boot/initramfs-<kernel>.img)"`
}

// Run executes the verify command
func (c *VerifyCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	path := c.Image
	if path == "" {
		path = cfg.InitramfsPath
	}
	if path == "" {
		path, err = runningKernelImage()
		if err != nil {
			return err
		}
	}

	report, err := image.Inspect(path)
	if err != nil {
		return err
	}

	tui.Title("warden — initramfs verification")
	tui.Info("Image:       %s", report.Path)
	tui.Info("Compression: %s", report.Compression)
	tui.Info("Entries:     %d", report.Entries)

	if !report.HasTPM2Support() {
		tui.Error("✗ no tpm2-tss files in the image")
		return fmt.Errorf("initramfs %s lacks TPM2 unlock support; rerun warden enable", path)
	}

	tui.Success("✓ tpm2-tss module present (%d files)", len(report.TPM2Paths))
	max := len(report.TPM2Paths)
	if max > 5 {
		max = 5
	}
	for _, p := range report.TPM2Paths[:max] {
		tui.Info("  %s", p)
	}
	if len(report.TPM2Paths) > max {
		tui.Info("  ... and %d more", len(report.TPM2Paths)-max)
	}
	return nil
}

// runningKernelImage derives the default initramfs path from the
// running kernel release.
func runningKernelImage() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("failed to determine kernel release: %w", err)
	}
	release := unix.ByteSliceToString(uts.Release[:])
	return "/boot/initramfs-" + release + ".img", nil
}
