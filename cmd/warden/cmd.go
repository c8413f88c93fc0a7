package main

import (
	"fmt"
	"os"

	"github.com/zaolin/warden/internal/config"
	"github.com/zaolin/warden/internal/controller"
	"github.com/zaolin/warden/internal/crypttab"
	"github.com/zaolin/warden/internal/dracut"
	"github.com/zaolin/warden/internal/enroll"
	"github.com/zaolin/warden/internal/grub"
	"github.com/zaolin/warden/internal/luks"
	"github.com/zaolin/warden/internal/secureboot"
	"github.com/zaolin/warden/internal/tpm"
	"github.com/zaolin/warden/internal/tui"
)

// CLI defines the root command structure with subcommands
type CLI struct {
	Toggle  ToggleCmd  `cmd:"" default:"1" help:"Interactively toggle TPM2 auto-unlock"`
	Enable  EnableCmd  `cmd:"" help:"Enable TPM2 auto-unlock without the interactive choice"`
	Disable DisableCmd `cmd:"" help:"Disable TPM2 auto-unlock without the interactive choice"`
	Status  StatusCmd  `cmd:"" help:"Show detection signals and TPM2 token details"`
	Verify  VerifyCmd  `cmd:"" help:"Check the initramfs image for tpm2-tss support"`
}

// commonFlags are shared by the subcommands that touch the volume.
type commonFlags struct {
	Config string `type:"path" help:"Path to TOML config file"`
	Device string `help:"Crypto UUID of the target volume (skips autodetection)"`
}

// requireRoot fails early for commands that mutate or read privileged
// system state.
func requireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command must be run as root")
	}
	return nil
}

// newController wires the real collaborators per the loaded config.
func newController(cfg *config.Config) *controller.Controller {
	tpmClient := tpm.NewWithDevice(cfg.TPM2Device)

	return &controller.Controller{
		Enroll:            enroll.New(cfg.TPM2PCRs),
		Boot:              grub.New(cfg.GrubConfigPath, cfg.UnlockKernelArg()),
		Table:             crypttab.New(cfg.CrypttabPath, cfg.UnlockOption()),
		Initramfs:         dracut.New(cfg.DracutConfPath),
		SecureBootEnabled: secureboot.New().Enabled,
		CheckTPM: func() error {
			_, err := tpmClient.Check()
			return err
		},
		ProbeUUID: luks.NewProber().FirstUUID,
		Infof:     tui.Info,
		Warnf:     tui.Warn,
		Step:      tui.Step,
	}
}

// resolveVolume honors the --device override before falling back to
// bootloader and block device probes.
func resolveVolume(ctl *controller.Controller, flags commonFlags) (string, error) {
	if flags.Device != "" {
		return flags.Device, nil
	}
	return ctl.ResolveVolumeID()
}
