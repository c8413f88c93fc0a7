package main

import (
	"fmt"

	"github.com/zaolin/warden/internal/config"
	"github.com/zaolin/warden/internal/controller"
	"github.com/zaolin/warden/internal/luks"
	"github.com/zaolin/warden/internal/secureboot"
	"github.com/zaolin/warden/internal/tpm"
	"github.com/zaolin/warden/internal/tui"
)

// StatusCmd shows the detection signals and TPM2 token details
type StatusCmd struct {
	commonFlags
}

// Run executes the status command
func (c *StatusCmd) Run() error {
	if err := requireRoot(); err != nil {
		return err
	}

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	ctl := newController(cfg)

	uuid, err := resolveVolume(ctl, c.commonFlags)
	if err != nil {
		return err
	}

	signals := ctl.DetectState(uuid)

	tui.Title("warden — status")
	tui.Info("Volume: %s", controller.DevicePath(uuid))
	fmt.Println()

	printSignal("TPM2 keyslot enrolled", signals.Enrollment)
	printSignal("Kernel arguments carry "+cfg.UnlockKernelArg(), signals.BootArgs)
	printSignal("Mapping table carries "+cfg.UnlockOption(), signals.Crypttab)
	fmt.Println()
	tui.Info("Derived state: %s", signals.State())
	fmt.Println()

	sbEnabled, err := secureboot.New().Enabled()
	if err != nil {
		tui.Warn("could not read Secure Boot state: %v", err)
	} else {
		printSignal("Secure Boot active", sbEnabled)
	}

	tpmClient := tpm.NewWithDevice(cfg.TPM2Device)
	printSignal("TPM2 device node present", tpmClient.Present())
	info, err := tpmClient.Check()
	if err != nil {
		printSignal("TPM2 device enumerable", false)
	} else {
		printSignal("TPM2 device enumerable", true)
		tui.Info("  device:        %s", info.Device)
		if info.Manufacturer != "" {
			tui.Info("  manufacturer:  %s", info.Manufacturer)
		}
		if info.SpecRevision != 0 {
			tui.Info("  spec revision: %d.%02d", info.SpecRevision/100, info.SpecRevision%100)
		}
	}
	fmt.Println()

	tokens, err := luks.InspectTokens(controller.DevicePath(uuid))
	if err != nil {
		tui.Warn("could not inspect LUKS2 tokens: %v", err)
		return nil
	}
	if len(tokens) == 0 {
		tui.Info("No systemd-tpm2 token in the LUKS2 header.")
		return nil
	}
	for i, tok := range tokens {
		tui.Info("Token %d (systemd-tpm2):", i)
		tui.Info("  keyslots: %v", tok.Keyslots)
		if tok.UsePCRLock {
			tui.Info("  policy:   pcrlock")
		} else {
			tui.Info("  policy:   PCRs %v (%s)", tok.PCRs, tok.PCRBank)
		}
		tui.Info("  pin:      %v", tok.NeedsPIN)
	}
	return nil
}

func printSignal(label string, ok bool) {
	if ok {
		tui.Success("✓ %s", label)
	} else {
		tui.Info("✗ %s", label)
	}
}
