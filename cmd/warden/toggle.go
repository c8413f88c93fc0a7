package main

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/zaolin/warden/internal/config"
	"github.com/zaolin/warden/internal/controller"
	"github.com/zaolin/warden/internal/tui"
)

// ToggleCmd interactively toggles TPM2 auto-unlock
type ToggleCmd struct {
	commonFlags
	NoReboot bool `help:"Skip the reboot offer"`
}

// Run executes the toggle command
func (c *ToggleCmd) Run() error {
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

	state := ctl.DetectState(uuid).State()

	tui.Title("warden — TPM2 auto-unlock")
	tui.Info("Volume:        %s", controller.DevicePath(uuid))
	tui.Info("Current state: %s", state)

	var options []string
	var action controller.Action
	if state == controller.StateEnabled {
		options = []string{"Disable TPM2 auto-unlock", "Keep it enabled and exit"}
		action = controller.ActionDisable
	} else {
		options = []string{"Enable TPM2 auto-unlock", "Keep it disabled and exit"}
		action = controller.ActionEnable
	}

	choice, err := tui.Select("What do you want to do?", options)
	if err != nil {
		if errors.Is(err, tui.ErrAborted) {
			tui.Info("No changes made.")
			return nil
		}
		return err
	}
	if choice != 0 {
		tui.Info("No changes made.")
		return nil
	}

	return executeAction(ctl, uuid, action, state, c.NoReboot)
}

// executeAction runs the validate/apply/finalize sequence shared by
// toggle, enable and disable, then offers the reboot.
func executeAction(ctl *controller.Controller, uuid string, action controller.Action, current controller.State, noReboot bool) error {
	if err := ctl.Execute(uuid, action, current); err != nil {
		return err
	}

	tui.Success("TPM2 auto-unlock %sd.", action)

	if noReboot {
		tui.Info("The new configuration takes effect after the next reboot.")
		return nil
	}
	return offerReboot(action)
}

// offerReboot surfaces the action-specific next-boot warning and
// reboots on confirmation.
func offerReboot(action controller.Action) error {
	if action == controller.ActionEnable {
		tui.Info("Next boot the volume unlocks via the TPM2; expect a single passphrase prompt only if unsealing fails.")
	} else {
		tui.Info("Next boot expect two passphrase prompts: one for the volume, one to log in.")
	}

	ok, err := tui.Confirm("Reboot now?")
	if err != nil {
		return err
	}
	if !ok {
		tui.Info("The new configuration takes effect after the next reboot.")
		return nil
	}

	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
