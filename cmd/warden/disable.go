package main

import (
	"github.com/zaolin/warden/internal/config"
	"github.com/zaolin/warden/internal/controller"
)

// DisableCmd disables TPM2 auto-unlock without the interactive choice
type DisableCmd struct {
	commonFlags
	NoReboot bool `help:"Skip the reboot offer"`
}

// Run executes the disable command
func (c *DisableCmd) Run() error {
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

	current := ctl.DetectState(uuid).State()
	return executeAction(ctl, uuid, controller.ActionDisable, current, c.NoReboot)
}
