package main

import (
	"github.com/zaolin/warden/internal/config"
	"github.com/zaolin/warden/internal/controller"
)

// EnableCmd enables TPM2 auto-unlock without the interactive choice
type EnableCmd struct {
	commonFlags
	NoReboot bool `help:"Skip the reboot offer"`
}

// Run executes the enable command
func (c *EnableCmd) Run() error {
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
	return executeAction(ctl, uuid, controller.ActionEnable, current, c.NoReboot)
}
