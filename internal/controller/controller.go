// Package controller decides and executes the external mutations that
// move the system between TPM2 auto-unlock states.
package controller

import (
	"errors"
	"fmt"
)

// State is the detected auto-unlock state of the target volume.
type State int

const (
	StateDisabled State = iota
	StateEnabled
)

func (s State) String() string {
	if s == StateEnabled {
		return "enabled"
	}
	return "disabled"
}

// Action is the operator-chosen target.
type Action int

const (
	ActionEnable Action = iota
	ActionDisable
)

func (a Action) String() string {
	if a == ActionEnable {
		return "enable"
	}
	return "disable"
}

// Signals are the three independent detection probes. The state is
// derived, never stored: any positive signal means enabled, so a
// partially-configured system surfaces the disable path.
type Signals struct {
	Enrollment bool // enrollment tool lists a tpm2 keyslot
	BootArgs   bool // kernel arguments carry the unlock option
	Crypttab   bool // mapping table carries the unlock option
}

// State combines the signals with logical OR.
func (s Signals) State() State {
	if s.Enrollment || s.BootArgs || s.Crypttab {
		return StateEnabled
	}
	return StateDisabled
}

// Enroller manages the TPM2 keyslot of a LUKS volume.
type Enroller interface {
	HasTPM2Slot(device string) (bool, error)
	EnrollTPM2(device string) error
	WipeTPM2(device string) error
}

// Bootloader manages persistent kernel arguments and the boot menu.
type Bootloader interface {
	RootCryptoUUID() (string, error)
	HasUnlockArg() (bool, error)
	AddUnlockArg() error
	RemoveUnlockArg() error
	Regenerate() error
}

// MappingTable is the boot-time unlock mapping file (crypttab).
type MappingTable interface {
	HasUnlockOption() (bool, error)
	ForeignEntries(uuid string) ([]string, error)
	WriteEntry(uuid string) error
	RemoveEntries() (int, error)
}

// Initramfs manages the dracut module config and the image rebuild.
type Initramfs interface {
	WriteModuleConf() error
	RemoveModuleConf() (bool, error)
	Rebuild() error
}

// Sentinel errors for the fatal precondition class.
var (
	ErrNoVolume           = errors.New("could not determine the root LUKS volume UUID")
	ErrSecureBootInactive = errors.New("Secure Boot is not active")
)

// Controller wires the collaborators together. All fields must be set.
type Controller struct {
	Enroll    Enroller
	Boot      Bootloader
	Table     MappingTable
	Initramfs Initramfs

	// SecureBootEnabled and CheckTPM are the enable-path preconditions.
	SecureBootEnabled func() (bool, error)
	CheckTPM          func() error

	// ProbeUUID is the fallback volume probe when the bootloader
	// arguments carry no crypto UUID.
	ProbeUUID func() (string, error)

	// UI hooks. The CLI attaches styled output and a spinner here;
	// nil hooks fall back to plain behavior so tests run headless.
	Infof func(format string, args ...any)
	Warnf func(format string, args ...any)
	Step  func(label string, fn func() error) error
}

func (c *Controller) infof(format string, args ...any) {
	if c.Infof != nil {
		c.Infof(format, args...)
	}
}

func (c *Controller) warnf(format string, args ...any) {
	if c.Warnf != nil {
		c.Warnf(format, args...)
	}
}

func (c *Controller) runStep(label string, fn func() error) error {
	if c.Step != nil {
		return c.Step(label, fn)
	}
	return fn()
}

// DevicePath maps a volume UUID to its stable device node.
func DevicePath(uuid string) string {
	return "/dev/disk/by-uuid/" + uuid
}

// ResolveVolumeID queries the bootloader for the root volume's crypto
// UUID and falls back to the block device probe. Both coming up empty
// is fatal.
func (c *Controller) ResolveVolumeID() (string, error) {
	uuid, err := c.Boot.RootCryptoUUID()
	if err == nil && uuid != "" {
		return uuid, nil
	}

	uuid, err = c.ProbeUUID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVolume, err)
	}
	if uuid == "" {
		return "", ErrNoVolume
	}
	return uuid, nil
}

// DetectState runs the three independent probes. A probe error counts
// as a negative signal: detection is read-only and never fatal.
func (c *Controller) DetectState(uuid string) Signals {
	var s Signals
	if ok, err := c.Enroll.HasTPM2Slot(DevicePath(uuid)); err == nil {
		s.Enrollment = ok
	}
	if ok, err := c.Boot.HasUnlockArg(); err == nil {
		s.BootArgs = ok
	}
	if ok, err := c.Table.HasUnlockOption(); err == nil {
		s.Crypttab = ok
	}
	return s
}

// ValidateEnablePreconditions verifies Secure Boot is active and a
// TPM2 device is enumerable. Runs before any mutation on the enable
// path; either failure aborts the whole run.
func (c *Controller) ValidateEnablePreconditions() error {
	enabled, err := c.SecureBootEnabled()
	if err != nil {
		return fmt.Errorf("failed to read Secure Boot state: %w", err)
	}
	if !enabled {
		return ErrSecureBootInactive
	}
	if err := c.CheckTPM(); err != nil {
		return err
	}
	return nil
}

// ApplyEnable performs the ordered enable mutations. Every step is
// fatal; a later failure leaves earlier steps applied (no rollback).
// Returned warnings surface non-fatal conditions such as discarded
// mapping entries for other volumes.
func (c *Controller) ApplyEnable(uuid string) ([]string, error) {
	var warnings []string
	device := DevicePath(uuid)

	if err := c.Enroll.EnrollTPM2(device); err != nil {
		return warnings, err
	}

	if err := c.Boot.AddUnlockArg(); err != nil {
		return warnings, err
	}

	if foreign, err := c.Table.ForeignEntries(uuid); err == nil && len(foreign) > 0 {
		warnings = append(warnings,
			fmt.Sprintf("discarding mapping entries for other volumes: %v", foreign))
	}
	if err := c.Table.WriteEntry(uuid); err != nil {
		return warnings, err
	}

	if err := c.Initramfs.WriteModuleConf(); err != nil {
		return warnings, err
	}

	return warnings, nil
}

// ApplyDisable performs the ordered disable mutations. Every step is
// best-effort: failures surface as warnings, never abort, because an
// already-absent keyslot, argument or entry is the expected case when
// the state was only partially enabled.
func (c *Controller) ApplyDisable(uuid string) []string {
	var warnings []string
	device := DevicePath(uuid)

	if err := c.Enroll.WipeTPM2(device); err != nil {
		warnings = append(warnings,
			fmt.Sprintf("could not wipe tpm2 keyslot (may not be enrolled): %v", err))
	}

	if err := c.Boot.RemoveUnlockArg(); err != nil {
		warnings = append(warnings,
			fmt.Sprintf("could not remove kernel argument: %v", err))
	}

	removed, err := c.Table.RemoveEntries()
	if err != nil {
		warnings = append(warnings,
			fmt.Sprintf("could not update mapping table: %v", err))
	} else if removed == 0 {
		warnings = append(warnings, "no TPM2 entry found in the mapping table")
	}

	existed, err := c.Initramfs.RemoveModuleConf()
	if err != nil {
		warnings = append(warnings,
			fmt.Sprintf("could not remove dracut config: %v", err))
	} else if !existed {
		warnings = append(warnings, "dracut config was already absent")
	}

	return warnings
}

// Execute runs the whole validate/apply/finalize sequence for the
// chosen action. Preconditions are checked only when enabling from the
// disabled state, and a precondition failure returns before any
// collaborator is mutated.
func (c *Controller) Execute(uuid string, action Action, current State) error {
	if action == ActionEnable && current == StateDisabled {
		if err := c.ValidateEnablePreconditions(); err != nil {
			return err
		}
	}

	switch action {
	case ActionEnable:
		c.infof("Enter the existing LUKS passphrase when prompted.")
		warnings, err := c.ApplyEnable(uuid)
		for _, w := range warnings {
			c.warnf("%s", w)
		}
		if err != nil {
			return err
		}
	case ActionDisable:
		for _, w := range c.ApplyDisable(uuid) {
			c.warnf("%s", w)
		}
	}

	return c.runStep("Regenerating boot menu and initramfs", c.Finalize)
}

// Finalize regenerates the boot menu and rebuilds the initramfs so
// both match the new unlock configuration. Runs after either branch;
// both steps are fatal because skipping them leaves the boot chain
// inconsistent with the keyslot state.
func (c *Controller) Finalize() error {
	if err := c.Boot.Regenerate(); err != nil {
		return err
	}
	if err := c.Initramfs.Rebuild(); err != nil {
		return err
	}
	return nil
}
