// Package dracut manages the tpm2-tss dracut module configuration and
// initramfs rebuilds.
package dracut

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DracutBin is the initramfs builder.
const DracutBin = "dracut"

// moduleDirective pulls the tpm2-tss module into the early-boot image.
const moduleDirective = "add_dracutmodules+=\" tpm2-tss \"\n"

type runFunc func(name string, args ...string) ([]byte, error)

func run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Client owns the module config file and the rebuild step.
type Client struct {
	run      runFunc
	confPath string // e.g. /etc/dracut.conf.d/tpm2.conf
}

// New creates a Client for the given config file path.
func New(confPath string) *Client {
	return &Client{run: run, confPath: confPath}
}

// HasModuleConf reports whether the module config file exists.
func (c *Client) HasModuleConf() bool {
	_, err := os.Stat(c.confPath)
	return err == nil
}

// WriteModuleConf creates the single-line module directive file.
func (c *Client) WriteModuleConf() error {
	if err := os.MkdirAll(filepath.Dir(c.confPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(c.confPath), err)
	}
	if err := os.WriteFile(c.confPath, []byte(moduleDirective), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.confPath, err)
	}
	return nil
}

// RemoveModuleConf deletes the module config file. Returns false when
// the file was already absent.
func (c *Client) RemoveModuleConf() (bool, error) {
	err := os.Remove(c.confPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Rebuild regenerates the initramfs for all installed kernels.
func (c *Client) Rebuild() error {
	out, err := c.run(DracutBin, "-f", "--regenerate-all")
	if err != nil {
		return fmt.Errorf("dracut rebuild failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
