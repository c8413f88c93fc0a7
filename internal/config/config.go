package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the warden configuration
type Config struct {
	CrypttabPath   string `toml:"crypttab_path"`
	DracutConfPath string `toml:"dracut_conf_path"`
	GrubConfigPath string `toml:"grub_config_path"`
	TPM2Device     string `toml:"tpm2_device"`
	TPM2PCRs       string `toml:"tpm2_pcrs"`
	InitramfsPath  string `toml:"initramfs_path"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		CrypttabPath:   "/etc/crypttab",
		DracutConfPath: "/etc/dracut.conf.d/tpm2.conf",
		GrubConfigPath: "/boot/grub2/grub.cfg",
		TPM2Device:     "/dev/tpmrm0",
		TPM2PCRs:       "7",
	}
}

// Load loads configuration from a TOML file
// If path is empty, returns default config
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UnlockOption is the crypttab option that routes unlocking through
// the TPM2 device.
func (c *Config) UnlockOption() string {
	return "tpm2-device=" + c.TPM2Device
}

// UnlockKernelArg is the persistent kernel argument carrying UnlockOption.
func (c *Config) UnlockKernelArg() string {
	return "rd.luks.options=" + c.UnlockOption()
}
