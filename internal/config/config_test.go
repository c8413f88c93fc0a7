package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.CrypttabPath != "/etc/crypttab" {
		t.Errorf("CrypttabPath = %q", cfg.CrypttabPath)
	}
	if cfg.TPM2Device != "/dev/tpmrm0" {
		t.Errorf("TPM2Device = %q", cfg.TPM2Device)
	}
	if got := cfg.UnlockOption(); got != "tpm2-device=/dev/tpmrm0" {
		t.Errorf("UnlockOption = %q", got)
	}
	if got := cfg.UnlockKernelArg(); got != "rd.luks.options=tpm2-device=/dev/tpmrm0" {
		t.Errorf("UnlockKernelArg = %q", got)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.toml")
	content := `
tpm2_device = "/dev/tpm0"
tpm2_pcrs = "0+7"
crypttab_path = "/tmp/crypttab"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TPM2Device != "/dev/tpm0" {
		t.Errorf("TPM2Device = %q", cfg.TPM2Device)
	}
	if cfg.TPM2PCRs != "0+7" {
		t.Errorf("TPM2PCRs = %q", cfg.TPM2PCRs)
	}
	if cfg.CrypttabPath != "/tmp/crypttab" {
		t.Errorf("CrypttabPath = %q", cfg.CrypttabPath)
	}
	// untouched fields keep defaults
	if cfg.GrubConfigPath != "/boot/grub2/grub.cfg" {
		t.Errorf("GrubConfigPath = %q", cfg.GrubConfigPath)
	}
	if got := cfg.UnlockOption(); got != "tpm2-device=/dev/tpm0" {
		t.Errorf("UnlockOption = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
