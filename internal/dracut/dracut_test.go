package dracut

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteModuleConf(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "dracut.conf.d", "tpm2.conf")
	c := New(confPath)

	if c.HasModuleConf() {
		t.Error("config should not exist yet")
	}
	if err := c.WriteModuleConf(); err != nil {
		t.Fatal(err)
	}
	if !c.HasModuleConf() {
		t.Error("config should exist after write")
	}

	data, err := os.ReadFile(confPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "add_dracutmodules+=\" tpm2-tss \"\n" {
		t.Errorf("unexpected directive: %q", data)
	}
}

func TestRemoveModuleConf(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "tpm2.conf")
	c := New(confPath)

	existed, err := c.RemoveModuleConf()
	if err != nil || existed {
		t.Errorf("remove of absent file = %v, %v; want false, nil", existed, err)
	}

	if err := c.WriteModuleConf(); err != nil {
		t.Fatal(err)
	}
	existed, err = c.RemoveModuleConf()
	if err != nil || !existed {
		t.Errorf("remove of present file = %v, %v; want true, nil", existed, err)
	}
	if c.HasModuleConf() {
		t.Error("config still present after removal")
	}
}

func TestRebuild(t *testing.T) {
	c := New("/etc/dracut.conf.d/tpm2.conf")
	c.run = func(name string, args ...string) ([]byte, error) {
		if name != DracutBin || strings.Join(args, " ") != "-f --regenerate-all" {
			t.Errorf("unexpected command: %s %v", name, args)
		}
		return nil, nil
	}
	if err := c.Rebuild(); err != nil {
		t.Fatal(err)
	}

	c.run = func(name string, args ...string) ([]byte, error) {
		return []byte("dracut: module not found"), errors.New("exit status 1")
	}
	err := c.Rebuild()
	if err == nil || !strings.Contains(err.Error(), "module not found") {
		t.Errorf("expected error carrying dracut output, got %v", err)
	}
}
