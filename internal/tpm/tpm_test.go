package tpm

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPresentFindsDeviceNode(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "tpmrm0")
	if err := os.WriteFile(dev, nil, 0600); err != nil {
		t.Fatal(err)
	}

	c := NewWithDevice(dev)
	if !c.Present() {
		t.Error("existing device node not reported present")
	}
}

func TestDecodeVendorString(t *testing.T) {
	for _, tc := range []struct {
		value uint32
		want  string
	}{
		{0x494E5443, "INTC"},
		{0x414D4400, "AMD"}, // trailing NUL stripped
		{0x53544D20, "STM "},
		{0x00000000, ""},
	} {
		if got := decodeVendorString(tc.value); got != tc.want {
			t.Errorf("decodeVendorString(%#x) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
