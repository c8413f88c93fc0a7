package enroll

import (
	"errors"
	"strings"
	"testing"
)

const slotListing = `SLOT TYPE
   0 password
   1 tpm2
`

const slotListingNoTPM = `SLOT TYPE
   0 password
`

func TestParseSlotListing(t *testing.T) {
	for _, tc := range []struct {
		out  string
		want bool
	}{
		{slotListing, true},
		{slotListingNoTPM, false},
		{"", false},
		{"SLOT TYPE\n   0 recovery\n   2 tpm2\n", true},
	} {
		if got := parseSlotListing(tc.out); got != tc.want {
			t.Errorf("parseSlotListing(%q) = %v, want %v", tc.out, got, tc.want)
		}
	}
}

func TestHasTPM2Slot(t *testing.T) {
	c := New("7")
	c.run = func(name string, args ...string) ([]byte, error) {
		if name != Tool || len(args) != 1 || args[0] != "/dev/disk/by-uuid/1234-ABCD" {
			t.Errorf("unexpected command: %s %v", name, args)
		}
		return []byte(slotListing), nil
	}

	ok, err := c.HasTPM2Slot("/dev/disk/by-uuid/1234-ABCD")
	if err != nil || !ok {
		t.Errorf("HasTPM2Slot = %v, %v; want true", ok, err)
	}

	c.run = func(name string, args ...string) ([]byte, error) {
		return []byte("not a LUKS device"), errors.New("exit status 1")
	}
	if _, err := c.HasTPM2Slot("/dev/sda1"); err == nil {
		t.Error("expected error from failing tool")
	}
}

func TestEnrollTPM2WipesAndEnrolls(t *testing.T) {
	c := New("7")
	var got []string
	c.runTTY = func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}

	if err := c.EnrollTPM2("/dev/disk/by-uuid/1234-ABCD"); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		Tool,
		"--wipe-slot=tpm2",
		"--tpm2-device=auto",
		"--tpm2-pcrs=7",
		"/dev/disk/by-uuid/1234-ABCD",
	}, " ")
	if strings.Join(got, " ") != want {
		t.Errorf("command = %v, want %v", got, want)
	}
}

func TestWipeTPM2(t *testing.T) {
	c := New("7")
	c.run = func(name string, args ...string) ([]byte, error) {
		if args[0] != "--wipe-slot=tpm2" {
			t.Errorf("unexpected args: %v", args)
		}
		return nil, nil
	}
	if err := c.WipeTPM2("/dev/sda1"); err != nil {
		t.Fatal(err)
	}

	c.run = func(name string, args ...string) ([]byte, error) {
		return []byte("No slot of type tpm2"), errors.New("exit status 1")
	}
	if err := c.WipeTPM2("/dev/sda1"); err == nil {
		t.Error("expected error when no slot exists")
	}
}
