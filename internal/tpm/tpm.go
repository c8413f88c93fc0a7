// Package tpm checks TPM 2.0 device availability using native Go.
// This implementation uses google/go-tpm with the tpmdirect API.
package tpm

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/linuxtpm"
)

// ErrTPMUnavailable indicates the TPM device is not available.
var ErrTPMUnavailable = errors.New("TPM device not available")

// DefaultDevice is the default TPM device path.
const DefaultDevice = "/dev/tpmrm0"

// FallbackDevice is used if the resource manager is unavailable.
const FallbackDevice = "/dev/tpm0"

// Info describes an enumerated TPM 2.0 device.
type Info struct {
	Device       string
	Manufacturer string
	SpecRevision uint32
}

// Client provides TPM 2.0 device checks.
type Client struct {
	device string
}

// NewWithDevice creates a new TPM client with a specific device path.
func NewWithDevice(device string) *Client {
	return &Client{device: device}
}

// Present reports whether a TPM device node exists.
func (c *Client) Present() bool {
	for _, dev := range []string{c.device, FallbackDevice} {
		if _, err := os.Stat(dev); err == nil {
			c.device = dev
			return true
		}
	}
	return false
}

// openTPM opens a connection to the TPM device.
func (c *Client) openTPM() (transport.TPMCloser, error) {
	tpm, err := linuxtpm.Open(c.device)
	if err != nil {
		// Try fallback device
		if c.device == DefaultDevice {
			tpm, err = linuxtpm.Open(FallbackDevice)
			if err == nil {
				c.device = FallbackDevice
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTPMUnavailable, err)
	}
	return tpm, nil
}

// Check opens the TPM and reads its identity properties. A successful
// Check proves the device is enumerable, not just present as a node.
func (c *Client) Check() (*Info, error) {
	tpm, err := c.openTPM()
	if err != nil {
		return nil, err
	}
	defer tpm.Close()

	info := &Info{Device: c.device}

	if v, err := getTPMProperty(tpm, tpm2.TPMPTManufacturer); err == nil {
		info.Manufacturer = decodeVendorString(v)
	}
	if v, err := getTPMProperty(tpm, tpm2.TPMPTRevision); err == nil {
		info.SpecRevision = v
	}

	return info, nil
}

// getTPMProperty reads a single TPM property.
func getTPMProperty(tpm transport.TPM, prop tpm2.TPMPT) (uint32, error) {
	getCapCmd := tpm2.GetCapability{
		Capability:    tpm2.TPMCapTPMProperties,
		Property:      uint32(prop),
		PropertyCount: 1,
	}
	rsp, err := getCapCmd.Execute(tpm)
	if err != nil {
		return 0, err
	}

	props, err := rsp.CapabilityData.Data.TPMProperties()
	if err != nil {
		return 0, err
	}
	if len(props.TPMProperty) == 0 {
		return 0, errors.New("no property returned")
	}
	return props.TPMProperty[0].Value, nil
}

// decodeVendorString unpacks a big-endian property value into the
// four-character vendor ID.
func decodeVendorString(v uint32) string {
	b := []byte{
		byte(v >> 24),
		byte(v >> 16),
		byte(v >> 8),
		byte(v),
	}
	out := make([]byte, 0, 4)
	for _, c := range b {
		if c >= 0x20 && c < 0x7f {
			out = append(out, c)
		}
	}
	return string(out)
}
