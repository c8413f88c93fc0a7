package image

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/zstd"
)

func buildCPIO(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := cpio.NewWriter(&buf)
	for name, content := range files {
		hdr := &cpio.Header{
			Name: name,
			Mode: cpio.TypeReg | 0644,
			Size: int64(len(content)),
		}
		if err := w.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "initramfs.img")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

var tpm2Files = map[string]string{
	"usr/lib64/libtss2-esys.so.0":           "x",
	"usr/lib/systemd/systemd-cryptsetup":    "x",
	"usr/lib/dracut/hooks/pre-udev/tpm2.sh": "x",
}

var plainFiles = map[string]string{
	"usr/bin/sh":  "x",
	"etc/ld.conf": "x",
}

func TestInspectGzip(t *testing.T) {
	path := writeImage(t, gzipBytes(t, buildCPIO(t, tpm2Files)))

	report, err := Inspect(path)
	if err != nil {
		t.Fatal(err)
	}
	if report.Compression != "gzip" {
		t.Errorf("compression = %q, want gzip", report.Compression)
	}
	if !report.HasTPM2Support() {
		t.Error("expected TPM2 support to be detected")
	}
	if report.Entries != len(tpm2Files) {
		t.Errorf("entries = %d, want %d", report.Entries, len(tpm2Files))
	}
}

func TestInspectZstd(t *testing.T) {
	path := writeImage(t, zstdBytes(t, buildCPIO(t, plainFiles)))

	report, err := Inspect(path)
	if err != nil {
		t.Fatal(err)
	}
	if report.Compression != "zstd" {
		t.Errorf("compression = %q, want zstd", report.Compression)
	}
	if report.HasTPM2Support() {
		t.Errorf("unexpected TPM2 paths: %v", report.TPM2Paths)
	}
}

func TestInspectUncompressed(t *testing.T) {
	path := writeImage(t, buildCPIO(t, tpm2Files))

	report, err := Inspect(path)
	if err != nil {
		t.Fatal(err)
	}
	if report.Compression != "none" {
		t.Errorf("compression = %q, want none", report.Compression)
	}
	if !report.HasTPM2Support() {
		t.Error("expected TPM2 support to be detected")
	}
}

func TestInspectEarlyCPIOPrefix(t *testing.T) {
	early := buildCPIO(t, map[string]string{"kernel/x86/microcode/ucode.bin": "x"})
	main := gzipBytes(t, buildCPIO(t, tpm2Files))
	path := writeImage(t, append(early, main...))

	report, err := Inspect(path)
	if err != nil {
		t.Fatal(err)
	}
	if report.Compression != "gzip" {
		t.Errorf("compression = %q, want gzip", report.Compression)
	}
	if !report.HasTPM2Support() {
		t.Error("expected TPM2 support in the main archive")
	}
}

func TestInspectEarlyCPIOWithMagicBytesInPayload(t *testing.T) {
	// Microcode blobs are opaque binary and can contain compression
	// magic sequences; they must not be mistaken for the main archive.
	ucode := "\x00\x01\x1f\x8b\x28\xb5\x2f\xfd\x02\x03"
	early := buildCPIO(t, map[string]string{"kernel/x86/microcode/GenuineIntel.bin": ucode})
	main := gzipBytes(t, buildCPIO(t, tpm2Files))
	path := writeImage(t, append(early, main...))

	report, err := Inspect(path)
	if err != nil {
		t.Fatal(err)
	}
	if report.Compression != "gzip" {
		t.Errorf("compression = %q, want gzip", report.Compression)
	}
	if !report.HasTPM2Support() {
		t.Error("expected TPM2 support in the main archive")
	}
	if report.Entries != len(tpm2Files) {
		t.Errorf("entries = %d, want %d", report.Entries, len(tpm2Files))
	}
}
