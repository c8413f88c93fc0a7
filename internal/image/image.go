// Package image inspects initramfs images for TPM2 unlock support.
package image

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression magic numbers.
var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicXZ   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicCPIO = []byte("070701")
)

// Report summarizes the contents of an initramfs image.
type Report struct {
	Path        string
	Compression string
	Entries     int
	// TPM2Paths are archive entries belonging to the tpm2-tss stack.
	TPM2Paths []string
}

// HasTPM2Support reports whether the image carries the tpm2-tss
// dracut module.
func (r *Report) HasTPM2Support() bool {
	return len(r.TPM2Paths) > 0
}

// Inspect opens an initramfs image, decompresses it and walks the cpio
// entries looking for the tpm2-tss module files.
func Inspect(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	report := &Report{Path: path}

	// Images may start with an uncompressed early cpio (microcode)
	// followed by the compressed main archive.
	main, compression := locateMainArchive(data)
	report.Compression = compression

	reader, err := newDecompressor(main, compression)
	if err != nil {
		return nil, err
	}

	archive := cpio.NewReader(reader)
	for {
		hdr, err := archive.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read cpio entry: %w", err)
		}
		report.Entries++
		if isTPM2Path(hdr.Name) {
			report.TPM2Paths = append(report.TPM2Paths, hdr.Name)
		}
	}

	return report, nil
}

// locateMainArchive returns the main archive bytes and the detected
// compression. When the image starts with a plain cpio (an early
// microcode archive), its newc headers are walked to the trailer so the
// main archive is found at its true offset. Scanning for compression
// magics instead would misfire on magic bytes inside file payloads.
func locateMainArchive(data []byte) ([]byte, string) {
	if name := compressionAt(data); name != "" {
		return data, name
	}
	if !bytes.HasPrefix(data, magicCPIO) {
		return data, "none"
	}

	end := earlyArchiveEnd(data)
	if end < 0 || end >= len(data) {
		return data, "none"
	}
	rest := data[end:]
	if name := compressionAt(rest); name != "" {
		return rest, name
	}
	if bytes.HasPrefix(rest, magicCPIO) {
		// Another uncompressed archive concatenated on top.
		return locateMainArchive(rest)
	}
	return data, "none"
}

// newc header layout: 6-byte magic, then 13 fields of 8 hex digits.
const (
	newcHeaderLen   = 110
	newcFilesizeOff = 6 + 6*8  // c_filesize
	newcNamesizeOff = 6 + 11*8 // c_namesize
)

// earlyArchiveEnd walks the newc entries of an uncompressed cpio and
// returns the offset just past its trailer and padding, or -1 when the
// archive does not parse.
func earlyArchiveEnd(data []byte) int {
	off := 0
	for {
		if off+newcHeaderLen > len(data) || !bytes.HasPrefix(data[off:], magicCPIO) {
			return -1
		}
		filesize, err := parseHexField(data[off+newcFilesizeOff:])
		if err != nil {
			return -1
		}
		namesize, err := parseHexField(data[off+newcNamesizeOff:])
		if err != nil {
			return -1
		}

		nameStart := off + newcHeaderLen
		if nameStart+namesize > len(data) {
			return -1
		}
		name := string(bytes.TrimRight(data[nameStart:nameStart+namesize], "\x00"))

		off = align4(nameStart + namesize)
		off = align4(off + filesize)

		if name == "TRAILER!!!" {
			// The trailer is zero-padded up to the block size.
			for off < len(data) && data[off] == 0 {
				off++
			}
			return off
		}
	}
}

func parseHexField(b []byte) (int, error) {
	v, err := strconv.ParseUint(string(b[:8]), 16, 32)
	return int(v), err
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// compressionAt identifies the compression magic at the start of data.
func compressionAt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, magicZstd):
		return "zstd"
	case bytes.HasPrefix(data, magicXZ):
		return "xz"
	case bytes.HasPrefix(data, magicGzip):
		return "gzip"
	}
	return ""
}

// newDecompressor wraps the archive bytes in the matching decompressor.
func newDecompressor(data []byte, compression string) (io.Reader, error) {
	r := bytes.NewReader(data)
	switch compression {
	case "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd decoder error: %w", err)
		}
		return dec.IOReadCloser(), nil
	case "xz":
		dec, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("xz decoder error: %w", err)
		}
		return dec, nil
	case "gzip":
		dec, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip decoder error: %w", err)
		}
		return dec, nil
	default:
		return r, nil
	}
}

// isTPM2Path matches files installed by the tpm2-tss dracut module.
func isTPM2Path(name string) bool {
	return strings.Contains(name, "tpm2") || strings.Contains(name, "tss2")
}
