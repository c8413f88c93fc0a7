// Package crypttab edits the unlock mapping table consumed by
// systemd-cryptsetup at boot.
package crypttab

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Entry represents a single crypttab entry
type Entry struct {
	Name    string
	Device  string
	KeyFile string
	Options string
}

// Parse reads a crypttab file and returns all entries
func Parse(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			entry := Entry{
				Name:   fields[0],
				Device: fields[1],
			}
			if len(fields) >= 3 {
				entry.KeyFile = fields[2]
			}
			if len(fields) >= 4 {
				entry.Options = fields[3]
			}
			entries = append(entries, entry)
		}
	}
	return entries, scanner.Err()
}

// Table mutates a crypttab file for a single target volume.
type Table struct {
	path   string
	option string // e.g. "tpm2-device=/dev/tpmrm0"
}

// New creates a Table for the given crypttab path and unlock option.
func New(path, option string) *Table {
	return &Table{path: path, option: option}
}

// HasUnlockOption reports whether any entry carries the unlock option.
// A missing file counts as no.
func (t *Table) HasUnlockOption() (bool, error) {
	entries, err := Parse(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	for _, e := range entries {
		if strings.Contains(e.Options, t.option) {
			return true, nil
		}
	}
	return false, nil
}

// ForeignEntries returns the names of entries that do not belong to the
// given volume UUID. Used to warn before WriteEntry discards them.
func (t *Table) ForeignEntries(uuid string) ([]string, error) {
	entries, err := Parse(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Device != "UUID="+uuid {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// WriteEntry replaces the file contents with a single entry binding the
// volume to the unlock option. Any prior contents are discarded.
func (t *Table) WriteEntry(uuid string) error {
	line := fmt.Sprintf("luks-%s UUID=%s none %s\n", uuid, uuid, t.option)
	if err := os.WriteFile(t.path, []byte(line), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", t.path, err)
	}
	return nil
}

// RemoveEntries deletes only the lines carrying the unlock option and
// preserves every other line verbatim, comments and blanks included.
// Returns the number of lines removed; a missing file removes zero.
func (t *Table) RemoveEntries() (int, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	trailingNewline := strings.HasSuffix(string(data), "\n")
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	var kept []string
	removed := 0
	for _, line := range lines {
		if strings.Contains(line, t.option) && !strings.HasPrefix(strings.TrimSpace(line), "#") {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return 0, nil
	}

	out := strings.Join(kept, "\n")
	if len(kept) > 0 && trailingNewline {
		out += "\n"
	}
	if err := os.WriteFile(t.path, []byte(out), 0600); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", t.path, err)
	}
	return removed, nil
}
