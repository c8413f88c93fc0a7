package luks

import (
	"encoding/json"
	"fmt"

	"github.com/anatol/luks.go"
)

// TokenInfo summarizes a systemd-tpm2 token found in a LUKS2 header.
type TokenInfo struct {
	// Keyslots are the LUKS keyslots this token unlocks.
	Keyslots []int
	// PCRs are the PCR indices bound to this token (empty for pcrlock).
	PCRs []int
	// PCRBank is the hash algorithm for PCR values (sha1, sha256, etc.).
	PCRBank string
	// NeedsPIN indicates whether a PIN is required for unsealing.
	NeedsPIN bool
	// UsePCRLock indicates pcrlock is used instead of direct PCR binding.
	UsePCRLock bool
}

// systemdTPM2TokenPayload is the subset of the systemd-tpm2 token JSON
// warden displays. systemd uses both hyphen and underscore variants in
// different versions.
type systemdTPM2TokenPayload struct {
	PCRs       []int  `json:"tpm2-pcrs"`
	PCRBank    string `json:"tpm2-pcr-bank"`
	PIN        bool   `json:"tpm2-pin"`
	PCRLock    bool   `json:"tpm2-pcrlock"`
	PCRLockAlt bool   `json:"tpm2_pcrlock"`
	PCRLockNV  uint32 `json:"tpm2-pcrlock-nv"`
}

// InspectTokens opens the LUKS2 header and returns a summary of every
// systemd-tpm2 token it holds.
func InspectTokens(devicePath string) ([]TokenInfo, error) {
	dev, err := luks.Open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open LUKS device %s: %w", devicePath, err)
	}
	defer dev.Close()

	tokens, err := dev.Tokens()
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens: %w", err)
	}

	var infos []TokenInfo
	for _, token := range tokens {
		if token.Type != "systemd-tpm2" {
			continue
		}
		info, err := parseTPM2Token(token)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// parseTPM2Token parses a luks.Token into a TokenInfo.
func parseTPM2Token(token luks.Token) (*TokenInfo, error) {
	var payload systemdTPM2TokenPayload
	if err := json.Unmarshal(token.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse systemd-tpm2 token: %w", err)
	}

	pcrBank := payload.PCRBank
	if pcrBank == "" {
		pcrBank = "sha256"
	}

	return &TokenInfo{
		Keyslots:   token.Slots,
		PCRs:       payload.PCRs,
		PCRBank:    pcrBank,
		NeedsPIN:   payload.PIN,
		UsePCRLock: payload.PCRLock || payload.PCRLockAlt || payload.PCRLockNV != 0,
	}, nil
}
