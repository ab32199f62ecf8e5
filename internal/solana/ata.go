package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	SystemProgramID          = "11111111111111111111111111111111"
)

// FindProgramAddress derives a Program Derived Address using the Solana
// algorithm: sha256(seeds || bump || programID || "ProgramDerivedAddress"),
// trying bumps from 255 down until the hash falls off the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	programBytes, err := base58.Decode(programID)
	if err != nil {
		return "", 0, fmt.Errorf("decode program id: %w", err)
	}
	if len(programBytes) != 32 {
		return "", 0, fmt.Errorf("program id %s is not 32 bytes", programID)
	}

	for bump := uint8(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programBytes...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), bump, nil
		}
	}

	return "", 0, fmt.Errorf("no off-curve address found for program %s", programID)
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// DeriveATA derives the associated token account for an owner and mint.
// Seeds: [owner, token_program, mint] under the associated token program.
func DeriveATA(owner, mint string) (string, error) {
	ownerBytes, err := base58.Decode(owner)
	if err != nil {
		return "", fmt.Errorf("decode owner: %w", err)
	}
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	tokenProgramBytes, err := base58.Decode(TokenProgramID)
	if err != nil {
		return "", fmt.Errorf("decode token program: %w", err)
	}
	if len(ownerBytes) != 32 || len(mintBytes) != 32 {
		return "", fmt.Errorf("owner and mint must be 32-byte keys")
	}

	seeds := [][]byte{ownerBytes, tokenProgramBytes, mintBytes}
	ata, _, err := FindProgramAddress(seeds, AssociatedTokenProgramID)
	if err != nil {
		return "", fmt.Errorf("derive ata: %w", err)
	}
	return ata, nil
}
