package solana

import (
	"testing"

	"github.com/mr-tron/base58"
)

const (
	testOwner = "DRiP2Pn2K6fuMLKQmt5rZWyHiUZ6WK3GChEySUpHSS4x"
	testMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestFindProgramAddress_OffCurve(t *testing.T) {
	ownerBytes, _ := base58.Decode(testOwner)
	mintBytes, _ := base58.Decode(testMint)
	tokenProgramBytes, _ := base58.Decode(TokenProgramID)

	seeds := [][]byte{ownerBytes, tokenProgramBytes, mintBytes}
	addr, bump, err := FindProgramAddress(seeds, AssociatedTokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}

	raw, err := base58.Decode(addr)
	if err != nil {
		t.Fatalf("derived address is not valid base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("derived address is %d bytes, want 32", len(raw))
	}
	if isOnCurve(raw) {
		t.Error("derived address must be off the ed25519 curve")
	}
	if bump == 0 {
		t.Error("bump must be nonzero")
	}
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	ownerBytes, _ := base58.Decode(testOwner)
	seeds := [][]byte{ownerBytes}

	a1, b1, err := FindProgramAddress(seeds, AssociatedTokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	a2, b2, err := FindProgramAddress(seeds, AssociatedTokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}

	if a1 != a2 || b1 != b2 {
		t.Errorf("derivation not deterministic: %s/%d vs %s/%d", a1, b1, a2, b2)
	}
}

func TestDeriveATA(t *testing.T) {
	ata, err := DeriveATA(testOwner, testMint)
	if err != nil {
		t.Fatalf("DeriveATA: %v", err)
	}

	raw, err := base58.Decode(ata)
	if err != nil {
		t.Fatalf("ata is not valid base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("ata is %d bytes, want 32", len(raw))
	}

	// Different owner yields a different account.
	other, err := DeriveATA(testMint, testMint)
	if err != nil {
		t.Fatalf("DeriveATA: %v", err)
	}
	if other == ata {
		t.Error("distinct owners must derive distinct accounts")
	}
}

func TestDeriveATA_InvalidInput(t *testing.T) {
	if _, err := DeriveATA("not-base58-0OIl", testMint); err == nil {
		t.Error("expected error for invalid owner")
	}
	if _, err := DeriveATA(testOwner, "short"); err == nil {
		t.Error("expected error for short mint")
	}
}
