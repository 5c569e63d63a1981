package auth

import "testing"

func TestNewAdminGate_RequiresToken(t *testing.T) {
	if _, err := NewAdminGate(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestAdminGate_Admit(t *testing.T) {
	gate, err := NewAdminGate("s3cret-token")
	if err != nil {
		t.Fatalf("NewAdminGate: %v", err)
	}

	if !gate.Admit("s3cret-token") {
		t.Fatalf("expected exact token to be admitted")
	}

	denied := []string{
		"",
		"s3cret-tokeN",
		"t3cret-token",
		"s3cret-token ",
		"s3cret-toke",
		"s3cret-token-extra",
	}
	for _, v := range denied {
		if err := gate.Check(v); err != ErrAdminDenied {
			t.Fatalf("expected ErrAdminDenied for %q, got %v", v, err)
		}
	}
}
