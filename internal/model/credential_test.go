package model

import "testing"

func TestCredentialHashAndVerify(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	hash, err := HashCredential("portal-secret", salt)
	if err != nil {
		t.Fatalf("HashCredential: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyCredential("portal-secret", salt, hash) {
		t.Fatalf("expected verify ok")
	}
	if VerifyCredential("wrong", salt, hash) {
		t.Fatalf("expected verify fail")
	}
}
