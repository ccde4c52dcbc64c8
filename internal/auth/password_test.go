package auth

import "testing"

func TestHashPasswordNotPlaintext(t *testing.T) {
	digest, err := HashPassword("MyPass777!", 4)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if digest == "MyPass777!" {
		t.Fatal("digest must not equal the plaintext")
	}
	if !CheckPassword("MyPass777!", digest) {
		t.Fatal("CheckPassword should accept the original plaintext")
	}
	if CheckPassword("wrongpass", digest) {
		t.Fatal("CheckPassword should reject a different plaintext")
	}
}

func TestHashPasswordInvalidCostFallsBack(t *testing.T) {
	digest, err := HashPassword("MyPass777!", 99)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !CheckPassword("MyPass777!", digest) {
		t.Fatal("digest generated with fallback cost should verify")
	}
}
