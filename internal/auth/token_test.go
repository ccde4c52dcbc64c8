package auth

import "testing"

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("unexpected userID: %s", userID)
	}
}

func TestIssueProducesDistinctTokens(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	first, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	second, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if first == second {
		t.Fatal("tokens for the same user must differ per issuance")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	other := NewTokenIssuer("other-secret")

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	if _, err := issuer.Verify("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
