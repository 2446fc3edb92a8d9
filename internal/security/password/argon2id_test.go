package password

import (
	"strings"
	"testing"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	phc, err := Hash(Default, "hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$") {
		t.Fatalf("unexpected PHC prefix: %s", phc)
	}
	if !Verify("hunter22", phc) {
		t.Fatal("correct password rejected")
	}
	if Verify("hunter23", phc) {
		t.Fatal("wrong password accepted")
	}
}

func TestHashesAreSalted(t *testing.T) {
	a, err := Hash(Default, "hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := Hash(Default, "hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536",
		"$bcrypt$something",
	}
	for _, phc := range cases {
		if Verify("hunter22", phc) {
			t.Fatalf("malformed hash %q accepted", phc)
		}
	}
}
