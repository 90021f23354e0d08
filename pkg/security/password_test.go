package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/raamul-storefront/pkg/config"
	"github.com/angelmondragon/raamul-storefront/pkg/security"
)

func testHasher() security.Hasher {
	return security.NewHasher(config.SandboxConfig{
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("admin123")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := h.Verify("admin123", hash)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v", ok, err)
	}
	ok, err = h.Verify("bogus-password", hash)
	if err != nil || ok {
		t.Fatalf("Verify(wrong) = %v, %v", ok, err)
	}
}

func TestVerifyUsesCostFromStoredHash(t *testing.T) {
	hash, err := testHasher().Hash("secret123")
	if err != nil {
		t.Fatal(err)
	}
	stronger := security.NewHasher(config.SandboxConfig{ArgonMemoryKB: 128, ArgonTime: 2, ArgonParallelism: 2})
	ok, err := stronger.Verify("secret123", hash)
	if err != nil || !ok {
		t.Fatalf("Verify with different config = %v, %v", ok, err)
	}
}

func TestNewHasherClampsParams(t *testing.T) {
	p := security.NewHasher(config.SandboxConfig{}).Params()
	if p.Memory != 8 || p.Time != 1 || p.Parallelism != 1 || p.SaltLen != 8 || p.KeyLen != 16 {
		t.Fatalf("unexpected clamped params %+v", p)
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	if _, err := testHasher().Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$$a2V5",
	} {
		if _, err := testHasher().Verify("irrelevant", encoded); err == nil {
			t.Fatalf("expected error for %q", encoded)
		}
	}
}

func TestNewToken(t *testing.T) {
	token, err := security.NewToken(32)
	if err != nil {
		t.Fatalf("NewToken returned error: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("expected 32 chars, got %d", len(token))
	}
	if strings.Trim(token, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") != "" {
		t.Fatalf("token %q has characters outside the alphabet", token)
	}
	if _, err := security.NewToken(0); err == nil {
		t.Fatal("expected error for non-positive length")
	}
}
