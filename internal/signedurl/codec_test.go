package signedurl

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCodec(t *testing.T, clock *fakeClock) *Codec {
	t.Helper()
	c, err := New("test-secret", "https://tunnel.example.com/", WithClock(clock.now))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func parseMinted(t *testing.T, raw string) (fileID string, expires int64, sign string) {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("minted url does not parse: %v", err)
	}
	if !strings.HasPrefix(u.Path, PathPrefix) {
		t.Fatalf("path %q does not start with %q", u.Path, PathPrefix)
	}
	expires, err = strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	if err != nil {
		t.Fatalf("expires: %v", err)
	}
	return strings.TrimPrefix(u.Path, PathPrefix), expires, u.Query().Get("sign")
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New("", "http://x"); err != ErrEmptySecret {
		t.Errorf("New(\"\") error = %v, want ErrEmptySecret", err)
	}
}

func TestMintFormat(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock)

	raw, expiresAt, err := c.Mint("abc.wav", time.Hour)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if !strings.HasPrefix(raw, "https://tunnel.example.com/api/public-media/abc.wav?") {
		t.Errorf("Mint() = %q", raw)
	}
	_, expires, sign := parseMinted(t, raw)
	if expires != 1_700_003_600 || expiresAt.Unix() != expires {
		t.Errorf("expires = %d (at %v), want 1700003600", expires, expiresAt)
	}
	if len(sign) != 64 {
		t.Errorf("sign length = %d, want 64 hex chars", len(sign))
	}
}

func TestMintRejectsNonPositiveTTL(t *testing.T) {
	c := newTestCodec(t, &fakeClock{t: time.Now()})
	if _, _, err := c.Mint("a.wav", 0); err != ErrInvalidTTL {
		t.Errorf("Mint(ttl=0) error = %v, want ErrInvalidTTL", err)
	}
}

func TestVerifyRoundTripAndExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock)

	raw, _, err := c.Mint("f00d.wav", 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	fileID, expires, sign := parseMinted(t, raw)

	if !c.Verify(fileID, expires, sign) {
		t.Fatal("Verify() should accept a freshly minted link")
	}

	clock.t = clock.t.Add(9 * time.Second)
	if !c.Verify(fileID, expires, sign) {
		t.Error("Verify() should accept the link before expiry")
	}

	clock.t = clock.t.Add(2 * time.Second)
	if c.Verify(fileID, expires, sign) {
		t.Error("Verify() should reject the link after expiry")
	}
}

func TestVerifyRejectsSingleBitMutations(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock)

	raw, _, _ := c.Mint("f00d.wav", time.Hour)
	fileID, expires, sign := parseMinted(t, raw)
	sigBytes := []byte(sign)

	for i := range sigBytes {
		mutated := append([]byte(nil), sigBytes...)
		// Flip the lowest bit of the hex digit's value.
		mutated[i] = flipHexBit(mutated[i])
		if c.Verify(fileID, expires, string(mutated)) {
			t.Fatalf("Verify() accepted signature mutated at %d", i)
		}
	}

	for bit := 0; bit < 63; bit++ {
		mutated := expires ^ (1 << bit)
		if c.Verify(fileID, mutated, sign) {
			t.Fatalf("Verify() accepted expires mutated at bit %d", bit)
		}
	}

	if c.Verify("f00e.wav", expires, sign) {
		t.Error("Verify() accepted a different file id")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	c := newTestCodec(t, &fakeClock{t: time.Unix(1_700_000_000, 0)})
	tests := []struct {
		name    string
		expires string
		sign    string
	}{
		{"non-hex sign", "1700003600", "zz"},
		{"empty sign", "1700003600", ""},
		{"non-numeric expires", "soon", c.Sign("a.wav", 1_700_003_600)},
		{"wrong secret", "1700003600", strings.Repeat("ab", 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c.VerifyQuery("a.wav", tt.expires, tt.sign) {
				t.Error("VerifyQuery() should reject")
			}
		})
	}
}

func TestDifferentSecretsDisagree(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	a, _ := New("secret-a", "http://x", WithClock(clock.now))
	b, _ := New("secret-b", "http://x", WithClock(clock.now))

	exp := clock.t.Add(time.Hour).Unix()
	if b.Verify("f.wav", exp, a.Sign("f.wav", exp)) {
		t.Error("a signature from another secret must not verify")
	}
}

func flipHexBit(c byte) byte {
	const digits = "0123456789abcdef"
	idx := strings.IndexByte(digits, c)
	return digits[idx^1]
}
