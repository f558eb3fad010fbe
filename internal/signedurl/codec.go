// Package signedurl mints and verifies expiring HMAC-signed links to files
// in the media store.
//
// A link has the form
//
//	{base}/api/public-media/{fileId}?expires=<unix seconds>&sign=<hex>
//
// where sign is HMAC-SHA256(secret, fileId ":" expires). Nothing is stored:
// validity is recomputed from the request, the secret and the clock.
package signedurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PathPrefix is the route the public media gateway is mounted on.
const PathPrefix = "/api/public-media/"

var (
	ErrEmptySecret = errors.New("signed url secret must not be empty")
	ErrInvalidTTL  = errors.New("signed url ttl must be positive")
)

type Codec struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// New creates a Codec. baseURL is the externally reachable address of this
// server, e.g. a tunnel hostname.
func New(secret, baseURL string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	c := &Codec{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mint returns a link to fileID that stays valid for ttl, and its expiry.
func (c *Codec) Mint(fileID string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, ErrInvalidTTL
	}
	expiresAt := c.now().Add(ttl).Truncate(time.Second)
	expires := expiresAt.Unix()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sign", c.Sign(fileID, expires))

	return fmt.Sprintf("%s%s%s?%s", c.baseURL, PathPrefix, url.PathEscape(fileID), q.Encode()), expiresAt, nil
}

// Sign computes the hex signature for fileID and expires.
func (c *Codec) Sign(fileID string, expires int64) string {
	return hex.EncodeToString(c.mac(fileID, expires))
}

// Verify reports whether sign is a valid signature for fileID and expires
// and the expiry is still in the future.
func (c *Codec) Verify(fileID string, expires int64, sign string) bool {
	got, err := hex.DecodeString(sign)
	if err != nil {
		return false
	}
	// Compare before looking at the clock so both checks always run.
	validSig := hmac.Equal(got, c.mac(fileID, expires))
	notExpired := expires > c.now().Unix()
	return validSig && notExpired
}

// VerifyQuery is Verify with the raw query values of a request.
func (c *Codec) VerifyQuery(fileID, expires, sign string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	return c.Verify(fileID, exp, sign)
}

func (c *Codec) mac(fileID string, expires int64) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(fileID))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.FormatInt(expires, 10)))
	return h.Sum(nil)
}
