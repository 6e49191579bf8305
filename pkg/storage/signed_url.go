package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Download token failures.
var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
	ErrSignerDisabled = errors.New("download signing secret not configured")
)

// SignedObject is what a verified download token grants access to.
type SignedObject struct {
	OwnerID   string
	Name      string
	ExpiresAt time.Time
}

// URLSigner issues HMAC-SHA256 tokens binding an owner id (an export job) to a
// stored file name and an expiry.
type URLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewURLSigner builds a signer. A non-positive ttl means 24 hours.
func NewURLSigner(secret string, ttl time.Duration) *URLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &URLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a URL-safe token of the form owner.expiry.name.signature.
func (s *URLSigner) Sign(ownerID, name string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrSignerDisabled
	}
	if ownerID == "" || name == "" || strings.Contains(ownerID, ".") {
		return "", time.Time{}, ErrTokenMalformed
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(name))
	return strings.Join([]string{ownerID, exp, encoded, s.mac(ownerID, exp, encoded)}, "."), expiresAt, nil
}

// Verify checks the signature and expiry and returns the embedded object.
func (s *URLSigner) Verify(token string) (*SignedObject, error) {
	if len(s.secret) == 0 {
		return nil, ErrSignerDisabled
	}
	parts := strings.Split(token, ".")
	if len(parts) != 4 || parts[0] == "" {
		return nil, ErrTokenMalformed
	}
	owner, exp, encoded, signature := parts[0], parts[1], parts[2], parts[3]
	if !hmac.Equal([]byte(s.mac(owner, exp, encoded)), []byte(signature)) {
		return nil, ErrTokenSignature
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	name, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(name) == 0 {
		return nil, ErrTokenMalformed
	}
	expiresAt := time.Unix(unix, 0).UTC()
	if s.now().After(expiresAt) {
		return nil, ErrTokenExpired
	}
	return &SignedObject{OwnerID: owner, Name: string(name), ExpiresAt: expiresAt}, nil
}

func (s *URLSigner) mac(owner, exp, encoded string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(owner + "|" + exp + "|" + encoded))
	return hex.EncodeToString(h.Sum(nil))
}
