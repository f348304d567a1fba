// Package signing attaches and verifies the optional Ed25519 signature
// carried by a memory envelope, per the signing layer's contract: a
// canonical payload built from (id, content_hash, created_at, signer_did),
// a did:key DID derived from the public key, and a v1-fallback verifier
// for records signed before the v2 payload shape existed.
package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/signet-ai/signet/internal/collab"
	"github.com/signet-ai/signet/internal/signeterr"
)

// presenceCacheTTL is how long a loaded keypair is trusted before the
// loader is asked again. A failed load is not cached: the loader is asked
// again on the next call, so a freshly provisioned key is picked up
// without a daemon restart.
const presenceCacheTTL = 60 * time.Second

// Signer attaches and verifies signatures using an identity loaded from a
// pluggable collab.IdentityLoader. Presence is cached for 60s; once a DID
// has been seen it is cached for the process lifetime (the DID never
// changes without a brand new identity file, which would also invalidate
// the cached signer).
type Signer struct {
	loader collab.IdentityLoader

	mu        sync.Mutex
	identity  *collab.Identity
	loadedAt  time.Time
	cachedDID string
	loadErr   error
}

func New(loader collab.IdentityLoader) *Signer {
	return &Signer{loader: loader}
}

func (s *Signer) current() (*collab.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil && time.Since(s.loadedAt) < presenceCacheTTL {
		return s.identity, nil
	}

	id, err := s.loader.Load()
	if err != nil {
		s.loadErr = err
		return nil, err
	}
	s.identity = &id
	s.loadedAt = time.Now()
	s.loadErr = nil
	if s.cachedDID == "" {
		s.cachedDID = id.DID
	}
	return s.identity, nil
}

// Available reports whether a signing keypair is currently loadable,
// without surfacing the error (handleRemember signs only when this is
// true).
func (s *Signer) Available() bool {
	_, err := s.current()
	return err == nil
}

// DID returns the process-lifetime-cached DID, loading the identity once
// if it hasn't been seen yet.
func (s *Signer) DID() (string, error) {
	s.mu.Lock()
	if s.cachedDID != "" {
		defer s.mu.Unlock()
		return s.cachedDID, nil
	}
	s.mu.Unlock()

	id, err := s.current()
	if err != nil {
		return "", err
	}
	return id.DID, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func rejectPipe(fields ...string) error {
	for _, f := range fields {
		if strings.ContainsRune(f, '|') {
			return signeterr.InvalidPayload("signing payload fields must not contain '|'")
		}
	}
	return nil
}

// CanonicalPayloadV2 builds the current canonical payload: id|content_hash|created_at|signer_did.
func CanonicalPayloadV2(id, contentHash string, createdAt time.Time, signerDID string) ([]byte, error) {
	ts := formatTime(createdAt)
	if err := rejectPipe(id, contentHash, ts, signerDID); err != nil {
		return nil, err
	}
	return []byte(id + "|" + contentHash + "|" + ts + "|" + signerDID), nil
}

// CanonicalPayloadV1 builds the legacy payload: content_hash|created_at|signer_did.
func CanonicalPayloadV1(contentHash string, createdAt time.Time, signerDID string) ([]byte, error) {
	ts := formatTime(createdAt)
	if err := rejectPipe(contentHash, ts, signerDID); err != nil {
		return nil, err
	}
	return []byte(contentHash + "|" + ts + "|" + signerDID), nil
}

// Sign attaches a v2 signature to a memory envelope about to be written.
// handleRemember calls this whenever Available reports a keypair; there
// is no separate autoSign setting. Sign itself always signs when called.
func (s *Signer) Sign(id, contentHash string, createdAt time.Time) (signature, signerDID string, err error) {
	ident, err := s.current()
	if err != nil {
		return "", "", signeterr.DependencyUnavailable(fmt.Sprintf("signing keypair unavailable: %v", err))
	}
	payload, err := CanonicalPayloadV2(id, contentHash, createdAt, ident.DID)
	if err != nil {
		return "", "", err
	}
	sig := ed25519.Sign(ed25519.PrivateKey(ident.PrivateKey), payload)
	return base64.StdEncoding.EncodeToString(sig), ident.DID, nil
}

// Verify checks a record's signature, trying the v2 payload first and
// falling back to v1 for records signed before v2 existed. A verification
// failure is never fatal to a read — it is reported back as a bool for the
// caller's "verified" badge.
func Verify(pub ed25519.PublicKey, signatureB64 string, id, contentHash string, createdAt time.Time, signerDID string) (bool, error) {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false, nil
	}

	v2, err := CanonicalPayloadV2(id, contentHash, createdAt, signerDID)
	if err == nil && ed25519.Verify(pub, v2, sig) {
		return true, nil
	}

	v1, err := CanonicalPayloadV1(contentHash, createdAt, signerDID)
	if err != nil {
		return false, nil
	}
	return ed25519.Verify(pub, v1, sig), nil
}
