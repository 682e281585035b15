package service

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"access-tool/internal/platform/tonconnect"
)

const (
	defaultProofTTL   = 15 * time.Minute
	usedPayloadsLimit = 4096
	// Допустимое расхождение часов кошелька и сервера
	clockSkew = time.Minute
)

var (
	ErrProofDomain   = errors.New("ton_proof domain mismatch")
	ErrProofExpired  = errors.New("ton_proof expired")
	ErrProofReplayed = errors.New("ton_proof payload already used")
)

// ProofVerifier checks wallet ownership proofs. A payload is accepted once.
type ProofVerifier struct {
	domain string
	ttl    time.Duration
	now    func() time.Time

	mu   sync.Mutex
	used *expirable.LRU[string, struct{}]
}

// NewProofVerifier checks proofs against domain. An empty domain accepts any domain.
func NewProofVerifier(domain string, ttl time.Duration) *ProofVerifier {
	if ttl <= 0 {
		ttl = defaultProofTTL
	}
	return &ProofVerifier{
		domain: domain,
		ttl:    ttl,
		now:    time.Now,
		used:   expirable.NewLRU[string, struct{}](usedPayloadsLimit, nil, ttl+clockSkew),
	}
}

func (v *ProofVerifier) Verify(address string, publicKey ed25519.PublicKey, proof tonconnect.Proof) error {
	if v.domain != "" && proof.Domain.Value != v.domain {
		return fmt.Errorf("%w: %q", ErrProofDomain, proof.Domain.Value)
	}

	signedAt := time.Unix(proof.Timestamp, 0)
	now := v.now()
	if now.Sub(signedAt) > v.ttl || signedAt.Sub(now) > clockSkew {
		return fmt.Errorf("%w: signed at %s", ErrProofExpired, signedAt.UTC().Format(time.RFC3339))
	}

	if err := proof.Verify(address, publicKey); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.used.Contains(proof.Payload) {
		return ErrProofReplayed
	}
	v.used.Add(proof.Payload, struct{}{})
	return nil
}
