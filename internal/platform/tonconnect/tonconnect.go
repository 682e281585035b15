// Package tonconnect describes the wallet connect protocol surface the client relies on.
package tonconnect

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	proofItemPrefix = "ton-proof-item-v2/"
	connectPrefix   = "ton-connect"
)

var ErrBadSignature = errors.New("ton_proof signature mismatch")

// Domain of the app that requested the proof.
type Domain struct {
	LengthBytes uint32 `json:"lengthBytes"`
	Value       string `json:"value"`
}

// Proof is the ton_proof item returned by a wallet.
type Proof struct {
	Timestamp int64  `json:"timestamp"`
	Domain    Domain `json:"domain"`
	Payload   string `json:"payload"`
	// Подпись в base64
	Signature string `json:"signature"`
	StateInit string `json:"state_init,omitempty"`
}

// SignedHash returns the digest a wallet signs for this proof on behalf of address.
func (p Proof) SignedHash(address string) ([]byte, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	var msg bytes.Buffer
	msg.WriteString(proofItemPrefix)
	_ = binary.Write(&msg, binary.BigEndian, addr.Workchain())
	msg.Write(addr.Data())
	_ = binary.Write(&msg, binary.LittleEndian, uint32(len(p.Domain.Value)))
	msg.WriteString(p.Domain.Value)
	_ = binary.Write(&msg, binary.LittleEndian, uint64(p.Timestamp))
	msg.WriteString(p.Payload)
	msgHash := sha256.Sum256(msg.Bytes())

	full := make([]byte, 0, 2+len(connectPrefix)+sha256.Size)
	full = append(full, 0xff, 0xff)
	full = append(full, connectPrefix...)
	full = append(full, msgHash[:]...)
	sum := sha256.Sum256(full)
	return sum[:], nil
}

// Verify checks the base64 signature against the public key of the wallet.
func (p Proof) Verify(address string, publicKey ed25519.PublicKey) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
	}
	sig, err := base64.StdEncoding.DecodeString(p.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	hash, err := p.SignedHash(address)
	if err != nil {
		return err
	}
	if !ed25519.Verify(publicKey, hash, sig) {
		return ErrBadSignature
	}
	return nil
}

// Sign fills the signature using key. Used by tests and the sandbox.
func (p *Proof) Sign(address string, key ed25519.PrivateKey) error {
	hash, err := p.SignedHash(address)
	if err != nil {
		return err
	}
	p.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(key, hash))
	return nil
}

// DecodePublicKey accepts the hex form used by wallets and the base64 form.
func DecodePublicKey(s string) (ed25519.PublicKey, error) {
	if key, err := hex.DecodeString(s); err == nil && len(key) == ed25519.PublicKeySize {
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key %q", s)
	}
	return key, nil
}

type Account struct {
	Address   string `json:"address"`
	Chain     string `json:"chain"`
	PublicKey string `json:"publicKey,omitempty"`
	StateInit string `json:"walletStateInit,omitempty"`
}

// Wallet is a connected wallet. Proof is nil when the wallet reconnected from a stored
// session without signing a new payload.
type Wallet struct {
	Device  string  `json:"device,omitempty"`
	Account Account `json:"account"`
	Proof   *Proof  `json:"proof,omitempty"`
}

// StatusHandler receives the connected wallet, or nil when the wallet disconnects.
type StatusHandler func(w *Wallet)

// Connector is the external wallet connect library.
type Connector interface {
	// SetProofPayload sets the payload the next connection must sign.
	SetProofPayload(payload string)
	OpenModal(ctx context.Context) error
	Disconnect(ctx context.Context) error
	// OnStatusChange can fire several times for the same wallet.
	OnStatusChange(fn StatusHandler) (unsubscribe func())
	Wallet() *Wallet
}
