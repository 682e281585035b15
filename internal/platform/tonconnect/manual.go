package tonconnect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/xssnick/tonutils-go/address"
)

var (
	ErrEmptyProof   = errors.New("proof has no account address")
	ErrNoProofAsked = errors.New("no proof payload requested")
)

// Manual is a Connector for terminals: the modal prints the payload to sign and the
// signed result is fed back with Submit.
type Manual struct {
	out io.Writer

	mu       sync.Mutex
	payload  string
	wallet   *Wallet
	handlers map[int]StatusHandler
	nextID   int
}

func NewManual(out io.Writer) *Manual {
	return &Manual{out: out, handlers: make(map[int]StatusHandler)}
}

func (m *Manual) SetProofPayload(payload string) {
	m.mu.Lock()
	m.payload = payload
	m.mu.Unlock()
}

func (m *Manual) Payload() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload
}

func (m *Manual) OpenModal(context.Context) error {
	payload := m.Payload()
	if payload == "" {
		return ErrNoProofAsked
	}
	_, err := fmt.Fprintf(m.out, "Sign this ton_proof payload in your wallet and paste the result:\n%s\n", payload)
	return err
}

func (m *Manual) Disconnect(context.Context) error {
	m.mu.Lock()
	had := m.wallet != nil
	m.wallet = nil
	m.mu.Unlock()
	if had {
		m.emit(nil)
	}
	return nil
}

func (m *Manual) OnStatusChange(fn StatusHandler) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

func (m *Manual) Wallet() *Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallet
}

// Submit parses a wallet connect result and reports it as a status change. Both the
// TonConnect wallet object and the flat ton_proof shape ({address, network, public_key,
// proof}) are accepted.
func (m *Manual) Submit(data []byte) (*Wallet, error) {
	w, err := ParseWallet(data)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.wallet = w
	m.mu.Unlock()
	m.emit(w)
	return w, nil
}

func (m *Manual) emit(w *Wallet) {
	m.mu.Lock()
	fns := make([]StatusHandler, 0, len(m.handlers))
	for _, fn := range m.handlers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(w)
	}
}

type flatProof struct {
	Address   string `json:"address"`
	Network   string `json:"network"`
	PublicKey string `json:"public_key"`
	Proof     *Proof `json:"proof"`
}

// ParseWallet decodes a wallet from JSON and checks that the address is a TON address.
func ParseWallet(data []byte) (*Wallet, error) {
	var w Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode wallet: %w", err)
	}
	if w.Account.Address == "" {
		var flat flatProof
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, fmt.Errorf("failed to decode proof: %w", err)
		}
		w = Wallet{
			Account: Account{Address: flat.Address, Chain: flat.Network, PublicKey: flat.PublicKey},
			Proof:   flat.Proof,
		}
	}
	if w.Account.Address == "" {
		return nil, ErrEmptyProof
	}
	if _, err := parseAddress(w.Account.Address); err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %w", w.Account.Address, err)
	}
	if w.Proof != nil && w.Proof.StateInit == "" {
		w.Proof.StateInit = w.Account.StateInit
	}
	return &w, nil
}

func parseAddress(s string) (*address.Address, error) {
	if addr, err := address.ParseRawAddr(s); err == nil {
		return addr, nil
	}
	return address.ParseAddr(s)
}
