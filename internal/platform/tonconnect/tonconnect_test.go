package tonconnect

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddress = "0:" + strings.Repeat("1", 64)

func signedProof(t *testing.T, payload string) (Proof, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	p := Proof{
		Timestamp: 1700000000,
		Domain:    Domain{LengthBytes: 9, Value: "localhost"},
		Payload:   payload,
	}
	require.NoError(t, p.Sign(testAddress, priv))
	return p, pub
}

func TestProof_SignAndVerify(t *testing.T) {
	p, pub := signedProof(t, "payload-1")
	require.NoError(t, p.Verify(testAddress, pub))

	tampered := p
	tampered.Payload = "payload-2"
	assert.ErrorIs(t, tampered.Verify(testAddress, pub), ErrBadSignature)

	other := "0:" + strings.Repeat("2", 64)
	assert.ErrorIs(t, p.Verify(other, pub), ErrBadSignature)

	assert.Error(t, p.Verify(testAddress, pub[:10]))
}

func TestProof_SignedHashIsStable(t *testing.T) {
	p := Proof{Timestamp: 1, Domain: Domain{Value: "a"}, Payload: "x"}
	h1, err := p.SignedHash(testAddress)
	require.NoError(t, err)
	h2, err := p.SignedHash(testAddress)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)

	_, err = p.SignedHash("not-an-address")
	assert.Error(t, err)
}

func TestDecodePublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	fromHex, err := DecodePublicKey(hex.EncodeToString(pub))
	require.NoError(t, err)
	assert.Equal(t, pub, fromHex)

	_, err = DecodePublicKey("zz")
	assert.Error(t, err)
}

func TestParseWallet_Shapes(t *testing.T) {
	p, pub := signedProof(t, "abc")

	nested, err := json.Marshal(Wallet{
		Account: Account{Address: testAddress, Chain: "-239", PublicKey: hex.EncodeToString(pub), StateInit: "te6c"},
		Proof:   &p,
	})
	require.NoError(t, err)
	w, err := ParseWallet(nested)
	require.NoError(t, err)
	assert.Equal(t, testAddress, w.Account.Address)
	assert.Equal(t, "te6c", w.Proof.StateInit)

	flat, err := json.Marshal(map[string]interface{}{
		"address":    testAddress,
		"network":    "-239",
		"public_key": hex.EncodeToString(pub),
		"proof":      p,
	})
	require.NoError(t, err)
	w, err = ParseWallet(flat)
	require.NoError(t, err)
	assert.Equal(t, "-239", w.Account.Chain)
	assert.Equal(t, "abc", w.Proof.Payload)

	_, err = ParseWallet([]byte(`{}`))
	assert.ErrorIs(t, err, ErrEmptyProof)
	_, err = ParseWallet([]byte(`{"address": "nope"}`))
	assert.Error(t, err)
}

func TestManual_Flow(t *testing.T) {
	var out bytes.Buffer
	m := NewManual(&out)
	assert.ErrorIs(t, m.OpenModal(context.Background()), ErrNoProofAsked)

	m.SetProofPayload("payload-1")
	require.NoError(t, m.OpenModal(context.Background()))
	assert.Contains(t, out.String(), "payload-1")

	var seen []*Wallet
	unsubscribe := m.OnStatusChange(func(w *Wallet) { seen = append(seen, w) })

	_, err := m.Submit([]byte(`{"account": {"address": "` + testAddress + `", "chain": "-239"}}`))
	require.NoError(t, err)
	require.NotNil(t, m.Wallet())

	require.NoError(t, m.Disconnect(context.Background()))
	assert.Nil(t, m.Wallet())
	require.Len(t, seen, 2)
	assert.NotNil(t, seen[0])
	assert.Nil(t, seen[1])

	unsubscribe()
	_, err = m.Submit([]byte(`{"account": {"address": "` + testAddress + `"}}`))
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}
