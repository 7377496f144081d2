package processor

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrMissingSignature is returned when the signer capability rejects a request.
var ErrMissingSignature = errors.New("missing or invalid signer signature")

// Accounts names the pool slot and the identities a request expects it to
// carry. Authority is only read by InitializePool.
type Accounts struct {
	Pool      solana.PublicKey
	Authority solana.PublicKey
	ShareMint solana.PublicKey
	AssetMint solana.PublicKey
}

// Request is a signed, encoded instruction against one pool.
type Request struct {
	Signer    solana.PublicKey
	Signature solana.Signature
	Accounts  Accounts
	Data      []byte
}

// Message returns the bytes covered by the signature: the four account ids
// followed by the instruction data.
func (r Request) Message() []byte {
	msg := make([]byte, 0, 4*solana.PublicKeyLength+len(r.Data))
	msg = append(msg, r.Accounts.Pool[:]...)
	msg = append(msg, r.Accounts.Authority[:]...)
	msg = append(msg, r.Accounts.ShareMint[:]...)
	msg = append(msg, r.Accounts.AssetMint[:]...)
	return append(msg, r.Data...)
}

// Sign sets Signer to key's public key and signs the request message.
func (r *Request) Sign(key solana.PrivateKey) error {
	r.Signer = key.PublicKey()
	sig, err := key.Sign(r.Message())
	if err != nil {
		return err
	}
	r.Signature = sig
	return nil
}

// SignerVerifier decides whether signer authorized message.
type SignerVerifier interface {
	Verify(signer solana.PublicKey, message []byte, sig solana.Signature) bool
}

// Ed25519Verifier checks a detached ed25519 signature.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(signer solana.PublicKey, message []byte, sig solana.Signature) bool {
	if signer.IsZero() {
		return false
	}
	return sig.Verify(signer, message)
}
