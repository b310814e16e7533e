package dropbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/prism/internal/errs"
)

// HalfKey is the public half of a Diffie-Hellman exchange: what a client
// attaches to a poll so the replying dropbox can derive a shared secret
// without a prior handshake (spec.md 4.8, "half-key exchange").
type HalfKey struct {
	pub *secp256k1.PublicKey
}

// HalfKeyFromBytes parses a compressed public key received on the wire.
func HalfKeyFromBytes(b []byte) (HalfKey, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return HalfKey{}, fmt.Errorf("dropbox: parsing half-key: %w", err)
	}
	return HalfKey{pub: pub}, nil
}

// EphemeralHalfKey is a private key generated for one exchange; it's
// used once and discarded (spec.md 4.8, "generate_private").
type EphemeralHalfKey struct {
	priv *secp256k1.PrivateKey
}

// GenerateHalfKey creates a fresh ephemeral key pair.
func GenerateHalfKey() (*EphemeralHalfKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("dropbox: generating half-key: %w", err)
	}
	return &EphemeralHalfKey{priv: priv}, nil
}

// PublicBytes returns the compressed public key to send to the peer.
func (k *EphemeralHalfKey) PublicBytes() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// Public returns this key's public half as a HalfKey for symmetry with
// HalfKeyFromBytes.
func (k *EphemeralHalfKey) Public() HalfKey {
	return HalfKey{pub: k.priv.PubKey()}
}

func (k *EphemeralHalfKey) sharedSecret(peer HalfKey) []byte {
	var point secp256k1.JacobianPoint
	peer.pub.AsJacobian(&point)
	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&k.priv.Key, &point, &result)
	result.ToAffine()
	x := result.X.Bytes()
	return x[:]
}

// deriveAEAD turns a raw ECDH shared secret into an AES-GCM cipher via
// HKDF, the same shared-secret-to-symmetric-key pattern x/crypto's hkdf
// package is meant for.
func deriveAEAD(secret []byte) (cipher.AEAD, error) {
	kdf := hkdf.New(sha256.New, secret, nil, []byte("prism-dropbox-halfkey"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("dropbox: deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("dropbox: building cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt encrypts plaintext for peer, using this key's private half to
// derive the shared secret (spec.md 4.8's server-message `encrypt`).
func (k *EphemeralHalfKey) Encrypt(peer HalfKey, plaintext []byte) ([]byte, error) {
	aead, err := deriveAEAD(k.sharedSecret(peer))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("dropbox: generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts a ciphertext produced by Encrypt(k.Public(), ...) on
// the other side of the exchange, using this side's private key and the
// peer's ephemeral public key.
func (k *EphemeralHalfKey) Decrypt(peer HalfKey, ciphertext []byte) ([]byte, error) {
	aead, err := deriveAEAD(k.sharedSecret(peer))
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", errs.ErrDecryptFailure)
	}
	nonce, ct := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDecryptFailure, err)
	}
	return plaintext, nil
}
