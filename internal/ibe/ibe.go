// Package ibe defines the capability boundary the client pipeline needs
// from an Identity-Based Encryption scheme, without implementing IBE
// math itself — spec.md's Non-goals explicitly treat "the Identity-Based
// Encryption primitive itself" as an abstract capability collaborators
// supply.
package ibe

import "context"

// Scheme encrypts a payload to a recipient identified only by name (no
// certificate exchange needed before the first message) and decrypts
// payloads addressed to an identity this node holds a private key for.
type Scheme interface {
	// Encrypt produces a ciphertext only the holder of recipientName's
	// private key can decrypt.
	Encrypt(recipientName string, plaintext []byte) ([]byte, error)
	// Decrypt recovers the plaintext of a payload addressed to this
	// scheme's own identity.
	Decrypt(ciphertext []byte) ([]byte, error)
	// CanDecrypt reports whether this Scheme currently holds a private
	// key (client.py's ibe.can_decrypt): false until bootstrap has
	// combined enough key shards, after which the client pipeline can
	// stop queueing received messages and start decrypting them.
	CanDecrypt() bool
}

// KeyShard is one committee member's contribution to a client's private
// key, issued during the bootstrap handshake against the
// client-registration committee (spec.md 4.11, "IBE boot").
type KeyShard struct {
	CommitteeMember string
	Data            []byte
}

// Bootstrapper requests and combines private-key shards from the
// client-registration committee into a usable Scheme for a given
// identity, for a client that doesn't yet hold a decryption key.
type Bootstrapper interface {
	// RequestShard asks one committee member for its shard of the
	// named identity's private key.
	RequestShard(ctx context.Context, committeeMember, identity string, nonce []byte) (KeyShard, error)
	// Combine assembles enough shards into a Scheme capable of
	// decrypting for identity. It errors if shards is below whatever
	// threshold the underlying scheme requires.
	Combine(identity string, shards []KeyShard) (Scheme, error)
}
