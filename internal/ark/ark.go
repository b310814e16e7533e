// Package ark implements ARK (Announce-Role-Key) signing, verification,
// and the least-recently-broadcast store a node cycles through when
// periodically re-announcing the roles it knows about.
package ark

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/zeebo/blake3"

	"github.com/luxfi/prism/internal/errs"
	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/wire"
)

func blake3Digest(data []byte) ([]byte, error) {
	sum := blake3.Sum256(data)
	return sum[:], nil
}

// KeyPair signs and verifies ARKs for one role identity.
type KeyPair struct {
	Private *secp256k1.PrivateKey
}

// GenerateKeyPair creates a fresh signing key for a role to announce
// itself with.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("ark: generating key: %w", err)
	}
	return &KeyPair{Private: priv}, nil
}

// PublicKeyBytes is the compressed public key to embed in an ARK so
// others can verify it without a prior key exchange.
func (k *KeyPair) PublicKeyBytes() []byte {
	return k.Private.PubKey().SerializeCompressed()
}

// Sign attaches this key's public key to a clone of msg, computes the
// ARK's signature over encode(clone(signature=None, debug=None)) of that
// clone, and returns it with the signature attached (spec.md 4.3).
func (k *KeyPair) Sign(msg *wire.Message) (*wire.Message, error) {
	withKey := msg.Clone(map[wire.FieldIndex]interface{}{
		wire.FieldPublicKey: k.PublicKeyBytes(),
	})
	signable, err := wire.SignableBytes(withKey)
	if err != nil {
		return nil, err
	}
	digest, err := blake3Digest(signable)
	if err != nil {
		return nil, err
	}
	sig, err := schnorr.Sign(k.Private, digest)
	if err != nil {
		return nil, fmt.Errorf("ark: signing: %w", err)
	}
	return withKey.Clone(map[wire.FieldIndex]interface{}{
		wire.FieldSignature: sig.Serialize(),
	}), nil
}

// Verify checks an ARK's embedded signature against its embedded public
// key. Returns errs.ErrARKVerification if the signature doesn't check out
// or the ARK carries no signature/public key at all.
func Verify(msg *wire.Message) error {
	sigBytes := msg.GetBytes(wire.FieldSignature)
	pubBytes := msg.GetBytes(wire.FieldPublicKey)
	if len(sigBytes) == 0 || len(pubBytes) == 0 {
		return fmt.Errorf("%w: missing signature or public key", errs.ErrARKVerification)
	}

	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("%w: invalid public key: %v", errs.ErrARKVerification, err)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: invalid signature: %v", errs.ErrARKVerification, err)
	}

	signable, err := wire.SignableBytes(msg)
	if err != nil {
		return err
	}
	digest, err := blake3Digest(signable)
	if err != nil {
		return err
	}
	if !sig.Verify(digest, pub) {
		return errs.ErrARKVerification
	}
	return nil
}

// record tracks one role's most recent ARK and when it was last included
// in an outgoing ARKS batch.
type record struct {
	ark          *wire.Message
	lastBroadcast time.Time
}

// Store is the least-recently-broadcast ARK cache a node cycles through
// (spec.md 4.3, "ArkStore").
type Store struct {
	mu      sync.Mutex
	records map[string]*record
	log     *logging.Logger
}

// NewStore builds an empty ARK store.
func NewStore(log *logging.Logger) *Store {
	return &Store{records: make(map[string]*record), log: log}
}

// Record adds or replaces the ARK for the pseudonym it announces. If
// rebroadcast is set, the record's last-broadcast time resets to the
// epoch so it's prioritized on the next cycle.
func (s *Store) Record(ark *wire.Message, rebroadcast bool) {
	pseudonym := ark.GetString(wire.FieldPseudonym)
	if pseudonym == "" {
		pseudonym = ark.GetString(wire.FieldName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[pseudonym]
	if !ok {
		rec = &record{}
		s.records[pseudonym] = rec
	}
	rec.ark = ark
	if rebroadcast {
		rec.lastBroadcast = time.Unix(0, 0)
	}
}

// Promote bumps pseudonym's record to the front of the broadcast queue
// without altering its content, used when a role is freshly confirmed
// alive and should be announced again soon.
func (s *Store) Promote(pseudonym string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[pseudonym]; ok {
		rec.lastBroadcast = time.Unix(0, 0).Add(time.Second)
	}
}

// Remove drops a pseudonym's ARK entirely (e.g. after NARK confirmation).
func (s *Store) Remove(pseudonym string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, pseudonym)
}

// Lookup returns the stored ARK for a pseudonym, if any.
func (s *Store) Lookup(pseudonym string) (*wire.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[pseudonym]
	if !ok {
		return nil, false
	}
	return rec.ark, true
}

// encodedSize returns the wire-encoded size of msg, or a very large
// number on encode failure so BroadcastMessage never packs an
// unencodable message into a batch.
func encodedSize(msg *wire.Message) int {
	b, err := wire.Encode(msg)
	if err != nil {
		return 1 << 30
	}
	return len(b)
}

// BroadcastMessage selects the least-recently-broadcast ARKs that fit
// within mtu bytes once batched into a single ARKS message, marks them as
// just-broadcast, and returns that message (spec.md 4.3,
// "ArkStore.broadcast_message"). Returns nil if there's nothing to send.
func (s *Store) BroadcastMessage(selfPseudonym, epoch string, microTimestamp int64, mtu int) *wire.Message {
	s.mu.Lock()
	records := make([]*record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].lastBroadcast.Before(records[j].lastBroadcast)
	})

	var batch []*record
	var message *wire.Message
	newSize := 0

	for size := 1; size <= len(records); size++ {
		candidateBatch := records[:size]
		subs := make([]*wire.Message, len(candidateBatch))
		for i, r := range candidateBatch {
			subs[i] = r.ark
		}
		candidate := wire.New(wire.TypeARKBatch).
			Set(wire.FieldPseudonym, selfPseudonym).
			Set(wire.FieldEpoch, epoch).
			Set(wire.FieldMicroTimestamp, microTimestamp).
			Set(wire.FieldSubmessages, subs)
		newSize = encodedSize(candidate)
		if newSize > mtu {
			break
		}
		batch = candidateBatch
		message = candidate
	}

	if newSize > 0 && message == nil {
		s.log.With("size", newSize, "mtu", mtu).Warn("single ARK exceeds MTU")
	}

	now := time.Now()
	for _, r := range batch {
		r.lastBroadcast = now
	}
	return message
}
