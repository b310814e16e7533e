package field

import (
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
)

// encodeChunk CBOR-encodes a byte chunk and interprets the result as a
// big-endian field element, matching the source's
// SecretSharing.encode_chunk (int.from_bytes(cbor2.dumps(data))). The CBOR
// byte-string header is why ChunkSizeBytes reserves header bytes.
func encodeChunk(data []byte) (*saferith.Nat, error) {
	enc, err := cbor.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("field: encoding chunk: %w", err)
	}
	return new(saferith.Nat).SetBytes(enc), nil
}

// decodeChunk inverts encodeChunk.
func decodeChunk(secret *saferith.Nat) ([]byte, error) {
	var out []byte
	if err := cbor.Unmarshal(secret.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("field: decoding chunk: %w", err)
	}
	return out, nil
}

// EncodeBytes splits data into modulus-sized chunks and CBOR/field-encodes
// each one.
func (p *Params) EncodeBytes(data []byte) ([]*saferith.Nat, error) {
	chunkSize := p.ChunkSizeBytes()
	var secrets []*saferith.Nat
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		secret, err := encodeChunk(data[i:end])
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, secret)
	}
	if len(secrets) == 0 {
		secret, err := encodeChunk(nil)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, secret)
	}
	return secrets, nil
}

// DecodeBytes inverts EncodeBytes.
func (p *Params) DecodeBytes(secrets []*saferith.Nat) ([]byte, error) {
	var out []byte
	for _, s := range secrets {
		chunk, err := decodeChunk(s)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// ShareBytes splits data into chunks, shares each chunk, and transposes the
// result so the outer slice is indexed by party and the inner slice holds
// one share per chunk (spec.md 4.1, "share_bytes"). Grounded on the
// source's SecretSharing.share_bytes.
func (p *Params) ShareBytes(data []byte) ([][]Share, error) {
	secrets, err := p.EncodeBytes(data)
	if err != nil {
		return nil, err
	}
	perChunk := make([][]Share, len(secrets))
	for i, secret := range secrets {
		perChunk[i] = p.Share(secret)
	}
	// transpose: perChunk[chunk][party] -> perParty[party][chunk]
	perParty := make([][]Share, p.NParties)
	for party := 0; party < p.NParties; party++ {
		row := make([]Share, len(secrets))
		for chunk := range secrets {
			row[chunk] = perChunk[chunk][party]
		}
		perParty[party] = row
	}
	return perParty, nil
}

// ReconstructBytes inverts ShareBytes given the party-major share matrix;
// fails (returns an error) if any row can't be opened at threshold
// (spec.md 4.1).
func (p *Params) ReconstructBytes(perParty [][]Share) ([]byte, error) {
	if len(perParty) == 0 {
		return nil, fmt.Errorf("field: no shares to reconstruct")
	}
	nChunks := len(perParty[0])
	secrets := make([]*saferith.Nat, nChunks)
	for chunk := 0; chunk < nChunks; chunk++ {
		row := make([]Share, 0, len(perParty))
		for _, party := range perParty {
			if chunk < len(party) {
				row = append(row, party[chunk])
			}
		}
		value := p.Open(row)
		if value == nil {
			return nil, fmt.Errorf("field: insufficient shares to reconstruct chunk %d", chunk)
		}
		secrets[chunk] = value
	}
	return p.DecodeBytes(secrets)
}
