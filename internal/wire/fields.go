package wire

// Field indices are the canonical integer keys of the wire encoding
// (spec.md 3 & 6: "field identity is by integer index, not name"). This
// table is the protocol's registered index table; adding a field means
// appending a new constant, never renumbering an existing one.
const (
	FieldVersion FieldIndex = iota // 0: protocol version
	FieldMsgType                   // 1: discriminant, see TypeEnum

	FieldNonce
	FieldHalfKey
	FieldSubmessages
	FieldPartyID
	FieldPseudonym
	FieldPseudonymShare
	FieldCiphertext
	FieldExpiration
	FieldDebug
	FieldSignature
	FieldName
	FieldRole
	FieldEpoch
	FieldLinkAddresses
	FieldReturnLinks
	FieldCheckedFragments
	FieldFragmentID
	FieldOpID
	FieldAction
	FieldTargetFragments
	FieldSecretSharing
	FieldWorkerKeys
	FieldBroadcastAddresses
	FieldProof
	FieldSender
	FieldOriginator
	FieldMicroTimestamp
	FieldTTL
	FieldHopCount
	FieldNeighbors
	FieldEmbeddedARK
	FieldCost
	FieldCommittee
	FieldDropboxIndex
	FieldHalfKeyAlgorithm
	FieldRecipientName
	FieldSenderName
	FieldMessageText
	FieldEncDropboxResponseID
	FieldData
	FieldPublicKey
)

// FieldIndex is the integer key type used in the canonical encoding.
type FieldIndex int
