// Package address derives the deterministic account addresses used by the
// share engine. Every record lives at a program-derived address (an
// off-curve ed25519 point found from seeds plus a bump), so no private key
// exists for it and only the program can move funds held there.
//
//	creator: ["creator", owner]
//	event:   ["event", creator, le_u64(sequence)]
//	pool:    ["contract"]
package address

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DefaultProgramID is the program the addresses are derived under.
var DefaultProgramID = solana.MustPublicKeyFromBase58("7nkqBwkCschzVvRymkppmcfjVzkEn1VnseemVprVofjX")

var (
	seedCreator = []byte("creator")
	seedEvent   = []byte("event")
	seedPool    = []byte("contract")
)

// ErrAddressMismatch is returned when seeds and bump do not reproduce the
// claimed address.
var ErrAddressMismatch = errors.New("address: seeds do not derive the claimed address")

// Derived is a program-derived address together with its bump seed.
type Derived struct {
	Address solana.PublicKey
	Bump    uint8
}

// Deriver derives addresses under a fixed program id.
type Deriver struct {
	programID solana.PublicKey
}

// NewDeriver creates a deriver for programID.
func NewDeriver(programID solana.PublicKey) *Deriver {
	return &Deriver{programID: programID}
}

// ProgramID returns the program the deriver is bound to.
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

// Creator derives the creator record address for owner.
func (d *Deriver) Creator(owner solana.PublicKey) (Derived, error) {
	return d.find(seedCreator, owner.Bytes())
}

// Event derives the address of the creator's sequence-th event.
func (d *Deriver) Event(creator solana.PublicKey, sequence uint64) (Derived, error) {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)
	return d.find(seedEvent, creator.Bytes(), seq[:])
}

// Pool derives the shared pool account.
func (d *Deriver) Pool() (Derived, error) {
	return d.find(seedPool)
}

// VerifyPool checks that bump reproduces the pool address. This is the
// proof the pool signer presents before moving funds.
func (d *Deriver) VerifyPool(p Derived) error {
	addr, err := solana.CreateProgramAddress([][]byte{seedPool, {p.Bump}}, d.programID)
	if err != nil {
		return fmt.Errorf("verify pool: %w", err)
	}
	if !addr.Equals(p.Address) {
		return ErrAddressMismatch
	}
	return nil
}

func (d *Deriver) find(seeds ...[]byte) (Derived, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return Derived{}, fmt.Errorf("derive address: %w", err)
	}
	return Derived{Address: addr, Bump: bump}, nil
}
