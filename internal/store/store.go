package store

import (
	"fmt"
	"sort"
)

// Store is the append-only clause database: input clauses numbered by their
// position in the source CNF, proof clauses appended monotonically as the
// proof is emitted, and sparsely-numbered auxiliary clauses reachable both
// by id and by a hash-keyed lookup so lemma-argument clauses can be shared.
type Store struct {
	Input []*Clause // index 0 unused; Input[i] is clause i, i in 1..NInput
	Proof []*Clause // Proof[i] is clause NInput+i+1

	aux      map[CID]*Clause
	auxByKey map[uint64][]CID
	nextAux  CID

	// deleted marks clauses removed by the deletion prover; ids are never
	// reused, but Get on a deleted id fails.
	deleted map[CID]bool

	// unit registers, for each asserted-true literal, the clause id that
	// justifies it (CIDNull for an externally-assumed/assigned literal).
	unit map[int32]CID

	// ClauseLimit is a configured fatal ceiling on input and proof clause
	// ids (auxiliary ids are not checked), 0 meaning unlimited.
	ClauseLimit CID
}

// New creates an empty clause store.
func New() *Store {
	return &Store{
		Input:    []*Clause{nil},
		Proof:    []*Clause{},
		aux:      map[CID]*Clause{},
		auxByKey: map[uint64][]CID{},
		deleted:  map[CID]bool{},
		unit:     map[int32]CID{},
	}
}

// NInput is the number of input clauses.
func (s *Store) NInput() CID { return CID(len(s.Input) - 1) }

// NProof is the number of proof clauses emitted so far.
func (s *Store) NProof() CID { return CID(len(s.Proof)) }

// nextProofCID reserves the id that AddProof would assign, without adding.
func (s *Store) nextProofCID() CID {
	return s.NInput() + s.NProof() + 1
}

func (s *Store) checkLimit(cid CID) {
	if s.ClauseLimit != 0 && cid > s.ClauseLimit {
		panic(fmt.Sprintf("clause store: id %d exceeds configured clause_limit %d", cid, s.ClauseLimit))
	}
}

// AddInput appends an input clause (already canonized by the caller) and
// returns its id. Input clauses must be added before any proof clause.
func (s *Store) AddInput(c *Clause) CID {
	if len(s.Proof) != 0 {
		panic("store: AddInput called after proof clauses were emitted")
	}
	s.Input = append(s.Input, c)
	cid := CID(len(s.Input) - 1)
	s.checkLimit(cid)
	s.registerUnit(cid, c)
	return cid
}

// AddProof appends a proof clause and returns its id.
func (s *Store) AddProof(c *Clause) CID {
	cid := s.nextProofCID()
	s.checkLimit(cid)
	s.Proof = append(s.Proof, c)
	s.registerUnit(cid, c)
	return cid
}

func (s *Store) registerUnit(cid CID, c *Clause) {
	if len(c.Lits) == 1 && c.ActivatingLit == 0 {
		s.unit[int32(c.Lits[0])] = cid
	}
}

// UnitOf returns the justifying clause id for unit literal m, and whether m
// is currently registered as a unit.
func (s *Store) UnitOf(m int32) (CID, bool) {
	cid, ok := s.unit[m]
	return cid, ok
}

// SetUnit directly registers m as a unit literal justified by cid (used by
// the reasoner's context frames to install/undo assumptions).
func (s *Store) SetUnit(m int32, cid CID) {
	s.unit[m] = cid
}

// ClearUnit removes m's unit registration (used on context pop).
func (s *Store) ClearUnit(m int32) {
	delete(s.unit, m)
}

// auxBase is a fixed id floor for auxiliary clauses, set far above any
// realistic NInput+NProof so that aux ids never fall into the
// ever-growing proof range: minting them as NInput()+NProof()+1+nextAux at
// call time (the previous scheme) let a later AddProof grow NProof() past
// an id already handed out as an aux id, colliding with it.
const auxBase CID = 1 << 31

// AddAux adds or reuses an auxiliary clause, keyed by its content hash, so
// that identical lemma-argument clauses are shared. AddAux returns the
// clause's id and whether it was freshly created.
func (s *Store) AddAux(c *Clause, hash uint64) (CID, bool) {
	for _, cid := range s.auxByKey[hash] {
		if Equal(s.aux[cid], c) && s.aux[cid].ActivatingLit == c.ActivatingLit {
			return cid, false
		}
	}
	s.nextAux++
	cid := auxBase + s.nextAux
	// ClauseLimit bounds the dense input+proof range only, per spec.md §3;
	// aux ids live in their own sparse range above it, so checkLimit does
	// not apply here.
	s.aux[cid] = c
	s.auxByKey[hash] = append(s.auxByKey[hash], cid)
	return cid, true
}

// Get returns the clause for id, or nil if it has been deleted or never
// existed.
func (s *Store) Get(cid CID) *Clause {
	if s.deleted[cid] {
		return nil
	}
	if n := s.NInput(); cid >= 1 && cid <= n {
		return s.Input[cid]
	}
	if pcid := cid - s.NInput(); pcid >= 1 && int(pcid) <= len(s.Proof) {
		return s.Proof[pcid-1]
	}
	if c, ok := s.aux[cid]; ok {
		return c
	}
	return nil
}

// Delete marks cid as deleted. Deleting a clause that never existed is a
// fatal invariant violation, per spec.md §3.
func (s *Store) Delete(cid CID) {
	if s.Get(cid) == nil {
		panic(fmt.Sprintf("store: deleting clause %d that never existed", cid))
	}
	s.deleted[cid] = true
}

// IsDeleted reports whether cid has been deleted.
func (s *Store) IsDeleted(cid CID) bool {
	return s.deleted[cid]
}

// AuxIDs returns every auxiliary clause id minted so far, in ascending
// order, so a caller (the proof emitter) can walk them alongside the input
// and proof ranges.
func (s *Store) AuxIDs() []CID {
	ids := make([]CID, 0, len(s.aux))
	for cid := range s.aux {
		ids = append(ids, cid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
