package types

import "github.com/google/uuid"

// Participants maps a vendor store id to the quantity it committed. A vendor
// holds at most one entry; repeated joins accumulate quantity on that entry.
// Stored as a jsonb document on the group order row.
type Participants map[uuid.UUID]int

// Total returns the sum of all committed quantities.
func (p Participants) Total() int {
	total := 0
	for _, qty := range p {
		total += qty
	}
	return total
}

// Quantity returns the committed quantity for the vendor, zero if absent.
func (p Participants) Quantity(vendorID uuid.UUID) int {
	return p[vendorID]
}

// Has reports whether the vendor holds a participation entry.
func (p Participants) Has(vendorID uuid.UUID) bool {
	_, ok := p[vendorID]
	return ok
}

// Clone returns a copy safe to mutate independently of the receiver.
func (p Participants) Clone() Participants {
	if p == nil {
		return Participants{}
	}
	out := make(Participants, len(p))
	for vendorID, qty := range p {
		out[vendorID] = qty
	}
	return out
}
