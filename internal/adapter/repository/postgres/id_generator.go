package postgres

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates short, sortable ULID-based ids (spec §4.1
// short_id), grounded on the teacher's id_generator.go.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

// UUIDGroupIDGenerator mints stable group ids when a watcher has no
// natural deterministic identifier to derive one from (spec §4.1).
type UUIDGroupIDGenerator struct{}

// NewUUIDGroupIDGenerator creates a new UUIDGroupIDGenerator.
func NewUUIDGroupIDGenerator() *UUIDGroupIDGenerator {
	return &UUIDGroupIDGenerator{}
}

// NewGroupID returns a freshly minted UUIDv4 group id.
func (g *UUIDGroupIDGenerator) NewGroupID() string {
	return uuid.NewString()
}
