package booking

import (
	"encoding/base32"

	"github.com/google/uuid"
)

const (
	DefaultReferencePrefix = "CT"
	referenceLength        = 10
)

// ReferenceGenerator produces booking references shown to customers
type ReferenceGenerator interface {
	Generate() string
}

// ReferenceFunc adapts a plain function to ReferenceGenerator
type ReferenceFunc func() string

func (f ReferenceFunc) Generate() string {
	return f()
}

// UUIDReferenceGenerator derives references from random UUIDs,
// giving about 48 bits of entropy per reference.
type UUIDReferenceGenerator struct {
	prefix string
}

func NewReferenceGenerator(prefix string) *UUIDReferenceGenerator {
	return &UUIDReferenceGenerator{prefix: prefix}
}

var referenceEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func (g *UUIDReferenceGenerator) Generate() string {
	id := uuid.New()
	return g.prefix + referenceEncoding.EncodeToString(id[:])[:referenceLength]
}
