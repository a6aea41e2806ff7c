package utils

import "github.com/google/uuid"

// UUIDGenerator produces time-ordered UUIDv7 strings. Queue ids sort by
// creation time because of it.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
