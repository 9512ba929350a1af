package starforce

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// RandomSource abstract
type RandomSource interface {
	Float64() float64 // [0, 1)
}

// StreamRNG is a replicable PCG source identified by (seed, stream).
// Distinct streams under one seed are statistically independent.
type StreamRNG struct {
	pcg *rand.PCG
	r   *rand.Rand
}

// NewStreamRNG returns the source for the given seed and stream.
func NewStreamRNG(seed, stream uint64) *StreamRNG {
	pcg := rand.NewPCG(seed, stream)
	return &StreamRNG{pcg: pcg, r: rand.New(pcg)}
}

// NewSeededRNG returns stream 0 of seed (e.g. Monte Carlo replays).
func NewSeededRNG(seed uint64) RandomSource {
	return NewStreamRNG(seed, 0)
}

// Reseed moves the source to another (seed, stream) pair without allocating.
func (s *StreamRNG) Reseed(seed, stream uint64) {
	s.pcg.Seed(seed, stream)
}

func (s *StreamRNG) Float64() float64 { return s.r.Float64() }

// NewSeed reads a root seed from crypto/rand.
func NewSeed() (uint64, error) {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
