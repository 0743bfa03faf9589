package engine

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
)

// Source is a stream of uniformly distributed 32-bit values. All outcome
// generation in the games package draws from a Source.
type Source interface {
	Uint32() uint32
}

// Intn returns a uniform integer in [0, n). Values from the biased tail of
// the 32-bit range are rejected, so no residue is favoured. Panics if n <= 0.
func Intn(src Source, n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("engine: Intn called with n=%d", n))
	}
	bound := uint32(n)
	// threshold = 2^32 mod n
	threshold := -bound % bound
	for {
		v := src.Uint32()
		if v >= threshold {
			return int(v % bound)
		}
	}
}

// OpenFloat returns a float strictly inside (0, 1).
func OpenFloat(src Source) float64 {
	return (float64(src.Uint32()) + 0.5) / (1 << 32)
}

// CryptoSource reads from crypto/rand. It is safe for concurrent use.
type CryptoSource struct {
	mu  sync.Mutex
	buf [64]byte
	pos int
}

// NewCryptoSource creates a Source backed by the operating system CSPRNG.
func NewCryptoSource() *CryptoSource {
	return &CryptoSource{pos: 64}
}

// Uint32 implements Source.
func (s *CryptoSource) Uint32() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos+4 > len(s.buf) {
		if _, err := rand.Read(s.buf[:]); err != nil {
			panic(fmt.Sprintf("engine: crypto/rand failed: %v", err))
		}
		s.pos = 0
	}
	v := binary.BigEndian.Uint32(s.buf[s.pos:])
	s.pos += 4
	return v
}

// FairSource is a provably fair Source: every value is derived from
// HMAC-SHA256(serverSeed, clientSeed:nonce:round). Each call to NextNonce
// starts a fresh byte stream so one game round maps to one nonce.
type FairSource struct {
	mu    sync.Mutex
	seeds Seeds
	nonce uint64
	gen   *ByteGenerator
}

// NewFairSource creates a FairSource starting at the given nonce.
func NewFairSource(seeds Seeds, nonce uint64) *FairSource {
	return &FairSource{
		seeds: seeds,
		nonce: nonce,
		gen:   NewByteGenerator(seeds.Server, seeds.Client, nonce, 0),
	}
}

// Uint32 implements Source.
func (s *FairSource) Uint32() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.Uint32()
}

// NextNonce advances to the next nonce and resets the byte cursor.
func (s *FairSource) NextNonce() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce++
	s.gen = NewByteGenerator(s.seeds.Server, s.seeds.Client, s.nonce, 0)
	return s.nonce
}

// Seek moves to nonce, typically one restored from a saved session.
func (s *FairSource) Seek(nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce = nonce
	s.gen = NewByteGenerator(s.seeds.Server, s.seeds.Client, nonce, 0)
}

// Nonce returns the nonce currently being consumed.
func (s *FairSource) Nonce() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonce
}

// Commitment returns the public half of the seed pair.
func (s *FairSource) Commitment() Commitment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Commitment{
		ServerSeedHash: HashServerSeed(s.seeds.Server),
		ClientSeed:     s.seeds.Client,
		Nonce:          s.nonce,
	}
}

// Rounder is implemented by sources that partition their stream per round.
type Rounder interface {
	NextNonce() uint64
}

// BeginRound advances src to a fresh round when it supports it.
func BeginRound(src Source) {
	if r, ok := src.(Rounder); ok {
		r.NextNonce()
	}
}
