package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ByteGenerator generates bytes using HMAC-SHA256 keyed by the server seed.
// Each 32-byte round is HMAC(server, "client:nonce:round"); the stream rolls
// into the next round when the current one is exhausted.
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator creates a new byte generator positioned at cursor.
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed:   serverSeed,
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}
	bg.generateRound()
	return bg
}

// Next returns the next byte from the generator
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// Uint32 consumes 4 bytes, most significant first.
func (bg *ByteGenerator) Uint32() uint32 {
	return uint32(bg.Next())<<24 | uint32(bg.Next())<<16 | uint32(bg.Next())<<8 | uint32(bg.Next())
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	message := fmt.Sprintf("%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	h.Write([]byte(message))
	copy(bg.buffer[:], h.Sum(nil))
}

// HashServerSeed returns the hex SHA-256 commitment for a server seed.
// An empty seed hashes to the empty string.
func HashServerSeed(serverSeed string) string {
	if serverSeed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
