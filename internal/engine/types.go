package engine

// Seeds is a provably fair seed pair.
type Seeds struct {
	Server string // ASCII; do NOT hex-decode
	Client string
}

// Commitment is what a player may see before the server seed is revealed.
type Commitment struct {
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
}

// Sequence is a Source that replays fixed values, wrapping around at the
// end. Useful for deterministic tests and replays.
type Sequence struct {
	Values []uint32
	pos    int
}

// Uint32 implements Source.
func (s *Sequence) Uint32() uint32 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	return v
}
