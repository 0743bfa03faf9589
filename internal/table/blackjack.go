package table

import (
	"sync"

	"github.com/MJE43/casino-engine/internal/engine"
	"github.com/MJE43/casino-engine/internal/games"
	"github.com/MJE43/casino-engine/internal/ledger"
)

// BlackjackState is the lifecycle state of a blackjack round.
type BlackjackState string

const (
	BlackjackWaiting    BlackjackState = "waiting"
	BlackjackPlaying    BlackjackState = "playing"
	BlackjackPlayerWin  BlackjackState = "player_win"
	BlackjackDealerWin  BlackjackState = "dealer_win"
	BlackjackPush       BlackjackState = "push"
	BlackjackPlayerBust BlackjackState = "player_bust"
	BlackjackDealerBust BlackjackState = "dealer_bust"
	BlackjackNatural    BlackjackState = "blackjack"
)

// Terminal reports whether the round is over.
func (s BlackjackState) Terminal() bool {
	return s != BlackjackWaiting && s != BlackjackPlaying
}

const dealerStandsOn = 17

// BlackjackView is the renderable state of the table. While the hole card
// is hidden only the dealer's up card is listed.
type BlackjackView struct {
	RoundID            string         `json:"round_id,omitempty"`
	State              BlackjackState `json:"state"`
	Bet                int            `json:"bet"`
	RoundBet           int            `json:"round_bet"`
	Player             []games.Card   `json:"player"`
	Dealer             []games.Card   `json:"dealer"`
	PlayerScore        int            `json:"player_score"`
	PlayerSoft         bool           `json:"player_soft"`
	DealerScore        int            `json:"dealer_score"`
	DealerCardRevealed bool           `json:"dealer_card_revealed"`
	Payout             int            `json:"payout"`
	CanDeal            bool           `json:"can_deal"`
	CanHit             bool           `json:"can_hit"`
	CanStand           bool           `json:"can_stand"`
	CanDouble          bool           `json:"can_double"`
}

// Blackjack is a single-seat blackjack table dealing from a fresh deck
// every round.
type Blackjack struct {
	notifier

	mu       sync.Mutex
	acct     ledger.Account
	src      engine.Source
	newDeck  func() games.Deck
	bet      int
	roundBet int
	roundID  string
	state    BlackjackState
	deck     games.Deck
	player   []games.Card
	dealer   []games.Card
	revealed bool
	payout   int
}

// NewBlackjack creates a table that stakes bet credits per deal.
func NewBlackjack(acct ledger.Account, src engine.Source, bet int) *Blackjack {
	b := &Blackjack{
		acct:  acct,
		src:   src,
		bet:   bet,
		state: BlackjackWaiting,
	}
	b.newDeck = func() games.Deck {
		engine.BeginRound(b.src)
		return games.ShuffledDeck(b.src)
	}
	return b
}

// View returns the current state.
func (b *Blackjack) View() BlackjackView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

// CanDeal reports whether Deal would start a round.
func (b *Blackjack) CanDeal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canDealLocked()
}

// CanHit reports whether Hit would draw a card.
func (b *Blackjack) CanHit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canHitLocked()
}

// CanStand reports whether Stand would resolve the round.
func (b *Blackjack) CanStand() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == BlackjackPlaying
}

// CanDouble reports whether Double would be accepted.
func (b *Blackjack) CanDouble() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canDoubleLocked()
}

// SetBet changes the stake used by the next deal.
func (b *Blackjack) SetBet(amount int) (BlackjackView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BlackjackPlaying || amount < 1 {
		return b.viewLocked(), false
	}
	b.bet = amount
	return b.viewLocked(), true
}

// Deal debits the bet and deals a new round. A natural 21 settles at once.
func (b *Blackjack) Deal() (BlackjackView, bool) {
	b.mu.Lock()
	if !b.canDealLocked() || !b.acct.TryDebit(b.bet) {
		defer b.mu.Unlock()
		return b.viewLocked(), false
	}

	b.roundID = newRoundID()
	b.roundBet = b.bet
	b.deck = b.newDeck()
	b.player = b.player[:0:0]
	b.dealer = b.dealer[:0:0]
	b.revealed = false
	b.payout = 0
	for i := 0; i < 2; i++ {
		b.player = append(b.player, b.draw())
		b.dealer = append(b.dealer, b.draw())
	}
	b.state = BlackjackPlaying

	var s *Settlement
	if games.HandValue(b.player) == 21 {
		s = b.finishLocked(BlackjackNatural, b.roundBet*5/2)
	}
	v := b.viewLocked()
	b.mu.Unlock()
	b.notify(s)
	return v, true
}

// Hit draws one card for the player. Going over 21 loses the round.
func (b *Blackjack) Hit() (BlackjackView, bool) {
	b.mu.Lock()
	if !b.canHitLocked() {
		defer b.mu.Unlock()
		return b.viewLocked(), false
	}
	b.player = append(b.player, b.draw())

	var s *Settlement
	if games.HandValue(b.player) > 21 {
		s = b.finishLocked(BlackjackPlayerBust, 0)
	}
	v := b.viewLocked()
	b.mu.Unlock()
	b.notify(s)
	return v, true
}

// Stand plays out the dealer hand and settles.
func (b *Blackjack) Stand() (BlackjackView, bool) {
	b.mu.Lock()
	if b.state != BlackjackPlaying {
		defer b.mu.Unlock()
		return b.viewLocked(), false
	}
	s := b.resolveLocked()
	v := b.viewLocked()
	b.mu.Unlock()
	b.notify(s)
	return v, true
}

// Double debits a second bet, draws exactly one card and stands.
func (b *Blackjack) Double() (BlackjackView, bool) {
	b.mu.Lock()
	if !b.canDoubleLocked() || !b.acct.TryDebit(b.roundBet) {
		defer b.mu.Unlock()
		return b.viewLocked(), false
	}
	b.roundBet *= 2
	b.player = append(b.player, b.draw())

	var s *Settlement
	if games.HandValue(b.player) > 21 {
		s = b.finishLocked(BlackjackPlayerBust, 0)
	} else {
		s = b.resolveLocked()
	}
	v := b.viewLocked()
	b.mu.Unlock()
	b.notify(s)
	return v, true
}

func (b *Blackjack) canDealLocked() bool {
	return b.state != BlackjackPlaying && b.bet > 0 && b.acct.Balance() >= b.bet
}

func (b *Blackjack) canHitLocked() bool {
	return b.state == BlackjackPlaying && games.HandValue(b.player) < 21
}

func (b *Blackjack) canDoubleLocked() bool {
	return b.state == BlackjackPlaying && len(b.player) == 2 && b.acct.Balance() >= b.roundBet
}

// resolveLocked runs the dealer to hard 17 and compares hands.
func (b *Blackjack) resolveLocked() *Settlement {
	for games.HandValue(b.dealer) < dealerStandsOn {
		b.dealer = append(b.dealer, b.draw())
	}
	player, dealer := games.HandValue(b.player), games.HandValue(b.dealer)
	switch {
	case dealer > 21:
		return b.finishLocked(BlackjackDealerBust, b.roundBet*2)
	case player > dealer:
		return b.finishLocked(BlackjackPlayerWin, b.roundBet*2)
	case player < dealer:
		return b.finishLocked(BlackjackDealerWin, 0)
	default:
		return b.finishLocked(BlackjackPush, b.roundBet)
	}
}

// finishLocked moves to a terminal state and pays out. A push refunds the
// stake without counting as a win or a loss.
func (b *Blackjack) finishLocked(state BlackjackState, payout int) *Settlement {
	b.state = state
	b.revealed = true
	b.payout = payout
	if payout > 0 {
		b.acct.Credit(payout)
	}
	switch state {
	case BlackjackPush:
	case BlackjackNatural, BlackjackPlayerWin, BlackjackDealerBust:
		b.acct.RecordWin(payout)
	default:
		b.acct.RecordLoss()
	}
	return &Settlement{
		Game:    GameBlackjack,
		RoundID: b.roundID,
		Bet:     b.roundBet,
		Payout:  payout,
		Outcome: string(state),
	}
}

func (b *Blackjack) draw() games.Card {
	c, ok := b.deck.Draw()
	if !ok {
		b.deck = b.newDeck()
		c, _ = b.deck.Draw()
	}
	return c
}

func (b *Blackjack) viewLocked() BlackjackView {
	v := BlackjackView{
		RoundID:            b.roundID,
		State:              b.state,
		Bet:                b.bet,
		RoundBet:           b.roundBet,
		Player:             append([]games.Card(nil), b.player...),
		PlayerScore:        games.HandValue(b.player),
		PlayerSoft:         games.IsSoft(b.player),
		DealerCardRevealed: b.revealed,
		Payout:             b.payout,
		CanDeal:            b.canDealLocked(),
		CanHit:             b.canHitLocked(),
		CanStand:           b.state == BlackjackPlaying,
		CanDouble:          b.canDoubleLocked(),
	}
	if b.revealed || len(b.dealer) == 0 {
		v.Dealer = append([]games.Card(nil), b.dealer...)
	} else {
		v.Dealer = []games.Card{b.dealer[0]}
	}
	v.DealerScore = games.HandValue(v.Dealer)
	return v
}
