package scripting

// Statistics tracks one autoplay run. Amounts are whole credits.
type Statistics struct {
	Bets     int `json:"bets"`
	Wins     int `json:"wins"`
	Losses   int `json:"losses"`
	Wagered  int `json:"wagered"`
	Profit   int `json:"profit"`
	Balance  int `json:"balance"`
	StartBal int `json:"startBal"`

	WinStreak  int `json:"winStreak"`
	LoseStreak int `json:"loseStreak"`
	// Positive = win streak, negative = lose streak.
	CurrentStreak int `json:"currentStreak"`

	HighestStreak  int     `json:"highestStreak"`
	LowestStreak   int     `json:"lowestStreak"`
	HighestBet     int     `json:"highestBet"`
	HighestProfit  int     `json:"highestProfit"`
	LowestProfit   int     `json:"lowestProfit"`
	BestMultiplier float64 `json:"bestMultiplier"`

	CurrentProfit int `json:"currentProfit"`
	PreviousBet   int `json:"previousBet"`
}

// ChartPoint is a single point of the profit chart.
type ChartPoint struct {
	BetNumber int  `json:"x"`
	Profit    int  `json:"y"`
	Win       bool `json:"win"`
}

// ChartBuffer holds a decimated window of chart points.
type ChartBuffer struct {
	Points []ChartPoint `json:"points"`
	Max    int          `json:"-"`
}

// NewChartBuffer creates a chart buffer with the given capacity.
func NewChartBuffer(max int) *ChartBuffer {
	if max <= 0 {
		max = 50
	}
	return &ChartBuffer{
		Points: make([]ChartPoint, 0, max),
		Max:    max,
	}
}

// Push adds a point. Once the buffer reaches twice Max it keeps every
// other point, always including the first and last.
func (cb *ChartBuffer) Push(p ChartPoint) {
	cb.Points = append(cb.Points, p)

	if len(cb.Points) >= cb.Max*2 {
		decimated := make([]ChartPoint, 0, cb.Max+1)
		decimated = append(decimated, cb.Points[0])
		for i := 2; i < len(cb.Points)-1; i += 2 {
			decimated = append(decimated, cb.Points[i])
		}
		decimated = append(decimated, cb.Points[len(cb.Points)-1])
		cb.Points = decimated
	}
}

// Reset clears all points.
func (cb *ChartBuffer) Reset() {
	cb.Points = cb.Points[:0]
}

// NewStatistics creates Statistics starting from balance.
func NewStatistics(startBalance int) *Statistics {
	return &Statistics{
		Balance:  startBalance,
		StartBal: startBalance,
	}
}

// Reset clears all stats and restarts from the current balance.
func (s *Statistics) Reset() {
	bal := s.Balance
	*s = Statistics{
		Balance:  bal,
		StartBal: bal,
	}
}

// BetResult is the outcome of one crash round.
type BetResult struct {
	Amount     int     `json:"amount"`
	Payout     int     `json:"payout"`
	Multiplier float64 `json:"multiplier"`
	Win        bool    `json:"win"`
}

// RecordBet folds a finished round into the statistics.
func (s *Statistics) RecordBet(result BetResult) {
	s.Bets++

	profit := result.Payout - result.Amount
	s.CurrentProfit = profit
	s.Profit += profit
	s.Wagered += result.Amount
	s.PreviousBet = result.Amount
	s.Balance += profit

	if result.Win {
		s.Wins++
		s.WinStreak++
		s.LoseStreak = 0
		s.CurrentStreak = s.WinStreak
		if result.Multiplier > s.BestMultiplier {
			s.BestMultiplier = result.Multiplier
		}
	} else {
		s.Losses++
		s.LoseStreak++
		s.WinStreak = 0
		s.CurrentStreak = -s.LoseStreak
	}

	if result.Amount > s.HighestBet {
		s.HighestBet = result.Amount
	}
	if s.Profit > s.HighestProfit {
		s.HighestProfit = s.Profit
	}
	if s.Profit < s.LowestProfit {
		s.LowestProfit = s.Profit
	}
	if s.CurrentStreak > s.HighestStreak {
		s.HighestStreak = s.CurrentStreak
	}
	if s.CurrentStreak < s.LowestStreak {
		s.LowestStreak = s.CurrentStreak
	}
}

// ProfitPercent returns profit as a percentage of the starting balance.
func (s *Statistics) ProfitPercent() float64 {
	if s.StartBal == 0 {
		return 0
	}
	return float64(s.Profit) / float64(s.StartBal) * 100
}
