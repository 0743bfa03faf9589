package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend interface {
	LoadRecord(ctx context.Context, sessionID string) ([]byte, error)
	SaveRecord(ctx context.Context, sessionID string, data []byte) error
	LoadHighScores(ctx context.Context, sessionID string) ([]byte, error)
	SaveHighScores(ctx context.Context, sessionID string, data []byte) error
	AppendRound(ctx context.Context, r Round) error
	ListRounds(ctx context.Context, sessionID string, limit int) ([]Round, error)
	ExportCSV(ctx context.Context, w io.Writer, sessionID string) error
	SaveAutoplayRun(ctx context.Context, r AutoplayRun) error
	ListAutoplayRuns(ctx context.Context, sessionID string, limit int) ([]AutoplayRun, error)
	Ping(ctx context.Context) error
	Close() error
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	ctx := context.Background()

	mem, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	file, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "casino.db"))
	require.NoError(t, err)

	all := map[string]backend{
		"memory":        NewMemory(),
		"sqlite-memory": mem,
		"sqlite-file":   file,
	}
	t.Cleanup(func() {
		for _, b := range all {
			b.Close()
		}
	})
	return all
}

func TestRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.LoadRecord(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = b.LoadHighScores(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.SaveRecord(ctx, "s1", []byte(`{"balance":10}`)))
			require.NoError(t, b.SaveRecord(ctx, "s1", []byte(`{"balance":20}`)))

			got, err := b.LoadRecord(ctx, "s1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"balance":20}`, string(got))

			// A record without high scores still reports them as missing.
			_, err = b.LoadHighScores(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.SaveHighScores(ctx, "s1", []byte(`[]`)))
			hs, err := b.LoadHighScores(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(hs))

			got, err = b.LoadRecord(ctx, "s1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"balance":20}`, string(got), "saving high scores must keep the record")

			_, err = b.LoadRecord(ctx, "other")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRounds(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, game := range []string{"slots", "blackjack", "roulette", "crash"} {
				require.NoError(t, b.AppendRound(ctx, Round{
					SessionID:    "s1",
					Game:         game,
					RoundID:      game + "-round",
					Bet:          10,
					Payout:       i * 10,
					Outcome:      "o",
					BalanceAfter: 1000 + i,
					CreatedAt:    base.Add(time.Duration(i) * time.Second),
				}))
			}
			// Duplicate settlement of the same round is ignored.
			require.NoError(t, b.AppendRound(ctx, Round{SessionID: "s1", Game: "slots", RoundID: "slots-round", CreatedAt: base}))
			require.NoError(t, b.AppendRound(ctx, Round{SessionID: "s2", Game: "slots", RoundID: "x"}))

			rounds, err := b.ListRounds(ctx, "s1", 0)
			require.NoError(t, err)
			require.Len(t, rounds, 4)
			assert.Equal(t, "crash", rounds[0].Game, "newest first")
			assert.Equal(t, "slots", rounds[3].Game)
			assert.Equal(t, 1003, rounds[0].BalanceAfter)
			assert.NotEqual(t, rounds[0].ID, rounds[1].ID)
			assert.True(t, rounds[0].CreatedAt.Equal(base.Add(3*time.Second)))

			limited, err := b.ListRounds(ctx, "s1", 2)
			require.NoError(t, err)
			require.Len(t, limited, 2)
			assert.Equal(t, "roulette", limited[1].Game)

			var buf bytes.Buffer
			require.NoError(t, b.ExportCSV(ctx, &buf, "s1"))
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 5)
			assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
			assert.Contains(t, lines[1], ",slots,slots-round,10,0,o,1000,")
		})
	}
}

func TestExportCSVQuotesFields(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.AppendRound(ctx, Round{
				SessionID:    "s1",
				Game:         "slots",
				RoundID:      "r1",
				Bet:          10,
				Payout:       50,
				Outcome:      `triple-bar,double "gold"`,
				BalanceAfter: 1040,
				CreatedAt:    created,
			}))

			var buf bytes.Buffer
			require.NoError(t, b.ExportCSV(ctx, &buf, "s1"))

			records, err := csv.NewReader(&buf).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, csvHeader, records[0])
			row := records[1]
			require.Len(t, row, len(csvHeader))
			assert.Equal(t, "slots", row[1])
			assert.Equal(t, `triple-bar,double "gold"`, row[5])
			assert.Equal(t, "1040", row[6])
			assert.Equal(t, created.Format(time.RFC3339Nano), row[7])
		})
	}
}

func TestAutoplayRuns(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Ping(ctx))

			runs, err := b.ListAutoplayRuns(ctx, "s1", 0)
			require.NoError(t, err)
			assert.Empty(t, runs)

			require.NoError(t, b.SaveAutoplayRun(ctx, AutoplayRun{
				SessionID:    "s1",
				Script:       "dobet = function() {}",
				State:        "stopped",
				StopReason:   "round limit reached",
				Rounds:       3,
				Wins:         2,
				Losses:       1,
				Wagered:      30,
				Profit:       4,
				StartBalance: 1000,
				FinalBalance: 1004,
				StartedAt:    base,
				EndedAt:      base.Add(time.Second),
			}))
			require.NoError(t, b.SaveAutoplayRun(ctx, AutoplayRun{
				SessionID: "s1",
				State:     "error",
				Error:     "boom",
				StartedAt: base.Add(time.Minute),
			}))
			require.NoError(t, b.SaveAutoplayRun(ctx, AutoplayRun{SessionID: "s2", State: "stopped"}))

			runs, err = b.ListAutoplayRuns(ctx, "s1", 0)
			require.NoError(t, err)
			require.Len(t, runs, 2)

			assert.Equal(t, "error", runs[0].State, "newest first")
			assert.Equal(t, "boom", runs[0].Error)
			assert.Empty(t, runs[0].StopReason)
			assert.False(t, runs[0].EndedAt.IsZero())

			first := runs[1]
			assert.NotEqual(t, runs[0].ID, first.ID)
			assert.Equal(t, "round limit reached", first.StopReason)
			assert.Equal(t, 3, first.Rounds)
			assert.Equal(t, 1004, first.FinalBalance)
			assert.True(t, first.StartedAt.Equal(base))
			assert.True(t, first.EndedAt.Equal(base.Add(time.Second)))

			limited, err := b.ListAutoplayRuns(ctx, "s1", 1)
			require.NoError(t, err)
			require.Len(t, limited, 1)
			assert.Equal(t, runs[0].ID, limited[0].ID)
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, clampLimit(0))
	assert.Equal(t, defaultListLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxListLimit, clampLimit(10_000))
}
