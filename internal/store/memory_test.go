package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kkutu/internal/dict"
	"kkutu/internal/game"
)

var kst = time.FixedZone("KST", 9*60*60)

func seedUsers(t *testing.T, m *Memory, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, m.CreateUser(context.Background(), n, "hash"))
	}
}

func TestRoundReturnsCopy(t *testing.T) {
	m := NewMemory(game.NewRound('가', 10))
	st, err := m.Round(context.Background())
	require.NoError(t, err)

	st.History = append(st.History, "가방")
	st.LastWord = "가방"

	fresh, err := m.Round(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{game.SentinelWord}, fresh.History)
	assert.Equal(t, game.SentinelWord, fresh.LastWord)
}

func TestReplaceRoundConflictOnStaleEpoch(t *testing.T) {
	m := NewMemory(game.NewRound('가', 10))

	err := m.ReplaceRound(context.Background(), 9, game.NewRound('나', 11))
	assert.ErrorIs(t, err, game.ErrConflict)

	require.NoError(t, m.ReplaceRound(context.Background(), 10, game.NewRound('나', 11)))
	st, _ := m.Round(context.Background())
	assert.Equal(t, 11, st.Epoch)
	assert.Equal(t, '나', st.StartChar)
}

func TestAppendWord(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 10))
	seedUsers(t, m, "alice")

	require.NoError(t, m.AppendWord(ctx, 10, "사과", "alice", 20))

	st, _ := m.Round(ctx)
	assert.Equal(t, []string{game.SentinelWord, "사과"}, st.History)
	assert.Equal(t, "사과", st.LastWord)
	pts, err := m.UserPoints(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 20, pts)
}

func TestAppendWordRejectsStaleEpoch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 10))
	seedUsers(t, m, "alice")

	err := m.AppendWord(ctx, 9, "사과", "alice", 20)
	assert.ErrorIs(t, err, game.ErrConflict)

	// Nothing committed.
	st, _ := m.Round(ctx)
	assert.Len(t, st.History, 1)
	pts, _ := m.UserPoints(ctx, "alice")
	assert.Zero(t, pts)
}

func TestAppendWordRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 10))
	seedUsers(t, m, "alice", "bob")

	require.NoError(t, m.AppendWord(ctx, 10, "사과", "alice", 20))
	err := m.AppendWord(ctx, 10, "사과", "bob", 20)
	assert.ErrorIs(t, err, game.ErrWordUsed)

	pts, _ := m.UserPoints(ctx, "bob")
	assert.Zero(t, pts)
}

func TestAppendWordUnknownUserAborts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 10))

	err := m.AppendWord(ctx, 10, "사과", "ghost", 20)
	assert.ErrorIs(t, err, game.ErrNoSuchUser)

	// The history append must not survive the failed credit.
	st, _ := m.Round(ctx)
	assert.Len(t, st.History, 1)
	assert.Equal(t, game.SentinelWord, st.LastWord)
}

func TestTopRankings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 10))
	seedUsers(t, m, "alice", "bob", "carol", "dave")
	m.users["alice"].Points = 30
	m.users["bob"].Points = 50
	m.users["carol"].Points = 30
	m.users["dave"].Points = 10

	rows, err := m.TopRankings(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []game.RankRow{
		{Username: "bob", Points: 50},
		{Username: "alice", Points: 30},
		{Username: "carol", Points: 30},
	}, rows)
}

func TestCreateUserDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 10))
	require.NoError(t, m.CreateUser(ctx, "alice", "h1"))
	assert.ErrorIs(t, m.CreateUser(ctx, "alice", "h2"), game.ErrUserExists)
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 10))
	seedUsers(t, m, "alice")

	u, err := m.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "hash", u.PasswordHash)

	_, err = m.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, game.ErrNoSuchUser)
}

// engineAt wires a real engine over m with the wall clock pinned to hour.
func engineAt(m *Memory, hour int, words ...string) *game.Engine {
	e := game.NewEngine(m, dict.New(words...), kst)
	e.Now = func() time.Time {
		return time.Date(2026, 8, 29, hour, 15, 0, 0, kst)
	}
	return e
}

func TestConcurrentIdenticalSubmissions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 14))
	seedUsers(t, m, "alice", "bob")
	d := dict.New("사과")

	// Both submitters validate against the same snapshot, then race the
	// atomic append. The commit-time history re-check must pick exactly
	// one winner; the loser surfaces ErrWordUsed, which the engine maps
	// to an already_used rejection.
	snapshot, err := m.Round(ctx)
	require.NoError(t, err)
	require.Nil(t, game.Adjudicate("사과", snapshot, d))
	points := game.Score("사과")

	users := []string{"alice", "bob"}
	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.AppendWord(ctx, snapshot.Epoch, "사과", users[i], points)
		}(i)
	}
	wg.Wait()

	var winners, losers int
	for i := range users {
		pts, perr := m.UserPoints(ctx, users[i])
		require.NoError(t, perr)
		if errs[i] == nil {
			winners++
			assert.Equal(t, 20, pts)
		} else {
			losers++
			assert.ErrorIs(t, errs[i], game.ErrWordUsed)
			assert.Zero(t, pts)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, losers)

	st, _ := m.Round(ctx)
	assert.Equal(t, []string{game.SentinelWord, "사과"}, st.History)
}

func TestRolloverPersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 14))
	e := engineAt(m, 15)

	st, err := e.RoundState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, st.Epoch)
	assert.Len(t, st.History, 1)

	// The replacement is durable, not just the returned value.
	stored, _ := m.Round(ctx)
	assert.Equal(t, 15, stored.Epoch)
	assert.Equal(t, game.SentinelWord, stored.LastWord)
}

func TestAppendAgainstRolledOverRoundConflicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(game.NewRound('사', 14))
	seedUsers(t, m, "alice")

	// Round rolls over between validation and commit.
	require.NoError(t, m.ReplaceRound(ctx, 14, game.NewRound('나', 15)))

	err := m.AppendWord(ctx, 14, "사과", "alice", 20)
	assert.ErrorIs(t, err, game.ErrConflict)
}
