package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"finance/internal/blob"
	"finance/internal/blob/memory"
	"finance/internal/core"
	applog "finance/internal/log"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newStore(t *testing.T, blobs blob.Store) *Store {
	t.Helper()
	return New(context.Background(), blobs, applog.Discard(), WithIDGenerator(seqIDs()))
}

func day(y, m, d int) core.CalendarDate {
	return core.CalendarDate{Year: y, Month: m, Day: d}
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddThenDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.New())

	tx, ok := s.Add(ctx, core.Income, amt("1000"), "Salary", day(2024, 3, 1))
	require.True(t, ok)
	assert.Equal(t, "id-1", tx.ID)
	assert.Equal(t, core.ToInstant(2024, 3, 1), tx.Date)

	count := 0
	for _, got := range s.All() {
		if got.ID == tx.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)

	assert.True(t, s.Delete(ctx, tx.ID))
	assert.Empty(t, s.All())
	assert.False(t, s.Delete(ctx, tx.ID))
}

func TestAddRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	s := newStore(t, blobs)

	cases := []struct {
		name string
		typ  core.TransactionType
		amt  decimal.Decimal
		desc string
		date core.CalendarDate
	}{
		{"empty description", core.Expense, amt("1"), "  ", day(2024, 1, 1)},
		{"zero amount", core.Expense, decimal.Zero, "x", day(2024, 1, 1)},
		{"negative amount", core.Expense, amt("-3"), "x", day(2024, 1, 1)},
		{"missing date", core.Expense, amt("1"), "x", core.CalendarDate{}},
		{"bad type", core.TransactionType("gift"), amt("1"), "x", day(2024, 1, 1)},
	}
	for _, tc := range cases {
		_, ok := s.Add(ctx, tc.typ, tc.amt, tc.desc, tc.date)
		assert.False(t, ok, tc.name)
	}
	assert.Empty(t, s.All())
	assert.Zero(t, blobs.Len(), "rejected adds must not persist")
}

func TestAllSortedDescendingAfterAdds(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.New())
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		d := day(2020+r.Intn(5), 1+r.Intn(12), 1+r.Intn(28))
		_, ok := s.Add(ctx, core.Expense, amt("1"), "x", d)
		require.True(t, ok)

		all := s.All()
		for j := 1; j < len(all); j++ {
			assert.False(t, all[j].Date.After(all[j-1].Date), "not descending at %d after %d adds", j, i+1)
		}
	}
}

func TestNewestInsertFirstAmongEqualDates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.New())

	s.Add(ctx, core.Expense, amt("1"), "first", day(2024, 5, 5))
	s.Add(ctx, core.Expense, amt("2"), "older", day(2024, 5, 4))
	s.Add(ctx, core.Expense, amt("3"), "second", day(2024, 5, 5))

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"second", "first", "older"}, []string{all[0].Description, all[1].Description, all[2].Description})
}

func TestEveryMutationPersistsWholeCollection(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	s := newStore(t, blobs)

	a, _ := s.Add(ctx, core.Income, amt("1000"), "Pay", day(2024, 3, 1))
	s.Add(ctx, core.Expense, amt("12.5"), "Lunch", day(2024, 3, 2))

	saved, err := Read(ctx, blobs, DefaultKey)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	s.Delete(ctx, a.ID)
	raw, err := blobs.Get(ctx, DefaultKey)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Lunch", decoded[0]["description"])
	assert.Equal(t, 12.5, decoded[0]["amount"])
	assert.Equal(t, "2024-03-02T12:00:00.000Z", decoded[0]["date"])

	s.Delete(ctx, "id-2")
	raw, _ = blobs.Get(ctx, DefaultKey)
	assert.Equal(t, "[]", string(raw))
}

func TestReloadRestoresCollection(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	s := newStore(t, blobs)
	s.Add(ctx, core.Income, amt("1000"), "Pay", day(2024, 3, 1))
	s.Add(ctx, core.Expense, amt("40"), "Gas", day(2024, 3, 9))

	reloaded := New(ctx, blobs, applog.Discard())
	want, got := s.All(), reloaded.All()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Type, got[i].Type)
		assert.True(t, want[i].Amount.Equal(got[i].Amount))
		assert.True(t, want[i].Date.Equal(got[i].Date))
	}
	assert.True(t, reloaded.Summary().Savings.Equal(amt("960")))
}

func TestCorruptOrMissingBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()

	corrupt := memory.NewWith(map[string][]byte{DefaultKey: []byte("{not json")})
	assert.Empty(t, New(ctx, corrupt, applog.Discard()).All())

	wrongShape := memory.NewWith(map[string][]byte{DefaultKey: []byte(`{"id":"x"}`)})
	assert.Empty(t, New(ctx, wrongShape, applog.Discard()).All())

	assert.Empty(t, New(ctx, memory.New(), applog.Discard()).All())
	assert.Empty(t, New(ctx, failingBlobs{}, applog.Discard()).All())
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, failingBlobs{})

	_, ok := s.Add(ctx, core.Expense, amt("5"), "Snack", day(2024, 1, 1))
	assert.True(t, ok)
	assert.Len(t, s.All(), 1)
}

func TestCustomKey(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	s := New(ctx, blobs, applog.Discard(), WithKey("alt"))
	s.Add(ctx, core.Income, amt("1"), "x", day(2024, 1, 1))

	_, err := blobs.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	_, err = blobs.Get(ctx, "alt")
	assert.NoError(t, err)
}

func TestAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.New())
	s.Add(ctx, core.Income, amt("1"), "x", day(2024, 1, 1))

	all := s.All()
	all[0].Description = "mutated"
	assert.Equal(t, "x", s.All()[0].Description)
}

type failingBlobs struct{}

func (failingBlobs) Get(context.Context, string) ([]byte, error) { return nil, errors.New("io error") }
func (failingBlobs) Put(context.Context, string, []byte) error   { return errors.New("io error") }
