package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func tx(typ TransactionType, amount string) Transaction {
	return Transaction{Type: typ, Amount: decimal.RequireFromString(amount), Description: "t", Date: ToInstant(2024, 1, 1)}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.TotalIncome.IsZero())
	assert.True(t, s.TotalExpenses.IsZero())
	assert.True(t, s.Savings.IsZero())
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		name                      string
		txs                       []Transaction
		income, expenses, savings string
	}{
		{"income only", []Transaction{tx(Income, "1000"), tx(Income, "250.50")}, "1250.5", "0", "1250.5"},
		{"expense only", []Transaction{tx(Expense, "10"), tx(Expense, "0.1"), tx(Expense, "0.2")}, "0", "10.3", "-10.3"},
		{"mixed unordered", []Transaction{tx(Expense, "300"), tx(Income, "1000"), tx(Expense, "200")}, "1000", "500", "500"},
		{"overspent", []Transaction{tx(Income, "100"), tx(Expense, "150")}, "100", "150", "-50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize(tc.txs)
			assert.True(t, s.TotalIncome.Equal(decimal.RequireFromString(tc.income)), "income %s", s.TotalIncome)
			assert.True(t, s.TotalExpenses.Equal(decimal.RequireFromString(tc.expenses)), "expenses %s", s.TotalExpenses)
			assert.True(t, s.Savings.Equal(decimal.RequireFromString(tc.savings)), "savings %s", s.Savings)
			assert.True(t, s.Savings.Equal(s.TotalIncome.Sub(s.TotalExpenses)))
			assert.False(t, s.TotalIncome.IsNegative())
			assert.False(t, s.TotalExpenses.IsNegative())
		})
	}
}

func TestDistributeClampsOnlyChart(t *testing.T) {
	s := Summarize([]Transaction{tx(Income, "100"), tx(Expense, "150")})
	d := Distribute(s)
	assert.True(t, s.Savings.IsNegative())
	assert.True(t, d.Savings.IsZero())
	assert.True(t, d.ExpenseShare.Equal(decimal.NewFromInt(100)))
	assert.True(t, d.SavingsShare.IsZero())

	d = Distribute(Summarize([]Transaction{tx(Income, "200"), tx(Expense, "50")}))
	assert.True(t, d.ExpenseShare.Equal(decimal.NewFromInt(25)))
	assert.True(t, d.SavingsShare.Equal(decimal.NewFromInt(75)))
	assert.True(t, d.Savings.Equal(decimal.NewFromInt(150)))

	d = Distribute(Summarize([]Transaction{tx(Expense, "50")}))
	assert.True(t, d.ExpenseShare.IsZero())
	assert.True(t, d.SavingsShare.IsZero())
}
