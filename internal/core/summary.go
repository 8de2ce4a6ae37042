package core

import "github.com/shopspring/decimal"

// FinancialSummary is derived from the transaction collection and never stored.
// Savings may be negative.
type FinancialSummary struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	Savings       decimal.Decimal
}

// Summarize totals income and expenses. Input order does not matter.
func Summarize(txs []Transaction) FinancialSummary {
	income, expenses := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			income = income.Add(tx.Amount)
		case Expense:
			expenses = expenses.Add(tx.Amount)
		}
	}
	return FinancialSummary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Savings:       income.Sub(expenses),
	}
}

// Distribution is the chart view of a summary. Unlike FinancialSummary the
// savings wedge is clamped at zero.
type Distribution struct {
	Expenses decimal.Decimal
	Savings  decimal.Decimal

	// Percentages of income, both zero when there is no income.
	ExpenseShare decimal.Decimal
	SavingsShare decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func Distribute(s FinancialSummary) Distribution {
	d := Distribution{
		Expenses:     s.TotalExpenses,
		Savings:      decimal.Max(s.Savings, decimal.Zero),
		ExpenseShare: decimal.Zero,
		SavingsShare: decimal.Zero,
	}
	if !s.TotalIncome.IsPositive() {
		return d
	}
	d.ExpenseShare = decimal.Min(s.TotalExpenses.Div(s.TotalIncome).Mul(hundred), hundred)
	d.SavingsShare = decimal.Max(s.Savings.Div(s.TotalIncome).Mul(hundred), decimal.Zero)
	return d
}
