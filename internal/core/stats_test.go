package core

import "testing"

func TestComputeBudgetStats(t *testing.T) {
	b := Budget{
		Amount:    dec("100"),
		StartDate: NewDate(2024, 1, 1),
		EndDate:   NewDate(2024, 1, 31),
	}
	txs := []Transaction{
		{Type: Expense, Amount: dec("40"), Date: NewDate(2024, 1, 10)},
		{Type: Expense, Amount: dec("70"), Date: NewDate(2024, 1, 20)},
		{Type: Income, Amount: dec("10"), Date: NewDate(2024, 1, 5)},
		{Type: Expense, Amount: dec("5"), Date: NewDate(2024, 2, 1)},
	}

	got := ComputeBudgetStats(b, txs, "BGN")

	if !got.SpentAmount.Equal(dec("110")) {
		t.Errorf("SpentAmount = %s, want 110", got.SpentAmount)
	}
	if !got.IncomeAmount.Equal(dec("10")) {
		t.Errorf("IncomeAmount = %s, want 10", got.IncomeAmount)
	}
	if !got.RemainingAmount.Equal(dec("-10")) {
		t.Errorf("RemainingAmount = %s, want -10", got.RemainingAmount)
	}
	if !got.Exceeded || got.InLimit {
		t.Errorf("Exceeded=%v InLimit=%v, want true/false", got.Exceeded, got.InLimit)
	}
	if got.Currency != "BGN" {
		t.Errorf("Currency = %q", got.Currency)
	}
}

func TestComputeBudgetStatsBoundaries(t *testing.T) {
	b := Budget{
		Amount:    dec("50"),
		StartDate: NewDate(2024, 3, 1),
		EndDate:   NewDate(2024, 3, 31),
	}
	cases := []struct {
		name     string
		txs      []Transaction
		spent    string
		exceeded bool
	}{
		{"empty", nil, "0", false},
		{"on start and end day", []Transaction{
			{Type: Expense, Amount: dec("20"), Date: NewDate(2024, 3, 1)},
			{Type: Expense, Amount: dec("30"), Date: NewDate(2024, 3, 31)},
		}, "50", false},
		{"one cent over", []Transaction{
			{Type: Expense, Amount: dec("50.01"), Date: NewDate(2024, 3, 15)},
		}, "50.01", true},
		{"day before start ignored", []Transaction{
			{Type: Expense, Amount: dec("99"), Date: NewDate(2024, 2, 29)},
		}, "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeBudgetStats(b, tc.txs, "EUR")
			if !got.SpentAmount.Equal(dec(tc.spent)) {
				t.Fatalf("SpentAmount = %s, want %s", got.SpentAmount, tc.spent)
			}
			if got.Exceeded != tc.exceeded || got.InLimit == tc.exceeded {
				t.Fatalf("Exceeded=%v InLimit=%v", got.Exceeded, got.InLimit)
			}
		})
	}
}

func TestBudgetCurrency(t *testing.T) {
	if got := BudgetCurrency(nil, "BGN"); got != "BGN" {
		t.Fatalf("got %q", got)
	}
	if got := BudgetCurrency(&Account{Currency: "USD"}, "BGN"); got != "USD" {
		t.Fatalf("got %q", got)
	}
}

func TestExpensesByCategory(t *testing.T) {
	food, rent := int64(1), int64(2)
	txs := []Transaction{
		{Type: Expense, Amount: dec("10"), CategoryID: &food},
		{Type: Expense, Amount: dec("15"), CategoryID: &food},
		{Type: Expense, Amount: dec("500"), CategoryID: &rent},
		{Type: Expense, Amount: dec("3")},
		{Type: Income, Amount: dec("1000"), CategoryID: &rent},
	}
	got := ExpensesByCategory(txs, map[int64]string{1: "Food", 2: "Rent"})
	want := []CategoryAmount{
		{"Rent", dec("500")},
		{"Food", dec("25")},
		{Uncategorized, dec("3")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Category != want[i].Category || !got[i].Amount.Equal(want[i].Amount) {
			t.Errorf("row %d = %v, want %v", i, got[i], want[i])
		}
	}
}
