package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/rates"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

type fakeRates struct {
	mu    sync.Mutex
	rates map[string]decimal.Decimal
	err   error
	calls int
}

func (f *fakeRates) RateFor(_ context.Context, code string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	r, ok := f.rates[code]
	if !ok {
		return decimal.Zero, &rates.LookupError{Codes: []string{code}, Err: rates.ErrRateNotFound}
	}
	return r, nil
}

func (f *fakeRates) RatesFor(_ context.Context, codes []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]decimal.Decimal{core.BaseCurrency: decimal.NewFromInt(1)}
	for _, c := range codes {
		if r, ok := f.rates[c]; ok {
			out[c] = r
		}
	}
	return out, nil
}

func (f *fakeRates) set(code, rate string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[code] = decimal.RequireFromString(rate)
}

type fakePublisher struct {
	mu    sync.Mutex
	users []int64
	err   error
}

func (f *fakePublisher) PublishRateRefresh(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, userID)
	return nil
}

func (f *fakePublisher) published() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.users...)
}

type FinanceServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *storage.Store
	rates     *fakeRates
	publisher *fakePublisher
	exporter  *memory.Exporter
	reports   *cache.LRU[stats.Report]
	svc       *FinanceService
}

func (s *FinanceServiceSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := storage.OpenSQLite(s.ctx, filepath.Join(s.T().TempDir(), "fintrack.db"), log.Discard())
	require.NoError(s.T(), err)
	s.store = store

	s.rates = &fakeRates{rates: map[string]decimal.Decimal{
		"GBP": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("1.25"),
		"EUR": decimal.RequireFromString("1.2"),
	}}
	s.publisher = &fakePublisher{}
	s.exporter = memory.New()
	s.reports = cache.NewLRU[stats.Report](16, time.Minute)
	s.svc = NewFinanceService(store, Options{
		Rates:             s.rates,
		Publisher:         s.publisher,
		Exporter:          s.exporter,
		Reports:           s.reports,
		Logger:            log.Discard(),
		DefaultCurrencies: []string{"GBP", "usd", "EUR", "USD"},
	})
}

func (s *FinanceServiceSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func TestFinanceServiceSuite(t *testing.T) {
	suite.Run(t, new(FinanceServiceSuite))
}

func (s *FinanceServiceSuite) provision(email string) core.User {
	u, err := s.svc.ProvisionUser(s.ctx, email, "correct horse")
	require.NoError(s.T(), err)
	return u
}

func (s *FinanceServiceSuite) category(userID int64, name string, income bool) core.Category {
	cats, err := s.svc.ListCategories(s.ctx, userID, &income)
	require.NoError(s.T(), err)
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	s.T().Fatalf("category %s not found", name)
	return core.Category{}
}

func (s *FinanceServiceSuite) userCurrency(userID int64, code string) core.Currency {
	cs, err := s.store.UserCurrencies(s.ctx, userID)
	require.NoError(s.T(), err)
	for _, c := range cs {
		if c.Code == code {
			return c
		}
	}
	s.T().Fatalf("currency %s not found", code)
	return core.Currency{}
}

func (s *FinanceServiceSuite) firstAccount(userID int64) core.Account {
	accs, err := s.svc.ListAccounts(s.ctx, userID)
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), accs)
	return accs[0]
}

func (s *FinanceServiceSuite) addTx(userID int64, cat core.Category, cur core.Currency, amount string, d core.Date) core.Transaction {
	t, err := s.svc.CreateTransaction(s.ctx, core.Transaction{
		UserID:     userID,
		AccountID:  s.firstAccount(userID).ID,
		CategoryID: cat.ID,
		CurrencyID: cur.ID,
		IsIncome:   cat.IsIncome,
		Amount:     decimal.RequireFromString(amount),
		Date:       d,
	})
	require.NoError(s.T(), err)
	return t
}

func (s *FinanceServiceSuite) TestProvisionUserCreatesDefaults() {
	u := s.provision("Bob@Example.com ")
	assert.Equal(s.T(), "bob@example.com", u.Email)
	assert.NotEqual(s.T(), "correct horse", u.PasswordHash)

	cats, err := s.svc.ListCategories(s.ctx, u.ID, nil)
	require.NoError(s.T(), err)
	assert.Len(s.T(), cats, len(core.DefaultIncomeCategories)+len(core.DefaultExpenseCategories))
	assert.Len(s.T(), cats, 15)

	// "Gift" exists once per kind
	s.category(u.ID, "Gift", true)
	s.category(u.ID, "Gift", false)

	accs, err := s.svc.ListAccounts(s.ctx, u.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), accs, 1)
	assert.Equal(s.T(), core.DefaultAccountName, accs[0].Name)
	assert.Equal(s.T(), core.AccountCash, accs[0].Type)
	assert.True(s.T(), accs[0].Balance.IsZero())

	owned, err := s.store.UserCurrencies(s.ctx, u.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), owned, 3, "duplicate codes collapse")
	assert.True(s.T(), s.userCurrency(u.ID, "USD").Rate.Equal(decimal.RequireFromString("1.25")))
	assert.True(s.T(), s.userCurrency(u.ID, "EUR").Rate.Equal(decimal.RequireFromString("1.2")))

	// user GBP coexists with the system GBP
	all, err := s.svc.ListCurrencies(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 4)
	assert.True(s.T(), all[0].IsSystem())

	assert.Empty(s.T(), s.publisher.published(), "no refresh needed when the provider answered")
}

func (s *FinanceServiceSuite) TestProvisionUserFallsBackWhenRatesFail() {
	s.rates.err = &rates.LookupError{Err: errors.New("connection refused")}

	u := s.provision("carol@example.com")

	usd := s.userCurrency(u.ID, "USD")
	fb, ok := rates.Fallback("USD")
	require.True(s.T(), ok)
	assert.True(s.T(), usd.Rate.Equal(fb))
	assert.Equal(s.T(), []int64{u.ID}, s.publisher.published())
}

func (s *FinanceServiceSuite) TestProvisionUserValidation() {
	_, err := s.svc.ProvisionUser(s.ctx, "", "long enough")
	var ve *core.ValidationError
	require.ErrorAs(s.T(), err, &ve)
	assert.Equal(s.T(), "email", ve.Field)

	_, err = s.svc.ProvisionUser(s.ctx, "dave@example.com", "short")
	require.ErrorAs(s.T(), err, &ve)
	assert.Equal(s.T(), "password", ve.Field)

	s.provision("erin@example.com")
	_, err = s.svc.ProvisionUser(s.ctx, "ERIN@example.com", "another password")
	require.ErrorAs(s.T(), err, &ve)

	// the original user is untouched
	_, err = s.store.GetUserByEmail(s.ctx, "erin@example.com")
	require.NoError(s.T(), err)
}

func (s *FinanceServiceSuite) TestStatisticsNormalizesAndCaches() {
	u := s.provision("frank@example.com")
	food := s.category(u.ID, "Food", false)
	usd := s.userCurrency(u.ID, "USD")

	_, err := s.svc.SetCurrencyRate(s.ctx, u.ID, usd.ID, decimal.NewFromInt(2))
	require.NoError(s.T(), err)
	s.addTx(u.ID, food, usd, "100", core.NewDate(2024, 5, 10))

	q := stats.Query{Year: 2024, Mode: stats.ModeYear}
	rep, err := s.svc.Statistics(s.ctx, u.ID, q)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "50.00", rep.Expense.String())
	assert.Equal(s.T(), "50.00", rep.ExpenseByCategory["Food"].String())
	assert.Equal(s.T(), "50.00", rep.MonthlyData["5"].Expense.String())
	assert.Equal(s.T(), 1, s.reports.Len())

	// a write invalidates the user's cached reports
	gbp := s.userCurrency(u.ID, "GBP")
	s.addTx(u.ID, s.category(u.ID, "Salary", true), gbp, "1000", core.NewDate(2024, 6, 1))
	assert.Equal(s.T(), 0, s.reports.Len())

	rep, err = s.svc.Statistics(s.ctx, u.ID, q)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "1000.00", rep.Income.String())
	assert.Equal(s.T(), "950.00", rep.Balance.String())
}

func (s *FinanceServiceSuite) TestStatisticsSeesRatesChangedByAnotherProcess() {
	u := s.provision("olivia@example.com")
	food := s.category(u.ID, "Food", false)
	usd := s.userCurrency(u.ID, "USD")
	_, err := s.svc.SetCurrencyRate(s.ctx, u.ID, usd.ID, decimal.NewFromInt(2))
	require.NoError(s.T(), err)
	s.addTx(u.ID, food, usd, "100", core.NewDate(2024, 5, 10))

	q := stats.Query{Year: 2024, Mode: stats.ModeYear}
	rep, err := s.svc.Statistics(s.ctx, u.ID, q)
	require.NoError(s.T(), err)
	require.Equal(s.T(), "50.00", rep.Expense.String())

	// the rates worker owns a separate service and cache over the same store
	s.rates.set("USD", "4")
	worker := NewFinanceService(s.store, Options{
		Rates:   s.rates,
		Reports: cache.NewLRU[stats.Report](16, time.Minute),
		Logger:  log.Discard(),
	})
	_, err = worker.RefreshRates(s.ctx, u.ID)
	require.NoError(s.T(), err)

	rep, err = s.svc.Statistics(s.ctx, u.ID, q)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "25.00", rep.Expense.String())

	// cached under the new rates
	rep, err = s.svc.Statistics(s.ctx, u.ID, q)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "25.00", rep.Expense.String())
}

func (s *FinanceServiceSuite) TestStatisticsNegativeYearIsEmpty() {
	u := s.provision("peggy@example.com")
	gbp := s.userCurrency(u.ID, "GBP")
	s.addTx(u.ID, s.category(u.ID, "Food", false), gbp, "10", core.NewDate(2024, 2, 1))

	rep, err := s.svc.Statistics(s.ctx, u.ID, stats.Query{Year: -1, Month: 2, Mode: stats.ModeMonth})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "0.00", rep.Expense.String())
	assert.Nil(s.T(), rep.DailyData)
	assert.Zero(s.T(), s.reports.Len())
}

func (s *FinanceServiceSuite) TestStatisticsMonthModeAndEmptyYear() {
	u := s.provision("grace@example.com")
	gbp := s.userCurrency(u.ID, "GBP")
	food := s.category(u.ID, "Food", false)
	s.addTx(u.ID, food, gbp, "10", core.NewDate(2024, 2, 29))
	s.addTx(u.ID, food, gbp, "99", core.NewDate(2024, 3, 1))

	rep, err := s.svc.Statistics(s.ctx, u.ID, stats.Query{Year: 2024, Month: 2, Mode: stats.ModeMonth})
	require.NoError(s.T(), err)
	assert.Len(s.T(), rep.DailyData, 29)
	assert.Equal(s.T(), "10.00", rep.DailyData["29"].Expense.String())
	assert.Equal(s.T(), "10.00", rep.Expense.String())

	empty, err := s.svc.Statistics(s.ctx, u.ID, stats.Query{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "0.00", empty.Expense.String())
	assert.Nil(s.T(), empty.DailyData)
}

func (s *FinanceServiceSuite) TestBudgetUpsertAndUsage() {
	u := s.provision("heidi@example.com")
	food := s.category(u.ID, "Food", false)

	first, err := s.svc.UpsertBudget(s.ctx, u.ID, food.ID, "2024-05", decimal.NewFromInt(100))
	require.NoError(s.T(), err)
	second, err := s.svc.UpsertBudget(s.ctx, u.ID, food.ID, "2024-05", decimal.NewFromInt(300))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first.ID, second.ID)

	budgets, err := s.svc.ListBudgets(s.ctx, u.ID, "2024-05")
	require.NoError(s.T(), err)
	require.Len(s.T(), budgets, 1)
	assert.True(s.T(), budgets[0].Amount.Equal(decimal.NewFromInt(300)))

	// spending is summed as stored, without currency conversion
	s.addTx(u.ID, food, s.userCurrency(u.ID, "USD"), "100", core.NewDate(2024, 5, 3))
	s.addTx(u.ID, food, s.userCurrency(u.ID, "GBP"), "20.50", core.NewDate(2024, 5, 31))
	s.addTx(u.ID, food, s.userCurrency(u.ID, "GBP"), "7", core.NewDate(2024, 6, 1))

	usage, err := s.svc.BudgetUsage(s.ctx, u.ID, second.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "120.5", usage.Spent.String())
	assert.Equal(s.T(), "179.5", usage.Remaining.String())

	_, err = s.svc.UpsertBudget(s.ctx, u.ID, food.ID, "May 2024", decimal.NewFromInt(1))
	var ve *core.ValidationError
	assert.ErrorAs(s.T(), err, &ve)

	rep, err := s.svc.Statistics(s.ctx, u.ID, stats.Query{Year: 2024, Month: 5, Mode: stats.ModeMonth})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "300.00", rep.BudgetData.TotalBudget.String())
	assert.Equal(s.T(), "300.00", rep.BudgetData.CategoryBudgets["Food"].String())
}

func (s *FinanceServiceSuite) TestDeleteCategoryProtected() {
	u := s.provision("ivan@example.com")
	food := s.category(u.ID, "Food", false)
	rent := s.category(u.ID, "Rent", false)
	s.addTx(u.ID, food, s.userCurrency(u.ID, "GBP"), "5", core.NewDate(2024, 1, 1))

	err := s.svc.DeleteCategory(s.ctx, u.ID, food.ID)
	var pe *core.ProtectedDeleteError
	require.ErrorAs(s.T(), err, &pe)
	assert.Equal(s.T(), 1, pe.References)
	s.category(u.ID, "Food", false)

	require.NoError(s.T(), s.svc.DeleteCategory(s.ctx, u.ID, rent.ID))
	_, err = s.store.GetCategory(s.ctx, u.ID, rent.ID)
	var nf *core.NotFoundError
	assert.ErrorAs(s.T(), err, &nf)
}

func (s *FinanceServiceSuite) TestAddCurrency() {
	u := s.provision("judy@example.com")
	s.rates.set("CHF", "1.11")

	c, err := s.svc.AddCurrency(s.ctx, u.ID, " chf ")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "CHF", c.Code)
	assert.True(s.T(), c.Rate.Equal(decimal.RequireFromString("1.11")))

	_, err = s.svc.AddCurrency(s.ctx, u.ID, "CHF")
	var ve *core.ValidationError
	assert.ErrorAs(s.T(), err, &ve, "duplicate code")

	_, err = s.svc.AddCurrency(s.ctx, u.ID, "C1F")
	assert.ErrorAs(s.T(), err, &ve)

	// provider down: known codes use the fallback table
	s.rates.err = &rates.LookupError{Err: errors.New("timeout")}
	jpy, err := s.svc.AddCurrency(s.ctx, u.ID, "JPY")
	require.NoError(s.T(), err)
	fb, _ := rates.Fallback("JPY")
	assert.True(s.T(), jpy.Rate.Equal(fb))
	assert.Contains(s.T(), s.publisher.published(), u.ID)

	// unknown codes surface the lookup error
	_, err = s.svc.AddCurrency(s.ctx, u.ID, "XAU")
	assert.True(s.T(), rates.IsLookupError(err))
}

func (s *FinanceServiceSuite) TestRefreshRates() {
	u := s.provision("ken@example.com")
	s.rates.set("USD", "1.30")
	s.rates.set("EUR", "1.15")

	n, err := s.svc.RefreshRates(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, n)
	assert.True(s.T(), s.userCurrency(u.ID, "USD").Rate.Equal(decimal.RequireFromString("1.30")))

	queued, err := s.svc.RequestRateRefresh(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), queued)

	s.publisher.err = errors.New("broker down")
	s.rates.set("USD", "1.31")
	queued, err = s.svc.RequestRateRefresh(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), queued)
	assert.True(s.T(), s.userCurrency(u.ID, "USD").Rate.Equal(decimal.RequireFromString("1.31")))

	// system currencies
	n, err = s.svc.RefreshRates(s.ctx, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, n)
}

func (s *FinanceServiceSuite) TestTransactionsLifecycle() {
	u := s.provision("leo@example.com")
	other := s.provision("mia@example.com")
	food := s.category(u.ID, "Food", false)
	gbp := s.userCurrency(u.ID, "GBP")

	t := s.addTx(u.ID, food, gbp, "12.34", core.NewDate(2024, 4, 2))

	// references owned by someone else are not found
	_, err := s.svc.CreateTransaction(s.ctx, core.Transaction{
		UserID: u.ID, AccountID: s.firstAccount(other.ID).ID, CategoryID: food.ID, CurrencyID: gbp.ID,
		Amount: decimal.NewFromInt(1), Date: core.NewDate(2024, 4, 2),
	})
	var nf *core.NotFoundError
	require.ErrorAs(s.T(), err, &nf)
	assert.Equal(s.T(), "account", nf.Entity)

	_, err = s.svc.CreateTransaction(s.ctx, core.Transaction{
		UserID: u.ID, AccountID: s.firstAccount(u.ID).ID, CategoryID: food.ID, CurrencyID: gbp.ID,
		Amount: decimal.RequireFromString("1.001"), Date: core.NewDate(2024, 4, 2),
	})
	var ve *core.ValidationError
	require.ErrorAs(s.T(), err, &ve)

	t.Description = "  lunch "
	t.Amount = decimal.RequireFromString("15")
	updated, err := s.svc.UpdateTransaction(s.ctx, t)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "lunch", updated.Description)

	require.NoError(s.T(), s.svc.SetSaved(s.ctx, u.ID, t.ID, true))
	saved, err := s.svc.ListTransactions(s.ctx, u.ID, storage.TransactionFilter{SavedOnly: true})
	require.NoError(s.T(), err)
	require.Len(s.T(), saved, 1)
	assert.True(s.T(), saved[0].Amount.Equal(decimal.NewFromInt(15)))

	_, err = s.svc.GetTransaction(s.ctx, other.ID, t.ID)
	assert.ErrorAs(s.T(), err, &nf)

	require.NoError(s.T(), s.svc.DeleteTransaction(s.ctx, u.ID, t.ID))
	assert.ErrorAs(s.T(), s.svc.DeleteTransaction(s.ctx, u.ID, t.ID), &nf)
}

func (s *FinanceServiceSuite) TestTransactionDates() {
	u := s.provision("nina@example.com")
	food := s.category(u.ID, "Food", false)
	gbp := s.userCurrency(u.ID, "GBP")
	for _, d := range []core.Date{
		core.NewDate(2023, 12, 24),
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 1, 15),
		core.NewDate(2024, 3, 20),
	} {
		s.addTx(u.ID, food, gbp, "1", d)
	}

	dates, err := s.svc.TransactionDates(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int{2024, 2023}, dates.Years)
	assert.Equal(s.T(), []int{1, 3}, dates.MonthsByYear["2024"])
	assert.Equal(s.T(), []int{12}, dates.MonthsByYear["2023"])

	b, err := json.Marshal(dates)
	require.NoError(s.T(), err)
	assert.Contains(s.T(), string(b), `"monthsByYear"`)
}

func (s *FinanceServiceSuite) TestExportAndChart() {
	u := s.provision("oscar@example.com")
	gbp := s.userCurrency(u.ID, "GBP")
	s.addTx(u.ID, s.category(u.ID, "Salary", true), gbp, "2500", core.NewDate(2024, 1, 31))

	ref, err := s.svc.ExportStatistics(s.ctx, u.ID, stats.Query{Year: 2024, Mode: stats.ModeYear})
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), ref)
	assert.Equal(s.T(), 1, s.exporter.Exports())

	png, err := s.svc.MonthlyChart(s.ctx, u.ID, 2024)
	require.NoError(s.T(), err)
	assert.True(s.T(), bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = s.svc.MonthlyChart(s.ctx, u.ID, 0)
	var ve *core.ValidationError
	assert.ErrorAs(s.T(), err, &ve)

	noExport := NewFinanceService(s.store, Options{Rates: s.rates, Logger: log.Discard()})
	_, err = noExport.ExportStatistics(s.ctx, u.ID, stats.Query{Year: 2024})
	assert.ErrorIs(s.T(), err, ErrExportDisabled)
}

func (s *FinanceServiceSuite) TestReorderAndProtectedAccount() {
	u := s.provision("pat@example.com")
	bank, err := s.svc.CreateAccount(s.ctx, core.Account{UserID: u.ID, Name: "Bank", Type: core.AccountBank, Balance: decimal.Zero})
	require.NoError(s.T(), err)
	cash := s.firstAccount(u.ID)

	require.NoError(s.T(), s.svc.ReorderAccounts(s.ctx, u.ID, []int64{bank.ID}))
	accs, err := s.svc.ListAccounts(s.ctx, u.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), accs, 2)
	assert.Equal(s.T(), bank.ID, accs[0].ID)
	assert.Equal(s.T(), cash.ID, accs[1].ID)

	_, err = s.svc.CreateAccount(s.ctx, core.Account{UserID: u.ID, Name: "Bank", Type: core.AccountBank})
	var ve *core.ValidationError
	assert.ErrorAs(s.T(), err, &ve)

	s.addTx(u.ID, s.category(u.ID, "Food", false), s.userCurrency(u.ID, "GBP"), "3", core.NewDate(2024, 1, 1))
	// bank is first now, so the transaction lands on it
	var pe *core.ProtectedDeleteError
	assert.ErrorAs(s.T(), s.svc.DeleteAccount(s.ctx, u.ID, bank.ID), &pe)
	assert.NoError(s.T(), s.svc.DeleteAccount(s.ctx, u.ID, cash.ID))
}

func TestNormalizeCodes(t *testing.T) {
	assert.Equal(t, []string{"USD", "EUR"}, normalizeCodes([]string{" usd", "EUR", "USD", "eu", "€UR"}))
	assert.Empty(t, normalizeCodes(nil))
}
