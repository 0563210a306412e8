package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/actions"
	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/dvloznov/finbot/internal/catalog"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/executor"
	"github.com/dvloznov/finbot/internal/locale"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/dvloznov/finbot/internal/store/inmemory"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
)

type mockCompleter struct {
	SendTextFunc  func(ctx context.Context, message string, snapshot domain.Summary) (string, error)
	SendImageFunc func(ctx context.Context, img assistant.Image, caption string) (string, error)
	resets        int
}

func (m *mockCompleter) SendText(ctx context.Context, message string, snapshot domain.Summary) (string, error) {
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, message, snapshot)
	}
	return "ok", nil
}

func (m *mockCompleter) SendImage(ctx context.Context, img assistant.Image, caption string) (string, error) {
	if m.SendImageFunc != nil {
		return m.SendImageFunc(ctx, img, caption)
	}
	return "ok", nil
}

func (m *mockCompleter) Reset() {
	m.resets++
}

type mockArchive struct {
	StoreFunc func(ctx context.Context, userID string, img assistant.Image) (string, error)
}

func (m *mockArchive) Store(ctx context.Context, userID string, img assistant.Image) (string, error) {
	return m.StoreFunc(ctx, userID, img)
}

type mockExecutor struct {
	calls int
}

func (m *mockExecutor) Execute(ctx context.Context, userID string, ledger *executor.Ledger, acts []actions.Action) []executor.Result {
	m.calls++
	return nil
}

var testNow = time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// newTestConversation wires the real parser and executor over an in-memory store.
func newTestConversation(t *testing.T, client Completer) (*Conversation, *inmemory.Store) {
	t.Helper()
	cat := catalog.Default()
	st := inmemory.New()
	if err := st.UpsertCategories(context.Background(), cat.Categories()); err != nil {
		t.Fatalf("UpsertCategories() error = %v", err)
	}
	msgs := locale.For("en")
	deps := Deps{
		Client:   client,
		Parser:   actions.NewParser(actions.WithClock(clock), actions.WithLocation(time.UTC)),
		Executor: executor.New(st, msgs, locale.NewMoney(msgs, "USD"), executor.WithClock(clock), executor.WithCatalog(cat)),
		Ledger:   st,
		Messages: msgs,
		Clock:    clock,
	}
	return New("u1", deps), st
}

func TestSendTextEndToEnd(t *testing.T) {
	client := &mockCompleter{
		SendTextFunc: func(ctx context.Context, message string, snapshot domain.Summary) (string, error) {
			return "Got it! ✅\n[TRANSACTION]\ntype: expense\namount: 45\ndescription: food\ncategory: food\ndate: 2026-02-24\n[/TRANSACTION]", nil
		},
	}
	conv, st := newTestConversation(t, client)

	ex := conv.SendText(context.Background(), "I spent 45 on food")
	if ex.Failed {
		t.Fatalf("exchange failed: %+v", ex)
	}

	want := []Turn{
		{Role: RoleUser, Text: "I spent 45 on food", Timestamp: testNow},
		{Role: RoleAssistant, Text: "Got it! ✅", Timestamp: testNow, Results: []executor.Result{
			{Kind: actions.KindTransaction, Succeeded: true, Summary: "✅ Sent: $45.00"},
		}},
	}
	if diff := cmp.Diff(want, conv.Turns()); diff != "" {
		t.Errorf("Turns() mismatch (-want +got):\n%s", diff)
	}

	stored, err := st.ListTransactions(context.Background(), "u1", store.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d transactions, want 1", len(stored))
	}
	tx := stored[0]
	if tx.Type != domain.Expense || !tx.Amount.Equal(decimal.NewFromInt(45)) || tx.Description != "food" ||
		tx.CategoryID != "food" || tx.Date != (civil.Date{Year: 2026, Month: 2, Day: 24}) {
		t.Errorf("stored transaction = %+v", tx)
	}
	if got := conv.Ledger().Transactions; len(got) != 1 || got[0].ID != tx.ID {
		t.Errorf("ledger transactions = %+v", got)
	}
}

func TestSendTextPassesSnapshot(t *testing.T) {
	var snapshots []domain.Summary
	client := &mockCompleter{
		SendTextFunc: func(ctx context.Context, message string, snapshot domain.Summary) (string, error) {
			snapshots = append(snapshots, snapshot)
			return "[TRANSACTION]\ntype: income\namount: 5000\ncategory: salary\n[/TRANSACTION]", nil
		},
	}
	conv, _ := newTestConversation(t, client)

	conv.SendText(context.Background(), "salary")
	conv.SendText(context.Background(), "again")

	if !snapshots[0].Balance.IsZero() {
		t.Errorf("first snapshot = %+v, want zero", snapshots[0])
	}
	if !snapshots[1].TotalIncome.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("second snapshot income = %s, want 5000", snapshots[1].TotalIncome)
	}
	if !conv.Summary().Balance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Summary().Balance = %s, want 10000", conv.Summary().Balance)
	}
}

func TestSendTextCompletionFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"classified", &assistant.CompletionError{Kind: assistant.FailureRateLimited, Message: "slow down"}, "slow down"},
		{"unclassified", errors.New("boom"), "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{}
			client := &mockCompleter{
				SendTextFunc: func(ctx context.Context, message string, snapshot domain.Summary) (string, error) {
					return "", tt.err
				},
			}
			msgs := locale.For("en")
			conv := New("u1", Deps{
				Client:   client,
				Parser:   actions.NewParser(),
				Executor: exec,
				Messages: msgs,
				Clock:    clock,
			})

			ex := conv.SendText(context.Background(), "hello")
			if !ex.Failed || ex.Assistant.Text != tt.want {
				t.Errorf("exchange = %+v, want failed with %q", ex, tt.want)
			}
			if exec.calls != 0 {
				t.Errorf("executor called %d times after failure", exec.calls)
			}
			if conv.session.Len() != 2 {
				t.Errorf("session has %d turns, want user + error", conv.session.Len())
			}
		})
	}
}

func TestSendTextWithoutActionsSkipsExecutor(t *testing.T) {
	exec := &mockExecutor{}
	conv := New("u1", Deps{
		Client:   &mockCompleter{},
		Parser:   actions.NewParser(),
		Executor: exec,
		Messages: locale.For("en"),
	})

	ex := conv.SendText(context.Background(), "hi")
	if ex.Assistant.Text != "ok" || ex.Assistant.Results != nil {
		t.Errorf("assistant turn = %+v", ex.Assistant)
	}
	if exec.calls != 0 {
		t.Errorf("executor called %d times", exec.calls)
	}
}

func TestSendImage(t *testing.T) {
	var gotCaption string
	client := &mockCompleter{
		SendImageFunc: func(ctx context.Context, img assistant.Image, caption string) (string, error) {
			gotCaption = caption
			return "Receipt read.\n[TRANSACTION]\namount: 12,50\ndescription: Bakery\ncategory: padaria\n[/TRANSACTION]", nil
		},
	}
	conv, _ := newTestConversation(t, client)
	conv.deps.Archive = &mockArchive{
		StoreFunc: func(ctx context.Context, userID string, img assistant.Image) (string, error) {
			return "gs://receipts/" + userID + "/r.jpg", nil
		},
	}

	ex := conv.SendImage(context.Background(), assistant.Image{Data: []byte{0xff}, MIMEType: "image/jpeg"}, "  lunch ")
	if gotCaption != "lunch" {
		t.Errorf("caption = %q, want trimmed", gotCaption)
	}
	if ex.User.Text != "[image submitted] lunch" || ex.User.ImageRef != "gs://receipts/u1/r.jpg" {
		t.Errorf("user turn = %+v", ex.User)
	}
	if ex.Assistant.Text != "Receipt read." || len(ex.Assistant.Results) != 1 || !ex.Assistant.Results[0].Succeeded {
		t.Errorf("assistant turn = %+v", ex.Assistant)
	}
	if ex.Assistant.Results[0].Summary != "✅ Sent: $12.50" {
		t.Errorf("summary = %q", ex.Assistant.Results[0].Summary)
	}
}

func TestSendImageArchiveFailureStillExchanges(t *testing.T) {
	conv, _ := newTestConversation(t, &mockCompleter{})
	conv.deps.Archive = &mockArchive{
		StoreFunc: func(ctx context.Context, userID string, img assistant.Image) (string, error) {
			return "", errors.New("bucket gone")
		},
	}

	ex := conv.SendImage(context.Background(), assistant.Image{Data: []byte{1}, MIMEType: "image/png"}, "")
	if ex.Failed || ex.User.ImageRef != "" || ex.User.Text != "[image submitted]" {
		t.Errorf("exchange = %+v", ex)
	}
	if conv.session.Len() != 2 {
		t.Errorf("session has %d turns, want 2", conv.session.Len())
	}
}

func TestNewConversationClearsBoth(t *testing.T) {
	client := &mockCompleter{}
	conv, _ := newTestConversation(t, client)
	conv.SendText(context.Background(), "one")
	conv.SendText(context.Background(), "two")

	conv.NewConversation()
	if len(conv.Turns()) != 0 {
		t.Errorf("Turns() after reset = %+v", conv.Turns())
	}
	if client.resets != 1 {
		t.Errorf("client reset %d times, want 1", client.resets)
	}
}

func TestRefresh(t *testing.T) {
	conv, st := newTestConversation(t, &mockCompleter{})
	ctx := context.Background()

	for _, tx := range []domain.Transaction{
		{UserID: "u1", Type: domain.Income, Amount: decimal.NewFromInt(5000), Description: "Salary", CategoryID: "salary", Date: civil.Date{Year: 2026, Month: 2, Day: 5}},
		{UserID: "u1", Type: domain.Expense, Amount: decimal.RequireFromString("45.50"), Description: "Lunch", CategoryID: "food", Date: civil.Date{Year: 2026, Month: 2, Day: 20}},
		{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(99), Description: "Old", CategoryID: "food", Date: civil.Date{Year: 2026, Month: 1, Day: 20}},
	} {
		if _, err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}
	if _, err := st.CreateGoal(ctx, domain.Goal{UserID: "u1", Name: "Trip", TargetAmount: decimal.NewFromInt(1000)}); err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	feb := domain.MonthOf(testNow)
	if _, err := st.CreateBudget(ctx, domain.Budget{UserID: "u1", CategoryID: "food", LimitAmount: decimal.NewFromInt(800), Month: feb}); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	if err := conv.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	ledger := conv.Ledger()
	if len(ledger.Transactions) != 3 || len(ledger.Goals) != 1 || len(ledger.Budgets) != 1 {
		t.Errorf("ledger sizes = %d/%d/%d", len(ledger.Transactions), len(ledger.Goals), len(ledger.Budgets))
	}

	want := domain.Summary{
		Balance:      decimal.RequireFromString("4954.50"),
		TotalIncome:  decimal.NewFromInt(5000),
		TotalExpense: decimal.RequireFromString("45.50"),
	}
	if diff := cmp.Diff(want, conv.Summary(), cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshWithoutReader(t *testing.T) {
	conv := New("u1", Deps{Client: &mockCompleter{}, Messages: locale.For("en")})
	if err := conv.Refresh(context.Background()); err != nil {
		t.Errorf("Refresh() error = %v", err)
	}
}

func TestTurnsIgnoreTimestampsWhenComparing(t *testing.T) {
	conv := New("u1", Deps{
		Client:   &mockCompleter{},
		Parser:   actions.NewParser(),
		Executor: &mockExecutor{},
		Messages: locale.For("en"),
	})
	conv.SendText(context.Background(), "a")

	want := []Turn{{Role: RoleUser, Text: "a"}, {Role: RoleAssistant, Text: "ok"}}
	if diff := cmp.Diff(want, conv.Turns(), cmpopts.IgnoreFields(Turn{}, "Timestamp")); diff != "" {
		t.Errorf("Turns() mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshDuringExchangeKeepsNewTransaction(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	client := &mockCompleter{
		SendTextFunc: func(ctx context.Context, message string, snapshot domain.Summary) (string, error) {
			close(inFlight)
			<-release
			return "Noted.\n[TRANSACTION]\ntype: expense\namount: 30\ndescription: Taxi\ncategory: transport\n[/TRANSACTION]", nil
		},
	}
	conv, _ := newTestConversation(t, client)
	ctx := context.Background()

	sent := make(chan Exchange, 1)
	go func() { sent <- conv.SendText(ctx, "taxi 30") }()
	<-inFlight

	refreshed := make(chan error, 1)
	go func() { refreshed <- conv.Refresh(ctx) }()
	time.Sleep(10 * time.Millisecond)

	close(release)
	ex := <-sent
	if err := <-refreshed; err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if len(ex.Assistant.Results) != 1 || !ex.Assistant.Results[0].Succeeded {
		t.Fatalf("results = %+v, want one success", ex.Assistant.Results)
	}
	ledger := conv.Ledger()
	if len(ledger.Transactions) != 1 || ledger.Transactions[0].Description != "Taxi" {
		t.Errorf("ledger transactions = %+v, want the Taxi expense", ledger.Transactions)
	}
}
