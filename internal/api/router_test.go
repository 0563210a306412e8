package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finbot/internal/actions"
	"github.com/dvloznov/finbot/internal/api/middleware"
	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/dvloznov/finbot/internal/catalog"
	"github.com/dvloznov/finbot/internal/chat"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/executor"
	"github.com/dvloznov/finbot/internal/jobs"
	jobsinmemory "github.com/dvloznov/finbot/internal/jobs/inmemory"
	"github.com/dvloznov/finbot/internal/locale"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/dvloznov/finbot/internal/store/inmemory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type stubCompleter struct {
	reply string
}

func (s *stubCompleter) SendText(ctx context.Context, message string, snapshot domain.Summary) (string, error) {
	return s.reply, nil
}

func (s *stubCompleter) SendImage(ctx context.Context, img assistant.Image, caption string) (string, error) {
	return s.reply, nil
}

func (s *stubCompleter) Reset() {}

type testServer struct {
	handler  http.Handler
	store    *inmemory.Store
	registry *chat.Registry
	jobs     *jobsinmemory.Store
	changes  []string
}

func newTestServer(t *testing.T, reply string) *testServer {
	t.Helper()

	cat := catalog.Default()
	st := inmemory.New()
	if err := st.UpsertCategories(context.Background(), cat.Categories()); err != nil {
		t.Fatalf("UpsertCategories() error = %v", err)
	}
	msgs := locale.For("en")
	money := locale.NewMoney(msgs, "USD")

	ts := &testServer{store: st, jobs: jobsinmemory.NewStore()}
	ts.registry = chat.NewRegistry(time.Hour, func(ctx context.Context, userID string) (*chat.Conversation, error) {
		return chat.New(userID, chat.Deps{
			Client:   &stubCompleter{reply: reply},
			Parser:   actions.NewParser(actions.WithClock(clock), actions.WithLocation(time.UTC)),
			Executor: executor.New(st, msgs, money, executor.WithClock(clock), executor.WithCatalog(cat)),
			Ledger:   st,
			Messages: msgs,
			Clock:    clock,
		}), nil
	})

	ts.handler = NewRouter(Deps{
		Repository:    st,
		Conversations: ts.registry,
		Jobs:          ts.jobs,
		OnChange: func(ctx context.Context, userID string) {
			ts.changes = append(ts.changes, userID)
		},
		MaxImageBytes: 1024,
		Clock:         clock,
		Logger:        zerolog.Nop(),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, "user-1")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func TestHealthNeedsNoUser(t *testing.T) {
	ts := newTestServer(t, "")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAPIRequiresUser(t *testing.T) {
	ts := newTestServer(t, "")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestChatMessageRecordsTransaction(t *testing.T) {
	ts := newTestServer(t, "Done! [TRANSACTION]\ntype: expense\namount: 45\ndescription: Lunch\ncategory: food\n[/TRANSACTION]")

	rec := ts.do(t, http.MethodPost, "/api/chat/messages", `{"message":"I spent 45 on lunch"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var ex chat.Exchange
	decodeBody(t, rec, &ex)
	if ex.Failed || ex.Assistant.Text != "Done!" {
		t.Errorf("exchange = %+v", ex)
	}
	if len(ex.Assistant.Results) != 1 || !ex.Assistant.Results[0].Succeeded {
		t.Errorf("results = %+v", ex.Assistant.Results)
	}

	txs, _ := ts.store.ListTransactions(context.Background(), "user-1", store.TransactionFilter{})
	if len(txs) != 1 || !txs[0].Amount.Equal(decimal.NewFromInt(45)) {
		t.Errorf("stored = %+v", txs)
	}

	rec = ts.do(t, http.MethodGet, "/api/chat/turns", "")
	var turns struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &turns)
	if turns.Count != 2 {
		t.Errorf("turn count = %d, want 2", turns.Count)
	}

	rec = ts.do(t, http.MethodDelete, "/api/chat", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("reset status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/chat/turns", "")
	decodeBody(t, rec, &turns)
	if turns.Count != 0 {
		t.Errorf("turn count after reset = %d", turns.Count)
	}
}

func TestChatMessageValidation(t *testing.T) {
	ts := newTestServer(t, "")
	for _, body := range []string{`{"message":"  "}`, `not json`, `{"msg":"hi"}`} {
		if rec := ts.do(t, http.MethodPost, "/api/chat/messages", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestChatImage(t *testing.T) {
	ts := newTestServer(t, "Receipt read.")
	png := []byte("\x89PNG\r\n\x1a\nrest")

	body := `{"image_base64":"` + base64.StdEncoding.EncodeToString(png) + `","caption":"market"}`
	rec := ts.do(t, http.MethodPost, "/api/chat/images", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var ex chat.Exchange
	decodeBody(t, rec, &ex)
	if !strings.HasSuffix(ex.User.Text, "market") {
		t.Errorf("user text = %q", ex.User.Text)
	}

	big := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("a", 2048)))
	rec = ts.do(t, http.MethodPost, "/api/chat/images", `{"image_base64":"`+big+`","mime_type":"image/png"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized status = %d, want 413", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/chat/images", `{"image_base64":"aGVsbG8=","mime_type":"application/pdf"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("pdf status = %d, want 400", rec.Code)
	}
}

func TestTransactionsCRUD(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodPost, "/api/transactions", `{"type":"income","amount":"5000","description":"Salary","category_id":"salary","date":"2026-02-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body.String())
	}
	var created domain.Transaction
	decodeBody(t, rec, &created)
	if created.ID == "" || created.UserID != "user-1" {
		t.Errorf("created = %+v", created)
	}

	rec = ts.do(t, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"-3","description":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid amount status = %d, want 400", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/transactions", `{"type":"gift","amount":"3"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid type status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/transactions?month=2026-02&type=income", "")
	var list struct {
		Transactions []domain.Transaction `json:"transactions"`
		Count        int                  `json:"count"`
	}
	decodeBody(t, rec, &list)
	if list.Count != 1 || list.Transactions[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	if rec := ts.do(t, http.MethodGet, "/api/transactions?month=feb", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d", rec.Code)
	}

	if rec := ts.do(t, http.MethodDelete, "/api/transactions/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/transactions/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}

	if len(ts.changes) != 2 {
		t.Errorf("change notifications = %v, want 2", ts.changes)
	}
}

func TestGoalsBudgetsInvestments(t *testing.T) {
	ts := newTestServer(t, "")

	if rec := ts.do(t, http.MethodPost, "/api/goals", `{"name":"Trip","target_amount":"3000","target_date":"2026-12-01"}`); rec.Code != http.StatusCreated {
		t.Errorf("goal status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, http.MethodPost, "/api/budgets", `{"category_id":"food","limit_amount":"800"}`); rec.Code != http.StatusCreated {
		t.Errorf("budget status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, http.MethodPost, "/api/investments", `{"name":"Index fund","type":"funds","amount":"1000"}`); rec.Code != http.StatusCreated {
		t.Errorf("investment status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, http.MethodPost, "/api/investments", `{"name":"Tulips","type":"flowers","amount":"1"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad investment type status = %d", rec.Code)
	}

	var budgets struct {
		Month   domain.Month    `json:"month"`
		Budgets []domain.Budget `json:"budgets"`
	}
	decodeBody(t, ts.do(t, http.MethodGet, "/api/budgets", ""), &budgets)
	if budgets.Month != domain.MonthOf(testNow) || len(budgets.Budgets) != 1 {
		t.Errorf("budgets = %+v", budgets)
	}

	var goals struct{ Count int }
	decodeBody(t, ts.do(t, http.MethodGet, "/api/goals", ""), &goals)
	var investments struct{ Count int }
	decodeBody(t, ts.do(t, http.MethodGet, "/api/investments", ""), &investments)
	if goals.Count != 1 || investments.Count != 1 {
		t.Errorf("goals = %d, investments = %d", goals.Count, investments.Count)
	}
}

func TestSummaryAndReport(t *testing.T) {
	ts := newTestServer(t, "")
	ts.do(t, http.MethodPost, "/api/transactions", `{"type":"income","amount":"5000","description":"Salary","category_id":"salary"}`)
	ts.do(t, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"45.50","description":"Lunch","category_id":"food"}`)
	ts.do(t, http.MethodPost, "/api/budgets", `{"category_id":"food","limit_amount":"100"}`)

	var summary domain.Summary
	decodeBody(t, ts.do(t, http.MethodGet, "/api/summary", ""), &summary)
	if !summary.Balance.Equal(decimal.RequireFromString("4954.50")) {
		t.Errorf("balance = %s", summary.Balance)
	}

	var report domain.MonthlyReport
	decodeBody(t, ts.do(t, http.MethodGet, "/api/reports/monthly?month=2026-02", ""), &report)
	if len(report.ByCategory) != 1 || len(report.Budgets) != 1 {
		t.Errorf("report = %+v", report)
	}

	var cats struct{ Count int }
	decodeBody(t, ts.do(t, http.MethodGet, "/api/categories", ""), &cats)
	if cats.Count != len(catalog.Default().Categories()) {
		t.Errorf("categories = %d", cats.Count)
	}
}

func TestJobsAreScopedToUser(t *testing.T) {
	ts := newTestServer(t, "")
	ctx := context.Background()
	ts.jobs.SaveJob(ctx, &jobs.MirrorTransactionJob{JobID: "mine", UserID: "user-1", Status: jobs.JobStatusCompleted, CreatedAt: testNow})
	ts.jobs.SaveJob(ctx, &jobs.MirrorTransactionJob{JobID: "theirs", UserID: "user-2", Status: jobs.JobStatusCompleted, CreatedAt: testNow})

	var list struct{ Count int }
	decodeBody(t, ts.do(t, http.MethodGet, "/api/jobs", ""), &list)
	if list.Count != 1 {
		t.Errorf("jobs = %d, want 1", list.Count)
	}
	if rec := ts.do(t, http.MethodGet, "/api/jobs/mine", ""); rec.Code != http.StatusOK {
		t.Errorf("own job status = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/jobs/theirs", ""); rec.Code != http.StatusNotFound {
		t.Errorf("foreign job status = %d, want 404", rec.Code)
	}
}
