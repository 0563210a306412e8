package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/locale"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// mockCompletionService records requests and replies through CompleteFunc.
type mockCompletionService struct {
	CompleteFunc func(ctx context.Context, req CompletionRequest) (string, error)
	requests     []CompletionRequest
}

func (m *mockCompletionService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "ok", nil
}

var testNow = time.Date(2026, time.February, 24, 12, 0, 0, 0, time.UTC)

func newTestClient(svc CompletionService, opts ...Option) *Client {
	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithLocation(time.UTC)}, opts...)
	return NewClient(svc, "SYSTEM", locale.For("en"), opts...)
}

func snapshot() domain.Summary {
	return domain.Summary{
		Balance:      decimal.RequireFromString("4954.5"),
		TotalIncome:  decimal.RequireFromString("5000"),
		TotalExpense: decimal.RequireFromString("45.5"),
	}
}

func TestSendText_PreambleAndHistory(t *testing.T) {
	svc := &mockCompletionService{
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (string, error) {
			return "reply to " + req.Text[len(req.Text)-2:], nil
		},
	}
	c := newTestClient(svc)

	reply, err := c.SendText(context.Background(), "hi", snapshot())
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if reply != "reply to hi" {
		t.Errorf("reply = %q", reply)
	}

	wantPrompt := `[Financial data: {"balance":4954.50,"income":5000.00,"expense":45.50}] [Today: 2026-02-24]` + "\n\nhi"
	first := svc.requests[0]
	if first.Text != wantPrompt {
		t.Errorf("prompt = %q, want %q", first.Text, wantPrompt)
	}
	if first.SystemInstruction != "SYSTEM" {
		t.Errorf("SystemInstruction = %q", first.SystemInstruction)
	}
	if len(first.History) != 0 {
		t.Errorf("first request history = %v, want empty", first.History)
	}

	if _, err := c.SendText(context.Background(), "yo", snapshot()); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	want := []Entry{
		{Role: RoleUser, Text: wantPrompt},
		{Role: RoleModel, Text: "reply to hi"},
	}
	if diff := cmp.Diff(want, svc.requests[1].History); diff != "" {
		t.Errorf("second request history mismatch (-want +got):\n%s", diff)
	}
	if got := c.transcript.Len(); got != 4 {
		t.Errorf("transcript len = %d, want 4", got)
	}
}

func TestSendText_ReplyVerbatim(t *testing.T) {
	raw := "Done!\n[TRANSACTION]\namount: 5\n[/TRANSACTION]"
	svc := &mockCompletionService{
		CompleteFunc: func(ctx context.Context, req CompletionRequest) (string, error) { return raw, nil },
	}
	reply, err := newTestClient(svc).SendText(context.Background(), "x", domain.Summary{})
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if reply != raw {
		t.Errorf("reply = %q, want raw reply with blocks", reply)
	}
}

func TestSendText_FailureLeavesTranscriptPaired(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		reply    string
		wantKind FailureKind
		wantMsg  string
	}{
		{name: "rate limit", err: errors.New("Error 429, Message: quota exceeded"), wantKind: FailureRateLimited, wantMsg: "⚠️ API limit reached. Wait a moment and try again."},
		{name: "bad key", err: errors.New("API key not valid. Please pass a valid API key."), wantKind: FailureInvalidCredential, wantMsg: "🔑 Invalid API key."},
		{name: "other", err: errors.New("connection reset"), wantKind: FailureUnknown, wantMsg: "Something went wrong. Please try again."},
		{name: "empty reply", reply: "   ", wantKind: FailureUnknown, wantMsg: "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			svc := &mockCompletionService{
				CompleteFunc: func(ctx context.Context, req CompletionRequest) (string, error) {
					calls++
					if calls == 1 {
						return "first", nil
					}
					return tt.reply, tt.err
				},
			}
			c := newTestClient(svc)
			if _, err := c.SendText(context.Background(), "one", domain.Summary{}); err != nil {
				t.Fatalf("first SendText() error = %v", err)
			}

			reply, err := c.SendText(context.Background(), "two", domain.Summary{})
			if reply != "" {
				t.Errorf("reply = %q, want empty", reply)
			}
			var ce *CompletionError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *CompletionError", err)
			}
			if ce.Kind != tt.wantKind || ce.Message != tt.wantMsg {
				t.Errorf("got (%s, %q), want (%s, %q)", ce.Kind, ce.Message, tt.wantKind, tt.wantMsg)
			}
			entries := c.Transcript()
			if len(entries) != 2 || entries[0].Role != RoleUser || entries[1].Role != RoleModel {
				t.Errorf("transcript = %+v, want the first pair only", entries)
			}
		})
	}
}

func TestSendImage(t *testing.T) {
	svc := &mockCompletionService{}
	c := newTestClient(svc)
	img := Image{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}

	if _, err := c.SendImage(context.Background(), img, ""); err != nil {
		t.Fatalf("SendImage() error = %v", err)
	}
	if _, err := c.SendImage(context.Background(), img, "  dinner with friends "); err != nil {
		t.Fatalf("SendImage() error = %v", err)
	}

	first := svc.requests[0]
	if first.Image == nil || first.Image.MIMEType != "image/jpeg" {
		t.Fatalf("first request image = %+v", first.Image)
	}
	if !strings.HasPrefix(first.Text, "[Today: 2026-02-24] Analyze this receipt") {
		t.Errorf("default prompt = %q", first.Text)
	}
	if got := svc.requests[1].Text; got != "[Today: 2026-02-24] dinner with friends" {
		t.Errorf("caption prompt = %q", got)
	}
	if len(svc.requests[1].History) != 2 {
		t.Errorf("second image request history len = %d, want 2", len(svc.requests[1].History))
	}

	want := []Entry{
		{Role: RoleUser, Text: "[image submitted]"},
		{Role: RoleModel, Text: "ok"},
		{Role: RoleUser, Text: "[image submitted] dinner with friends"},
		{Role: RoleModel, Text: "ok"},
	}
	if diff := cmp.Diff(want, c.Transcript()); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestReset(t *testing.T) {
	c := newTestClient(&mockCompletionService{})
	if _, err := c.SendText(context.Background(), "a", domain.Summary{}); err != nil {
		t.Fatal(err)
	}
	c.Reset()
	c.Reset()
	if n := len(c.Transcript()); n != 0 {
		t.Errorf("transcript len after Reset = %d, want 0", n)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := &mockCompletionService{}
	c := newTestClient(svc, WithHistoryLimit(1))
	for i := 0; i < 3; i++ {
		if _, err := c.SendText(context.Background(), "m", domain.Summary{}); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(svc.requests[2].History); got != 2 {
		t.Errorf("history sent = %d entries, want 2", got)
	}
	if got := len(c.Transcript()); got != 6 {
		t.Errorf("transcript len = %d, want 6", got)
	}
}

func TestSendText_Portuguese(t *testing.T) {
	svc := &mockCompletionService{}
	c := NewClient(svc, "", locale.For("pt-BR"), WithClock(func() time.Time { return testNow }), WithLocation(time.UTC))
	if _, err := c.SendText(context.Background(), "oi", domain.Summary{}); err != nil {
		t.Fatal(err)
	}
	want := `[Dados financeiros: {"balance":0.00,"income":0.00,"expense":0.00}] [Data de hoje: 2026-02-24]` + "\n\noi"
	if got := svc.requests[0].Text; got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
}
