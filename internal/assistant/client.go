// Package assistant talks to the language model on behalf of one chat session.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/locale"
	"github.com/rs/zerolog"
)

// Client sends messages to the model with a context preamble and keeps the
// transcript used as conversation history. Callers serialize exchanges.
type Client struct {
	service    CompletionService
	system     string
	msgs       *locale.Messages
	transcript *Transcript
	maxPairs   int
	now        func() time.Time
	location   *time.Location
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the time source for the date in the preamble.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLocation sets the time zone used for today's date.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

// WithHistoryLimit bounds how many past exchanges are sent as history.
// The transcript itself keeps everything until Reset.
func WithHistoryLimit(pairs int) Option {
	return func(c *Client) { c.maxPairs = pairs }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client with an empty transcript.
func NewClient(service CompletionService, systemInstruction string, msgs *locale.Messages, opts ...Option) *Client {
	c := &Client{
		service:    service,
		system:     systemInstruction,
		msgs:       msgs,
		transcript: NewTranscript(),
		now:        time.Now,
		location:   time.Local,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendText sends message prefixed with the financial snapshot and today's
// date. The reply is returned verbatim. Errors are *CompletionError.
func (c *Client) SendText(ctx context.Context, message string, snapshot domain.Summary) (string, error) {
	prompt := c.preamble(snapshot) + "\n\n" + message
	return c.exchange(ctx, CompletionRequest{Text: prompt}, prompt)
}

// SendImage sends img with caption, or with the default receipt instruction
// when caption is empty. The transcript records a placeholder instead of the image.
func (c *Client) SendImage(ctx context.Context, img Image, caption string) (string, error) {
	caption = strings.TrimSpace(caption)
	instruction := caption
	if instruction == "" {
		instruction = c.msgs.ReceiptPrompt
	}
	prompt := c.todayTag() + " " + instruction

	recorded := c.msgs.ImagePlaceholder
	if caption != "" {
		recorded += " " + caption
	}
	return c.exchange(ctx, CompletionRequest{Text: prompt, Image: &img}, recorded)
}

// Reset clears the transcript.
func (c *Client) Reset() {
	c.transcript.Reset()
}

// Transcript returns a copy of the history.
func (c *Client) Transcript() []Entry {
	return c.transcript.Entries()
}

func (c *Client) exchange(ctx context.Context, req CompletionRequest, recorded string) (string, error) {
	req.SystemInstruction = c.system
	req.History = c.transcript.Window(c.maxPairs)

	start := c.now()
	reply, err := c.service.Complete(ctx, req)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = fmt.Errorf("empty reply")
	}
	if err != nil {
		ce := Classify(err, c.msgs)
		c.log.Warn().
			Err(err).
			Str("failure", ce.Kind.String()).
			Bool("image", req.Image != nil).
			Msg("Completion failed")
		return "", ce
	}

	c.transcript.Append(recorded, reply)
	c.log.Debug().
		Bool("image", req.Image != nil).
		Int("history_entries", len(req.History)).
		Int("reply_chars", len(reply)).
		Dur("duration", c.now().Sub(start)).
		Msg("Completion succeeded")
	return reply, nil
}

func (c *Client) today() string {
	return c.now().In(c.location).Format("2006-01-02")
}

func (c *Client) todayTag() string {
	return fmt.Sprintf("[%s: %s]", c.msgs.Today, c.today())
}

type snapshotJSON struct {
	Balance json.Number `json:"balance"`
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
}

// preamble renders the single context line, e.g.
// [Financial data: {"balance":10.00,"income":20.00,"expense":10.00}] [Today: 2026-02-24]
func (c *Client) preamble(s domain.Summary) string {
	data, _ := json.Marshal(snapshotJSON{
		Balance: json.Number(s.Balance.StringFixed(2)),
		Income:  json.Number(s.TotalIncome.StringFixed(2)),
		Expense: json.Number(s.TotalExpense.StringFixed(2)),
	})
	return fmt.Sprintf("[%s: %s] %s", c.msgs.FinancialData, data, c.todayTag())
}
