package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/finbot/internal/actions"
	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/executor"
	"github.com/dvloznov/finbot/internal/locale"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Completer sends user input to the model. *assistant.Client implements it.
type Completer interface {
	SendText(ctx context.Context, message string, snapshot domain.Summary) (string, error)
	SendImage(ctx context.Context, img assistant.Image, caption string) (string, error)
	Reset()
}

// ActionParser extracts actions from a reply. *actions.Parser implements it.
type ActionParser interface {
	Parse(text string) actions.Result
}

// ActionExecutor applies actions. *executor.Executor implements it.
type ActionExecutor interface {
	Execute(ctx context.Context, userID string, ledger *executor.Ledger, acts []actions.Action) []executor.Result
}

// LedgerReader loads the records a conversation keeps locally.
type LedgerReader interface {
	ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error)
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
	ListBudgets(ctx context.Context, userID string, month domain.Month) ([]domain.Budget, error)
}

// ReceiptArchive keeps submitted images and returns a reference to them.
type ReceiptArchive interface {
	Store(ctx context.Context, userID string, img assistant.Image) (string, error)
}

// Deps are the collaborators of a Conversation. Ledger and Archive are optional.
type Deps struct {
	Client   Completer
	Parser   ActionParser
	Executor ActionExecutor
	Ledger   LedgerReader
	Archive  ReceiptArchive
	Messages *locale.Messages
	Clock    func() time.Time
	Logger   zerolog.Logger
}

// Exchange is the outcome of one user input.
type Exchange struct {
	User      Turn `json:"user"`
	Assistant Turn `json:"assistant"`

	// Failed is set when the model could not be reached; Assistant.Text then
	// holds the user-facing error.
	Failed bool `json:"failed"`
}

// Conversation is one user's chat. Exchanges are serialized.
type Conversation struct {
	mu      sync.Mutex
	userID  string
	deps    Deps
	session *Session
	ledger  executor.Ledger
	now     func() time.Time
	log     zerolog.Logger
}

// New creates an empty conversation for userID.
func New(userID string, deps Deps) *Conversation {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Conversation{
		userID:  userID,
		deps:    deps,
		session: NewSession(),
		now:     now,
		log:     deps.Logger.With().Str("user_id", userID).Logger(),
	}
}

// UserID returns the owner of the conversation.
func (c *Conversation) UserID() string {
	return c.userID
}

// Refresh reloads the local ledger from the data service. It waits for an
// in-flight exchange so the reload sees that exchange's writes.
func (c *Conversation) Refresh(ctx context.Context) error {
	if c.deps.Ledger == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	month := domain.MonthOf(c.now())

	var ledger executor.Ledger
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := c.deps.Ledger.ListTransactions(gctx, c.userID, store.TransactionFilter{})
		if err != nil {
			return fmt.Errorf("listing transactions: %w", err)
		}
		ledger.Transactions = txs
		return nil
	})
	g.Go(func() error {
		goals, err := c.deps.Ledger.ListGoals(gctx, c.userID)
		if err != nil {
			return fmt.Errorf("listing goals: %w", err)
		}
		ledger.Goals = goals
		return nil
	})
	g.Go(func() error {
		budgets, err := c.deps.Ledger.ListBudgets(gctx, c.userID, month)
		if err != nil {
			return fmt.Errorf("listing budgets: %w", err)
		}
		ledger.Budgets = budgets
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("Refresh: %w", err)
	}
	c.ledger = ledger
	return nil
}

// Ledger returns a copy of the local records.
func (c *Conversation) Ledger() executor.Ledger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return executor.Ledger{
		Transactions: append([]domain.Transaction(nil), c.ledger.Transactions...),
		Goals:        append([]domain.Goal(nil), c.ledger.Goals...),
		Budgets:      append([]domain.Budget(nil), c.ledger.Budgets...),
	}
}

// Summary returns the current month's totals from the local ledger.
func (c *Conversation) Summary() domain.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Summarize(c.ledger.Transactions, domain.MonthOf(c.now()))
}

// SendText runs one text exchange.
func (c *Conversation) SendText(ctx context.Context, message string) Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()

	user := Turn{Role: RoleUser, Text: message, Timestamp: c.now()}
	c.session.Append(user)

	snapshot := domain.Summarize(c.ledger.Transactions, domain.MonthOf(c.now()))
	reply, err := c.deps.Client.SendText(ctx, message, snapshot)
	return c.finish(ctx, user, reply, err)
}

// SendImage runs one image exchange. When an archive is configured the image
// is stored first and referenced from the user turn; archive failures are logged.
func (c *Conversation) SendImage(ctx context.Context, img assistant.Image, caption string) Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := c.deps.Messages.ImagePlaceholder
	if caption = strings.TrimSpace(caption); caption != "" {
		text += " " + caption
	}
	user := Turn{Role: RoleUser, Text: text, Timestamp: c.now()}
	if c.deps.Archive != nil {
		ref, err := c.deps.Archive.Store(ctx, c.userID, img)
		if err != nil {
			c.log.Warn().Err(err).Str("mime_type", img.MIMEType).Msg("Archiving receipt")
		} else {
			user.ImageRef = ref
		}
	}
	c.session.Append(user)

	reply, err := c.deps.Client.SendImage(ctx, img, caption)
	return c.finish(ctx, user, reply, err)
}

// finish parses the reply, applies its actions and records the assistant turn.
// Callers hold c.mu.
func (c *Conversation) finish(ctx context.Context, user Turn, reply string, err error) Exchange {
	if err != nil {
		turn := Turn{
			Role:      RoleAssistant,
			Text:      assistant.UserMessage(err, c.deps.Messages.GenericError),
			Timestamp: c.now(),
		}
		c.session.Append(turn)
		return Exchange{User: user, Assistant: turn, Failed: true}
	}

	parsed := c.deps.Parser.Parse(reply)
	if parsed.Dropped > 0 {
		c.log.Debug().Int("dropped", parsed.Dropped).Msg("Dropped malformed action blocks")
	}

	var results []executor.Result
	if len(parsed.Actions) > 0 {
		results = c.deps.Executor.Execute(ctx, c.userID, &c.ledger, parsed.Actions)
	}

	turn := Turn{
		Role:      RoleAssistant,
		Text:      parsed.CleanText,
		Timestamp: c.now(),
		Results:   results,
	}
	c.session.Append(turn)
	return Exchange{User: user, Assistant: turn}
}

// NewConversation clears the visible log and the model transcript together.
func (c *Conversation) NewConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.Clear()
	c.deps.Client.Reset()
	c.log.Info().Msg("Conversation reset")
}

// Turns returns a copy of the visible log.
func (c *Conversation) Turns() []Turn {
	return c.session.Turns()
}
