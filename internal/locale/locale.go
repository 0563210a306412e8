// Package locale provides the user-facing strings and money formatting for
// the supported languages.
package locale

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Messages is the set of strings shown to the end user.
type Messages struct {
	Tag language.Tag

	// LanguageName is used in the system instruction ("always answer in ...").
	LanguageName string

	// Completion failures.
	RateLimited       string
	InvalidCredential string
	GenericError      string

	// Image exchanges.
	ImagePlaceholder string
	ReceiptPrompt    string

	// Action results.
	Received      string
	Sent          string
	GoalCreated   string
	BudgetCreated string
	ActionFailed  string

	// Context preamble labels.
	FinancialData string
	Today         string

	// Defaults for blocks that omit a name.
	DefaultDescription string
	DefaultGoalName    string
}

var portuguese = Messages{
	Tag:               language.BrazilianPortuguese,
	LanguageName:      "Brazilian Portuguese",
	RateLimited:       "⚠️ Limite da API atingido. Aguarde e tente novamente.",
	InvalidCredential: "🔑 Chave API inválida.",
	GenericError:      "Erro ao processar. Tente novamente.",
	ImagePlaceholder:  "[Imagem enviada]",
	ReceiptPrompt:     "Analise este comprovante/nota fiscal. Extraia os dados e registre usando um bloco [TRANSACTION].",
	Received:          "✅ Recebido: %s",
	Sent:              "✅ Enviado: %s",
	GoalCreated:       "✅ Meta: %s",
	BudgetCreated:     "✅ Limite de orçamento definido",
	ActionFailed:      "❌ Falhou",
	FinancialData:     "Dados financeiros",
	Today:             "Data de hoje",

	DefaultDescription: "Transação",
	DefaultGoalName:    "Meta",
}

var english = Messages{
	Tag:               language.AmericanEnglish,
	LanguageName:      "English",
	RateLimited:       "⚠️ API limit reached. Wait a moment and try again.",
	InvalidCredential: "🔑 Invalid API key.",
	GenericError:      "Something went wrong. Please try again.",
	ImagePlaceholder:  "[image submitted]",
	ReceiptPrompt:     "Analyze this receipt/invoice. Extract its data and record it using a [TRANSACTION] block.",
	Received:          "✅ Received: %s",
	Sent:              "✅ Sent: %s",
	GoalCreated:       "✅ Goal: %s",
	BudgetCreated:     "✅ Budget limit set",
	ActionFailed:      "❌ Failed",
	FinancialData:     "Financial data",
	Today:             "Today",

	DefaultDescription: "Transaction",
	DefaultGoalName:    "Goal",
}

var supported = []language.Tag{language.BrazilianPortuguese, language.AmericanEnglish}

var matcher = language.NewMatcher(supported)

// For returns the messages for the closest supported language to lang.
// Unparseable input falls back to Brazilian Portuguese.
func For(lang string) *Messages {
	tag, err := language.Parse(lang)
	if err != nil {
		m := portuguese
		return &m
	}
	_, idx, _ := matcher.Match(tag)
	var m Messages
	if supported[idx] == language.AmericanEnglish {
		m = english
	} else {
		m = portuguese
	}
	return &m
}

// Money formats amounts for one language and currency.
type Money struct {
	printer  *message.Printer
	symbol   string
	currency string
}

var symbols = map[string]string{
	"BRL": "R$ ",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// NewMoney returns a formatter for the given messages' language and an ISO 4217 currency code.
// Unknown currencies are printed with the code as prefix.
func NewMoney(m *Messages, currency string) *Money {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	symbol, ok := symbols[currency]
	if !ok {
		symbol = currency + " "
	}
	return &Money{
		printer:  message.NewPrinter(m.Tag),
		symbol:   symbol,
		currency: currency,
	}
}

// Format renders amount with two decimals and locale grouping, e.g. "R$ 1.234,50".
func (f *Money) Format(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	v, _ := amount.Round(2).Float64()
	return sign + f.symbol + f.printer.Sprintf("%.2f", v)
}

// Currency returns the ISO 4217 code.
func (f *Money) Currency() string {
	return f.currency
}
