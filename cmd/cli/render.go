package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dvloznov/finbot/internal/chat"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/dvloznov/finbot/internal/locale"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	noticeStyle  = lipgloss.NewStyle().Faint(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	resultsStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

type renderer struct {
	out      io.Writer
	markdown *glamour.TermRenderer
}

func newRenderer(out io.Writer) *renderer {
	md, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	return &renderer{out: out, markdown: md}
}

func (r *renderer) banner(userID string, s domain.Summary, money *locale.Money) {
	fmt.Fprintln(r.out, titleStyle.Render("finbot")+noticeStyle.Render(" · "+userID))
	fmt.Fprintln(r.out, noticeStyle.Render(fmt.Sprintf("Balance %s · income %s · expenses %s",
		money.Format(s.Balance), money.Format(s.TotalIncome), money.Format(s.TotalExpense))))
	fmt.Fprintln(r.out, noticeStyle.Render("/new starts over, /quit exits"))
	fmt.Fprintln(r.out)
}

func (r *renderer) prompt() {
	fmt.Fprint(r.out, promptStyle.Render("you › "))
}

func (r *renderer) notice(msg string) {
	fmt.Fprintln(r.out, noticeStyle.Render(msg))
}

// exchange prints the assistant's reply and any action results.
func (r *renderer) exchange(ex chat.Exchange) {
	if ex.Failed {
		fmt.Fprintln(r.out, errorStyle.Render(ex.Assistant.Text))
		return
	}

	fmt.Fprint(r.out, r.renderMarkdown(ex.Assistant.Text))

	if len(ex.Assistant.Results) == 0 {
		return
	}
	lines := make([]string, 0, len(ex.Assistant.Results))
	for _, res := range ex.Assistant.Results {
		style := okStyle
		if !res.Succeeded {
			style = failStyle
		}
		lines = append(lines, style.Render(res.Summary))
	}
	fmt.Fprintln(r.out, resultsStyle.Render(strings.Join(lines, "\n")))
}

func (r *renderer) renderMarkdown(text string) string {
	if r.markdown == nil {
		return text + "\n"
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func (r *renderer) report(rep domain.MonthlyReport, money *locale.Money) {
	fmt.Fprintln(r.out, titleStyle.Render("Report "+rep.Month.String()))
	fmt.Fprintf(r.out, "Income   %s\n", money.Format(rep.Summary.TotalIncome))
	fmt.Fprintf(r.out, "Expenses %s\n", money.Format(rep.Summary.TotalExpense))
	fmt.Fprintf(r.out, "Balance  %s\n", money.Format(rep.Summary.Balance))

	if len(rep.ByCategory) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, titleStyle.Render("Spending by category"))
		for _, cs := range rep.ByCategory {
			fmt.Fprintf(r.out, "  %-16s %12s  (%d)\n", cs.Name, money.Format(cs.Total), cs.Count)
		}
	}

	if len(rep.Budgets) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, titleStyle.Render("Budgets"))
		for _, u := range rep.Budgets {
			name := u.Budget.CategoryID
			if u.Budget.Category != nil && u.Budget.Category.Name != "" {
				name = u.Budget.Category.Name
			}
			style := okStyle
			if u.Exceeded {
				style = failStyle
			}
			line := fmt.Sprintf("  %-16s %s / %s  %s%%", name, money.Format(u.Spent), money.Format(u.Budget.LimitAmount), u.Percent.StringFixed(1))
			fmt.Fprintln(r.out, style.Render(line))
		}
	}
}

func (r *renderer) categories(cats []domain.Category) {
	for _, c := range cats {
		fmt.Fprintf(r.out, "%s %-14s %-20s %s\n", c.Icon, c.ID, c.Name, noticeStyle.Render(string(c.Type)))
	}
}
