package display

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	fieldStyle = lipgloss.NewStyle().Bold(true)
)

// PanelRenderer writes each accepted message as a bordered panel.
type PanelRenderer struct {
	out io.Writer
}

func NewPanelRenderer(out io.Writer) *PanelRenderer {
	return &PanelRenderer{out: out}
}

func (r *PanelRenderer) Render(email *models.Email, accountLabel string) {
	received := email.ReceivedAt.Local().Format("2006-01-02 15:04:05")

	body := fmt.Sprintf("%s %s\n%s %s\n%s %s\n%s %s\n%s %s\n%s %s\n%s %s",
		fieldStyle.Render("Account:"), accountLabel,
		fieldStyle.Render("To:"), email.To,
		fieldStyle.Render("From:"), email.From,
		fieldStyle.Render("Subject:"), email.Subject,
		fieldStyle.Render("Date:"), email.DateHeader,
		fieldStyle.Render("Received:"), received,
		fieldStyle.Render("Snippet:"), email.Snippet,
	)

	panel := panelStyle.Render(titleStyle.Render("New Email Detected") + "\n" + body)
	fmt.Fprintln(r.out, panel)
}
