package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

// Snapshot is everything one status screen shows.
type Snapshot struct {
	State domain.SessionState
	// Balances is nil when no balance query was made.
	Balances *domain.BalanceReport
	// Notice is an optional line shown under the status, such as an
	// extension install hint.
	Notice string
}

type RenderOptions struct {
	Now time.Time
	// Fixed shows every fractional digit of each amount.
	Fixed bool
}

func renderView(snapshot Snapshot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("PollRush Wallet"),
		s.header.Render(statusLine(snapshot.State)),
	}
	if snapshot.Notice != "" {
		lines = append(lines, s.warning.Render(snapshot.Notice))
	}

	identity, ok := snapshot.State.Identity()
	if !ok {
		lines = append(lines, s.section.Render(s.empty.Render("No wallet connected.")))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(renderIdentity(identity, opts, s)))

	if snapshot.Balances != nil {
		lines = append(lines, s.section.Render(renderBalances(*snapshot.Balances, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func statusLine(state domain.SessionState) string {
	switch state.Status {
	case domain.StatusConnecting:
		return fmt.Sprintf("status: connecting to %s", state.Pending.Label())
	case domain.StatusRestoring:
		return fmt.Sprintf("status: restoring %s session", state.Pending.Label())
	case domain.StatusDisconnecting:
		return "status: disconnecting"
	case domain.StatusAuthenticated:
		return "status: connected"
	default:
		return "status: not connected"
	}
}

func renderIdentity(identity domain.Identity, opts RenderOptions, s styles) string {
	parts := []string{
		s.principal.Render(string(identity.Principal)),
		field(s, "provider", identity.Provider.Label()),
	}
	if identity.AccountID != string(identity.Principal) {
		parts = append(parts, field(s, "account", identity.AccountID))
	}
	if !identity.ConnectedAt.IsZero() {
		parts = append(parts, field(s, "connected", relative(identity.ConnectedAt, opts.Now)))
	}
	if !identity.ExpiresAt.IsZero() {
		parts = append(parts, expiryLine(identity, opts.Now, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func expiryLine(identity domain.Identity, now time.Time, s styles) string {
	if !now.IsZero() && identity.Expired(now) {
		return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render("expires:"), " ", s.warning.Render("expired"))
	}

	line := field(s, "expires", relative(identity.ExpiresAt, now))
	if !now.IsZero() && identity.ExpiresAt.Sub(now) < time.Hour {
		line += " " + s.warning.Render("[soon]")
	}
	return line
}

func renderBalances(report domain.BalanceReport, opts RenderOptions, s styles) string {
	header := "balances"
	switch {
	case report.Unavailable():
		header = "balances (unavailable)"
	case report.Partial():
		header = "balances (partial)"
	}

	rows := []string{s.header.Render(header)}
	for _, balance := range report.Balances {
		amount := balance.Amount.String()
		if opts.Fixed {
			amount = balance.Amount.Fixed()
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, s.symbol.Render(balance.Symbol), s.amount.Render(amount)))
	}
	for _, failure := range report.Failures {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, s.symbol.Render(failure.Symbol), s.unavailable.Render("unavailable")))
	}
	if len(rows) == 1 {
		rows = append(rows, s.empty.Render("No ledgers configured."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func field(s styles, name, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(name+":"), " ", s.detail.Render(value))
}

func relative(t, now time.Time) string {
	if now.IsZero() {
		return t.Format(time.RFC3339)
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
