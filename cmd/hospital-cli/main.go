package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/PabloGalante/hospital-erp-agent/internal/app/agentflow"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/session"
	"github.com/PabloGalante/hospital-erp-agent/internal/bootstrap"
	"github.com/PabloGalante/hospital-erp-agent/internal/config"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
	"github.com/PabloGalante/hospital-erp-agent/internal/observability"
)

const help = `Commands:
  /key <api-key>  use a new API key
  /reset          forget the stored API key
  /audit [n]      show the last n audit entries
  /agents         list the agents
  /quit           exit`

var (
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5e9"))
	systemStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#f59e0b"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
)

func agentStyle(id domain.AgentID) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(domain.Profile(id).Color))
}

func main() {
	message := flag.String("m", "", "send a single message and exit")
	logFile := flag.String("log", "", "write JSON logs to this file")
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			os.Exit(1)
		}
		defer f.Close()
		observability.SetOutput(f)
	} else {
		observability.SetOutput(io.Discard)
	}

	ctx := context.Background()
	cfg := config.Load()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	defer app.Close()

	t := term.NewTerminal(os.Stdin, "> ")

	app.Conversation.Subscribe(agentflow.ListenerFunc(func(ev domain.ActivityEvent) {
		if ev.Type == domain.EventAgentChanged && ev.Agent != domain.AgentOrchestrator {
			p := domain.Profile(ev.Agent)
			fmt.Fprintln(t, mutedStyle.Render("  ↳ dispatching to ")+agentStyle(ev.Agent).Render(p.Name))
		}
	}))

	// Ctrl-C while a turn runs cancels the turn instead of the program.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT)
	go func() {
		for range sigs {
			if !app.Conversation.Cancel() {
				os.Exit(130)
			}
		}
	}()

	if err := app.Conversation.Start(ctx, cfg.APIKey); err != nil {
		fmt.Fprintln(t, systemStyle.Render(startupNotice(err)))
	}

	if *message != "" {
		send(ctx, t, app, *message)
		return
	}

	for _, m := range app.Conversation.Timeline(0) {
		render(t, m)
	}
	fmt.Fprintln(t, mutedStyle.Render("Type /help for commands."))

	for {
		line, err := readLine(t)
		if err != nil {
			if err != io.EOF {
				fmt.Fprintln(t, "Fatal:", err)
			}
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := command(ctx, t, app, line); quit {
				break
			}
			continue
		}

		send(ctx, t, app, line)
	}
}

// readLine reads one line in raw mode and restores the terminal afterwards,
// so signals reach the process while a turn runs.
func readLine(t *term.Terminal) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return t.ReadLine()
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}
	if width, height, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(width, height)
	}

	line, err := t.ReadLine()
	if restoreErr := term.Restore(fd, oldState); restoreErr != nil && err == nil {
		err = restoreErr
	}
	return line, err
}

func send(ctx context.Context, w io.Writer, app *bootstrap.App, text string) {
	res, err := app.Conversation.SendMessage(ctx, text)
	if err != nil {
		fmt.Fprintln(w, systemStyle.Render(err.Error()))
		return
	}
	for _, m := range res.Messages {
		if m.Role == domain.RoleUser {
			continue
		}
		render(w, m)
	}
}

func command(ctx context.Context, w io.Writer, app *bootstrap.App, line string) (quit bool) {
	fields := strings.Fields(line)

	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(w, help)

	case "/key":
		if len(fields) < 2 {
			fmt.Fprintln(w, "usage: /key <api-key>")
			return false
		}
		if err := app.Conversation.SubmitCredential(ctx, fields[1]); err != nil {
			fmt.Fprintln(w, systemStyle.Render(session.Describe(err)))
			return false
		}
		fmt.Fprintln(w, mutedStyle.Render("API key accepted."))

	case "/reset":
		if err := app.Conversation.ResetCredential(ctx); err != nil {
			fmt.Fprintln(w, systemStyle.Render(err.Error()))
			return false
		}
		fmt.Fprintln(w, mutedStyle.Render("API key cleared. Use /key to enter a new one."))

	case "/audit":
		limit := 0
		if len(fields) > 1 {
			fmt.Sscanf(fields[1], "%d", &limit)
		}
		entries, err := app.Audit.Recent(ctx, limit)
		if err != nil {
			fmt.Fprintln(w, systemStyle.Render(err.Error()))
			return false
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s  %-8s %s  %s: %s\n",
				mutedStyle.Render(e.Timestamp.Format("15:04:05")),
				e.Status,
				agentStyle(e.Agent).Render(string(e.Agent)),
				e.Action,
				e.Details,
			)
		}

	case "/agents":
		for _, p := range domain.Profiles() {
			fmt.Fprintf(w, "%s  %s\n", agentStyle(p.ID).Render(p.Name), mutedStyle.Render(p.Description))
		}

	default:
		fmt.Fprintln(w, "unknown command, try /help")
	}
	return false
}

func render(w io.Writer, m domain.Message) {
	ts := mutedStyle.Render(m.Timestamp.Format("15:04"))

	switch m.Role {
	case domain.RoleUser:
		fmt.Fprintf(w, "%s %s %s\n", ts, userStyle.Render("Anda:"), m.Content)
	case domain.RoleSystem:
		fmt.Fprintf(w, "%s %s\n", ts, systemStyle.Render(m.Content))
	default:
		p := domain.Profile(m.Agent)
		fmt.Fprintf(w, "%s %s\n%s\n", ts, agentStyle(m.Agent).Render(p.Name+":"), m.Content)
	}
}

func startupNotice(err error) string {
	if errors.Is(err, domain.ErrNoCredential) {
		return "No API key configured. Use /key <api-key> or set " + envKeyHint() + "."
	}
	return session.Describe(err)
}

func envKeyHint() string {
	if os.Getenv("HOSPITAL_MODEL_PROVIDER") == string(config.ProviderMock) || os.Getenv("HOSPITAL_MODEL_PROVIDER") == "" {
		return "HOSPITAL_API_KEY (any value works with the mock provider)"
	}
	return "HOSPITAL_API_KEY"
}
