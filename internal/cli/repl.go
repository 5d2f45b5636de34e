package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/parley-ai/parley"
	"github.com/parley-ai/parley/internal/presentation/tui"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/session"
)

// RunOptions configures the interactive shell.
type RunOptions struct {
	AgentName  string
	SessionID  string
	Fresh      bool
	ConfigPath string
	Logger     *slog.Logger

	// Input and Output default to stdin/stdout. Overridable for tests.
	Input  io.Reader
	Output io.Writer
}

// Run starts the interactive tool shell for one agent. It stands in for an
// external conversational layer: each line is a tool invocation, and every
// result is the string that layer would speak.
func Run(ctx context.Context, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	in := opts.Input
	if in == nil {
		in = os.Stdin
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	agent, err := NewAgent(opts.AgentName, cfg.DataDir, logger, domain.LifecycleHooks{})
	if err != nil {
		return err
	}

	store, err := NewSnapshotStore(cfg.Session, logger)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, session.WithLogger(logger))

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = session.NewID()
	}
	if opts.Fresh {
		if err := sessions.Delete(ctx, sessionID); err != nil {
			logger.Warn("failed to reset session", "session_id", sessionID, "err", err)
		}
	}
	if snap, err := sessions.Load(ctx, sessionID); err == nil {
		if err := agent.Restore(snap); err != nil {
			logger.Warn("failed to restore session, starting fresh", "session_id", sessionID, "err", err)
		} else {
			logger.Info("session resumed", "session_id", sessionID)
		}
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("failed to load session: %w", err)
	}

	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	render := tui.NewRenderer()

	if interactive {
		tui.PrintBanner()
		printIntro(out, agent, render, sessionID)
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "help":
			printHelp(out)
			continue
		case "tools":
			printTools(out, agent)
			continue
		case "reset":
			agent.Reset(ctx)
			if err := saveSnapshot(ctx, sessions, sessionID, agent); err != nil {
				logger.Error("failed to save session", "session_id", sessionID, "err", err)
			}
			fmt.Fprintln(out, "State reset.")
			continue
		}

		name, args, err := parseInvocation(line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		result, err := agent.Registry().Dispatch(ctx, name, args)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		if interactive {
			if rendered, err := render(result); err == nil {
				fmt.Fprint(out, rendered)
			} else {
				fmt.Fprintln(out, result)
			}
		} else {
			fmt.Fprintln(out, result)
		}

		if err := saveSnapshot(ctx, sessions, sessionID, agent); err != nil {
			logger.Error("failed to save session", "session_id", sessionID, "err", err)
		}
	}
	return scanner.Err()
}

// parseInvocation splits a "tool_name {json args}" line.
func parseInvocation(line string) (string, map[string]any, error) {
	name := line
	rawArgs := ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		name = line[:i]
		rawArgs = strings.TrimSpace(line[i:])
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}
	return name, args, nil
}

func saveSnapshot(ctx context.Context, sessions *session.Manager, id string, agent parley.Agent) error {
	snap, err := agent.Snapshot()
	if err != nil {
		return err
	}
	return sessions.Save(ctx, id, snap)
}

func printIntro(out io.Writer, agent parley.Agent, render func(string) (string, error), sessionID string) {
	intro := fmt.Sprintf("# %s\n\n%s\n", agent.Name(), agent.Instructions())
	if rendered, err := render(intro); err == nil {
		fmt.Fprint(out, rendered)
	} else {
		fmt.Fprintln(out, intro)
	}
	fmt.Fprintf(out, "Session: %s\n", sessionID)
	fmt.Fprintln(out, `Type "tools" to list operations, "help" for commands.`)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `Commands:
  <tool> {json}   invoke a tool, e.g. add_item {"item": "espresso"}
  tools           list the agent's tools
  reset           discard the conversation state
  exit            leave the shell`)
}

func printTools(out io.Writer, agent parley.Agent) {
	for _, t := range agent.Registry().Tools() {
		fmt.Fprintf(out, "  %-24s %s\n", t.Name, t.Description)
	}
}
