// Package chatcmder provides the chat command, an interactive client for a
// running tabletalk server.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/tabletalk/api/client"
	"github.com/papercomputeco/tabletalk/pkg/cliui"
	"github.com/papercomputeco/tabletalk/pkg/config"
	"github.com/papercomputeco/tabletalk/pkg/dotdir"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("tabletalk> ")
)

// turner is the part of the API client the REPL needs.
type turner interface {
	Turn(ctx context.Context, threadID, userInput string) (*orchestrator.TurnResult, error)
}

type chatCommander struct {
	flags config.FlagSet

	apiTarget string
	fresh     bool
	raw       bool
	debug     bool
	configDir string

	in     io.Reader
	out    io.Writer
	turns  turner
	ddm    *dotdir.Manager
	logger *slog.Logger
}

var chatFlags = config.FlagSet{
	config.FlagAPITarget: config.Flags[config.FlagAPITarget],
}

const chatLongDesc string = `Start an interactive chat session with a running tabletalk server.

Every message is one turn. The server decides whether to answer from general
knowledge, from a restaurant's details or from its reviews, and review
answers list the reviews they cite.

The thread id is kept in .tabletalk/thread.json so the next "tabletalk chat"
picks the conversation back up. The history itself lives on the server.

Commands:
  /new     start a new thread
  /thread  print the current thread id
  /exit    quit (Ctrl+D also works)

Examples:
  tabletalk chat
  tabletalk chat --new
  tabletalk chat --api-target http://localhost:8081`

const chatShortDesc string = "Chat with a running tabletalk server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		flags: chatFlags,
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{
				config.FlagAPITarget,
			})

			cmder.apiTarget = v.GetString("client.api_target")
			cmder.configDir = configDir
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			c, err := client.New(cmder.apiTarget)
			if err != nil {
				return err
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.turns = c
			cmder.ddm = dotdir.NewManager()
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(true),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new thread instead of resuming the saved one")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print answers without markdown rendering")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	threadID, err := c.startThread()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Server:"),
		cliui.ValueStyle.Render(c.apiTarget),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Ask about a restaurant and press Enter. /new for a new thread, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue

		case "/exit", "/quit":
			fmt.Fprintln(c.out)
			return nil

		case "/new":
			if err := c.ddm.ClearThread(c.configDir); err != nil {
				return err
			}
			threadID = ""
			fmt.Fprintf(c.out, "  %s New thread\n\n", cliui.DimStyle.Render("●"))
			continue

		case "/thread":
			if threadID == "" {
				fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("no thread yet"))
			} else {
				fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Thread:"), cliui.ValueStyle.Render(threadID))
			}
			continue
		}

		result, err := c.turn(ctx, threadID, input)
		if err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		threadID = result.ThreadID
		if err := c.ddm.SaveThread(&dotdir.ThreadState{
			ThreadID:  result.ThreadID,
			Subject:   result.Subject,
			UpdatedAt: time.Now().UTC(),
		}, c.configDir); err != nil {
			c.logger.Warn("could not save thread state", "error", err)
		}

		c.printResult(result)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// startThread returns the saved thread id, or "" for a new thread.
func (c *chatCommander) startThread() (string, error) {
	if c.fresh {
		if err := c.ddm.ClearThread(c.configDir); err != nil {
			return "", err
		}
	}

	state, err := c.ddm.LoadThread(c.configDir)
	if err != nil {
		return "", fmt.Errorf("loading thread state: %w", err)
	}

	fmt.Fprintln(c.out)
	if state == nil {
		fmt.Fprintf(c.out, "  %s New thread\n", cliui.DimStyle.Render("●"))
		return "", nil
	}

	resumed := fmt.Sprintf("  %s Resuming thread %s", cliui.SuccessMark, cliui.ValueStyle.Render(state.ThreadID))
	if state.Subject != "" {
		resumed += " " + cliui.DimStyle.Render("("+state.Subject+")")
	}
	fmt.Fprintln(c.out, resumed)
	return state.ThreadID, nil
}

func (c *chatCommander) turn(ctx context.Context, threadID, input string) (*orchestrator.TurnResult, error) {
	var result *orchestrator.TurnResult
	err := cliui.Step(c.out, "Thinking", func() error {
		var err error
		result, err = c.turns.Turn(ctx, threadID, input)
		return err
	})
	if err == nil {
		return result, nil
	}

	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		c.logger.Debug("turn rejected", "status", statusErr.StatusCode, "message", statusErr.Message)
	}
	return nil, err
}

func (c *chatCommander) printResult(result *orchestrator.TurnResult) {
	fmt.Fprintf(c.out, "\n%s%s\n", assistantPrompt, cliui.RouteBadge(string(result.Route), result.Subject))

	answer := result.Response
	if c.renderMarkdown() {
		rendered, err := cliui.RenderMarkdown(answer)
		if err != nil {
			c.logger.Debug("markdown rendering failed", "error", err)
		}
		answer = rendered
	} else {
		answer += "\n"
	}
	fmt.Fprint(c.out, answer)

	if len(result.Citations) > 0 {
		fmt.Fprintf(c.out, "\n  %s\n", cliui.DimStyle.Render("Cited reviews"))
		cliui.WriteCitations(c.out, result.Citations)
	}
	fmt.Fprintln(c.out)
}

// renderMarkdown reports whether answers go through glamour: only when
// writing to a terminal.
func (c *chatCommander) renderMarkdown() bool {
	if c.raw {
		return false
	}
	f, ok := c.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
