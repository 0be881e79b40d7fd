// Package searchcmder provides the search command for querying the review
// evidence index of a running server.
package searchcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tabletalk/api/client"
	apisearch "github.com/papercomputeco/tabletalk/api/search"
	"github.com/papercomputeco/tabletalk/pkg/cliui"
	"github.com/papercomputeco/tabletalk/pkg/config"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/retrieval"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	queryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// retriever is the part of the API client the command needs.
type retriever interface {
	Retrieve(ctx context.Context, query string, k int) (*apisearch.Output, error)
}

type searchCommander struct {
	flags config.FlagSet

	query     string
	topK      int
	quiet     bool
	apiTarget string

	out    io.Writer
	search retriever

	debug  bool
	logger *slog.Logger
}

var searchFlags = config.FlagSet{
	config.FlagAPITarget: config.Flags[config.FlagAPITarget],
}

const searchLongDesc string = `Search restaurant reviews via the tabletalk API.

Runs the same retrieval the review handler uses and prints the matching
reviews, closest first. Lower distances are closer matches. Requires a running
tabletalk server with an evidence index.

Use --quiet to print only review ids, one per line.

Examples:
  tabletalk search "crispy dumplings"
  tabletalk search "slow service" --top 10
  tabletalk search "late night ramen" --api-target http://localhost:8081`

const searchShortDesc string = "Search restaurant reviews"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{
		flags: searchFlags,
	}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
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
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			c, err := client.New(cmder.apiTarget)
			if err != nil {
				return err
			}

			cmder.search = c
			cmder.out = cmd.OutOrStdout()
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(true),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", retrieval.DefaultK, "Number of reviews to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only review ids, one per line")

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.Debug("searching reviews", "query", c.query, "k", c.topK)

	output, err := c.search.Retrieve(ctx, c.query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(c.out, "No reviews found.")
		}
		return nil
	}

	if c.quiet {
		for _, citation := range output.Citations {
			fmt.Fprintln(c.out, citation.ID)
		}
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		headerStyle.Render("Reviews for:"),
		queryStyle.Render(fmt.Sprintf("%q", output.Query)),
	)
	cliui.WriteCitations(c.out, output.Citations)
	fmt.Fprintln(c.out)

	return nil
}
