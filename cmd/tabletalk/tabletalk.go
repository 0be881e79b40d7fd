// Package tabletalkcmder is the root tabletalk command.
package tabletalkcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/tabletalk/cmd/tabletalk/chat"
	configcmder "github.com/papercomputeco/tabletalk/cmd/tabletalk/config"
	ingestcmder "github.com/papercomputeco/tabletalk/cmd/tabletalk/ingest"
	searchcmder "github.com/papercomputeco/tabletalk/cmd/tabletalk/search"
	servecmder "github.com/papercomputeco/tabletalk/cmd/tabletalk/serve"
	versioncmder "github.com/papercomputeco/tabletalk/cmd/version"
)

const tabletalkLongDesc string = `tabletalk answers questions about restaurants from their customer reviews.

Build an evidence index, then serve the turn API:
  tabletalk ingest --csv reviews.csv --source kakaomap
  tabletalk serve

Talk to a running server:
  tabletalk chat                Interactive conversation
  tabletalk search "냉면 맛"     Show the reviews a question would retrieve`

const tabletalkShortDesc string = "tabletalk - restaurant review assistant"

func NewTabletalkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tabletalk",
		Short:         tabletalkShortDesc,
		Long:          tabletalkLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .tabletalk config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
