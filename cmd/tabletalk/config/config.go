// Package configcmder provides the config command for managing persistent
// tabletalk configuration stored in the .tabletalk/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tabletalk/pkg/cliui"
	"github.com/papercomputeco/tabletalk/pkg/config"
)

const configLongDesc string = `Manage persistent tabletalk configuration.

Configuration is stored as config.toml in the .tabletalk/ directory and
provides default values for command flags. Precedence, highest first:
CLI flags, TABLETALK_* environment variables, config.toml, built-in defaults.

Keys use dotted notation matching the TOML section structure, for example:
  llm.provider, llm.model, llm.temperature,
  embedding.provider, embedding.model,
  vector_store.provider, vector_store.index_dir,
  storage.driver, orchestrator.top_k, client.api_target

Use subcommands to get, set, or list configuration values:
  tabletalk config set <key> <value>    Set a configuration value
  tabletalk config get <key>            Get a configuration value
  tabletalk config list                 List all configuration values

Examples:
  tabletalk config set llm.provider ollama
  tabletalk config set orchestrator.call_timeout 45s
  tabletalk config get llm.model
  tabletalk config list`

const configShortDesc string = "Manage persistent tabletalk configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// mask hides all but the last four characters of a secret value.
func mask(key, value string) string {
	if value == "" || !config.IsSecretKey(key) {
		return value
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
