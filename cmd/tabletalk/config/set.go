package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tabletalk/pkg/cliui"
	"github.com/papercomputeco/tabletalk/pkg/config"
	"github.com/papercomputeco/tabletalk/pkg/dotdir"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .tabletalk/ directory, creating ~/.tabletalk when no
directory exists yet. Numeric, boolean and duration keys are validated.

Examples:
  tabletalk config set llm.provider anthropic
  tabletalk config set llm.temperature 0.2
  tabletalk config set storage.ttl 72h`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd, args[0], args[1], configDir)
		},
		ValidArgsFunction: completeKeys,
	}

	return cmd
}

func runSet(cmd *cobra.Command, key, value, configDir string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfger.GetTarget() == "" {
		dir, err := dotdir.NewManager().Ensure(configDir)
		if err != nil {
			return err
		}
		if cfger, err = config.NewConfiger(dir); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	w := cmd.OutOrStdout()
	printTarget(w, cfger)

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(mask(key, value)),
	)
	return nil
}
