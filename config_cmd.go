package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd(), newConfigInitCmd(), newConfigSetCmd(), newConfigPathCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Write a commented default config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runConfigInit,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Set one config value, creating the file if needed",
		Long: `Set one config value. The file is validated before it is replaced, so a
bad value leaves the existing file untouched.

Examples:
  bookcat config set api.base_url https://catalog.example.com
  bookcat config set upload.allowed_types .pdf,.txt`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runConfigSet,
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the config file location",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			fmt.Fprintln(cc.Out, configFilePath(cc))

			return nil
		},
	}
}

// configFilePath applies the --config and BOOKCAT_CONFIG precedence without
// parsing the file.
func configFilePath(cc *CLIContext) string {
	return config.ConfigPath(config.ReadEnvOverrides(), config.CLIOverrides{ConfigPath: cc.Flags.ConfigPath})
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	if cc.Cfg == nil {
		return errors.New("no configuration loaded")
	}

	return cc.emit(cc.Cfg.Redacted(), false, func(w io.Writer) {
		if err := config.RenderEffective(cc.Cfg, w); err != nil {
			cc.Logger.Error("rendering config", "error", err)
		}
	})
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	path := configFilePath(cc)

	if err := config.WriteDefault(path); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%s already exists; edit it or use 'bookcat config set'", path)
		}

		return err
	}

	cc.Statusf("Wrote %s\n", path)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	path := configFilePath(cc)

	if err := config.SetKey(path, args[0], args[1]); err != nil {
		return err
	}

	cc.Logger.Info("config updated", "path", path, "key", args[0])
	cc.Statusf("Set %s in %s\n", args[0], path)

	return nil
}
