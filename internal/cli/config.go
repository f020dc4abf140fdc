package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/nhle/daily-docket/internal/credential"
	"github.com/nhle/daily-docket/internal/model"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialise configuration and credentials",
	}
	cmd.AddCommand(
		newConfigShowCmd(g),
		newConfigPathCmd(g),
		newConfigInitCmd(g),
		newSetCredentialCmd(),
		newDeleteCredentialCmd(),
	)
	return cmd
}

func newConfigShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file, defaults and DOCKET_ variables)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(configPath(g))
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigPathCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configPath(g))
		},
	}
}

func newConfigInitCmd(g *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath(g)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := model.SaveConfig(path, model.DefaultAppConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func checkCredentialKey(key string) error {
	if !slices.Contains(credential.Keys, key) {
		return fmt.Errorf("unknown credential %q (known: %s)", key, strings.Join(credential.Keys, ", "))
	}
	return nil
}

func newSetCredentialCmd() *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set-credential KEY",
		Short: "Store a secret in the system keyring",
		Long: `Store a secret in the system keyring. KEY is one of:

  imap-password   password for mail.username on mail.imap_host
  webhook-token   bearer token sent with reminder.webhook_url

Without --value the secret is read from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := checkCredentialKey(key); err != nil {
				return err
			}
			if value == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading %s from stdin: %w", key, err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			if value == "" {
				return fmt.Errorf("%s must not be empty", key)
			}
			if err := storeCredential(key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", key)
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "the secret (visible in shell history; prefer stdin)")
	return cmd
}

func newDeleteCredentialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-credential KEY",
		Short: "Remove a secret from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkCredentialKey(args[0]); err != nil {
				return err
			}
			if err := removeCredential(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
