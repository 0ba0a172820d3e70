package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/thortful"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newThortfulCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thortful",
		Short: "Thortful account commands",
	}

	cmd.AddCommand(newThortfulLoginCmd())
	return cmd
}

func newThortfulLoginCmd() *cobra.Command {
	var (
		configPath string
		email      string
		deviceID   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Thortful and cache the auth headers",
		Long: "Performs the two-step Thortful login (anonymous token, then account " +
			"credentials) and caches the resulting headers for thortful batch runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThortfulLogin(cmd, configPath, email, deviceID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().StringVar(&email, "email", "", "account email address")
	cmd.Flags().StringVar(&deviceID, "device-id", "", "device id to present (default built in)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func runThortfulLogin(cmd *cobra.Command, configPath, email, deviceID string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	creds := config.LoadEnv()
	if creds.ThortfulKey == "" || creds.ThortfulSecret == "" {
		return fmt.Errorf("%s and %s must be set", config.EnvThortfulKey, config.EnvThortfulSecret)
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	client, err := thortful.New(thortful.ClientOpts{
		APIKey:    creds.ThortfulKey,
		APISecret: creds.ThortfulSecret,
	})
	if err != nil {
		return err
	}

	auth, err := client.Authenticate(context.Background(), thortful.LoginOpts{
		Email:    email,
		Password: password,
		DeviceID: deviceID,
	})
	if err != nil {
		return err
	}

	path := authCachePath(cfg)
	if err := thortful.SaveAuth(path, auth); err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged in; auth headers cached at %s\n", path)
	return nil
}

// readPassword prompts on the terminal without echo, falling back to a plain
// stdin read when input is piped.
func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
