package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"go-storefront/client"
)

type rootOptions struct {
	apiURL    string
	token     string
	tokenFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Browse products, check out and manage the storefront catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("STOREFRONT_API", "http://localhost:4000"), "API base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("STOREFRONT_TOKEN"), "bearer token (defaults to the saved login)")
	cmd.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "where login saves the token")

	cmd.AddCommand(
		registerCommand(opts),
		loginCommand(opts),
		logoutCommand(opts),
		productsCommand(opts),
		searchCommand(opts),
		checkoutCommand(opts),
		ordersCommand(opts),
		productCommand(opts),
		adminCommand(),
	)
	return cmd
}

// client builds an API client, falling back to the saved token.
func (o *rootOptions) client() *client.Client {
	token := o.token
	if token == "" && o.tokenFile != "" {
		if b, err := os.ReadFile(o.tokenFile); err == nil {
			token = strings.TrimSpace(string(b))
		}
	}
	return client.New(o.apiURL, token)
}

func (o *rootOptions) saveToken(token string) error {
	if o.tokenFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(o.tokenFile), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	return os.WriteFile(o.tokenFile, []byte(token), 0o600)
}

func (o *rootOptions) forgetToken() error {
	if o.tokenFile == "" {
		return nil
	}
	if err := os.Remove(o.tokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "storefront", "token")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
