package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"imgcrawl/pkg/auth"
	"imgcrawl/pkg/config"
	"imgcrawl/pkg/logger"
	"imgcrawl/pkg/ui"
)

// newCredentialManager is replaced in tests
var newCredentialManager = func() (*auth.Manager, error) {
	return auth.NewManager("")
}

var proxyUser string

// proxyCmd represents the proxy command
var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Manage stored SOCKS5 proxy credentials",
	Long: `Manage SOCKS5 proxy logins so passwords stay out of config files.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

When --proxy (or network.proxy_address) names a proxy and no password is
configured, the stored login for that address is used.`,
}

// proxyLoginCmd represents the proxy login command
var proxyLoginCmd = &cobra.Command{
	Use:   "login <address>",
	Short: "Store the login for a proxy",
	Example: `  # Prompt for the password of user "crawler"
  imgcrawl proxy login 127.0.0.1:1080 --username crawler`,
	Args: cobra.ExactArgs(1),
	RunE: runProxyLogin,
}

// proxyLogoutCmd represents the proxy logout command
var proxyLogoutCmd = &cobra.Command{
	Use:   "logout <address>",
	Short: "Remove the stored login for a proxy",
	Args:  cobra.ExactArgs(1),
	RunE:  runProxyLogout,
}

// proxyShowCmd represents the proxy show command
var proxyShowCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show the stored login for a proxy with the password masked",
	Args:  cobra.ExactArgs(1),
	RunE:  runProxyShow,
}

func init() {
	rootCmd.AddCommand(proxyCmd)
	proxyCmd.AddCommand(proxyLoginCmd)
	proxyCmd.AddCommand(proxyLogoutCmd)
	proxyCmd.AddCommand(proxyShowCmd)

	proxyLoginCmd.Flags().StringVarP(&proxyUser, "username", "u", "", "proxy username (prompted when empty)")
}

func runProxyLogin(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	username := proxyUser
	if username == "" {
		fmt.Fprint(out, "Proxy username: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}

	fmt.Fprint(out, "Proxy password: ")
	password, err := readPassword(cmd.InOrStdin(), in)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	cred := &auth.ProxyCredential{Address: args[0], Username: username, Password: password}
	if err := manager.Store(cred); err != nil {
		return err
	}

	fmt.Fprintln(out, ui.Green(fmt.Sprintf("Stored login for %s@%s", username, args[0])))
	return nil
}

func runProxyLogout(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Green("Removed login for "+args[0]))
	return nil
}

func runProxyShow(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	cred, err := manager.Retrieve(args[0])
	if err != nil {
		return err
	}

	c := auth.Sanitize(cred)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", ui.Cyan("Address"), c.Address)
	fmt.Fprintf(out, "%s: %s\n", ui.Cyan("Username"), c.Username)
	fmt.Fprintf(out, "%s: %s\n", ui.Cyan("Password"), c.Password)
	fmt.Fprintf(out, "%s: %s\n", ui.Cyan("Updated"), c.LastModified.Format("2006-01-02 15:04"))
	return nil
}

// readPassword reads without echo from a terminal and falls back to a line from buffered
func readPassword(in io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password), nil
		}
	}

	line, err := buffered.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// resolveProxyLogin fills a missing proxy password from the credential store
func resolveProxyLogin(cfg *config.NetworkConfig, log logger.Logger) {
	if cfg.ProxyAddress == "" || cfg.ProxyPassword != "" {
		return
	}
	manager, err := newCredentialManager()
	if err != nil {
		log.WithError(err).Debug("Credential store unavailable")
		return
	}
	if manager.Resolve(cfg) {
		log.WithField("proxy", cfg.ProxyAddress).Debug("Using stored proxy login")
	}
}
