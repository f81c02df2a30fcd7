package main

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/faciam-dev/guidecms/pkg/config"
	"github.com/faciam-dev/guidecms/sdk/client"
)

func newLoginCmd() *cobra.Command {
	var nonInteractive, insecure bool
	var username, postType string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save API endpoint and token into ~/.fieldctl/config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			root := cmd.Root().PersistentFlags()
			prof, _ := root.GetString("profile")
			if prof == "" {
				prof = "default"
			}
			url, _ := root.GetString("api-url")
			tok, _ := root.GetString("token")
			if !nonInteractive {
				if url == "" {
					url = prompt("API URL", cfg.Profiles[prof].APIURL)
				}
				if tok == "" && username == "" {
					tok = promptSecret("Token (Bearer)")
				}
			}
			if url == "" {
				return fmt.Errorf("api-url is required (provide flags or use interactive mode)")
			}
			url = strings.TrimSuffix(url, "/")
			if tok == "" && username != "" {
				if nonInteractive {
					return fmt.Errorf("password login needs a terminal")
				}
				tok, err = passwordLogin(cmd, url, username, promptSecret("Password"), insecure)
				if err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
			}
			if tok == "" {
				return fmt.Errorf("token is required")
			}
			p := config.Profile{Name: prof, APIURL: url, Token: tok, Insecure: insecure, PostType: postType}
			if err := p.Validate(); err != nil {
				return err
			}
			subject, err := whoami(cmd, url, tok, insecure)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			cfg.Put(p)
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as user %s. Active profile: %s\n", subject, prof)
			return nil
		},
	}
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Fail instead of prompting")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	cmd.Flags().StringVar(&username, "username", "", "Exchange username and password for a token")
	cmd.Flags().StringVar(&postType, "post-type", "", "Default post type for remote field commands")
	return cmd
}

func prompt(label, def string) string {
	fmt.Printf("%s [%s]: ", label, def)
	var s string
	if _, err := fmt.Scanln(&s); err != nil {
		return def
	}
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func promptSecret(label string) string {
	fmt.Printf("%s: ", label)
	b, _ := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return strings.TrimSpace(string(b))
}

func passwordLogin(cmd *cobra.Command, baseURL, username, password string, insecure bool) (string, error) {
	tok, err := client.New(baseURL, client.WithInsecure(insecure)).Login(cmd.Context(), username, password)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// whoami checks the token against /auth/me and returns the subject.
func whoami(cmd *cobra.Command, baseURL, token string, insecure bool) (string, error) {
	me, err := client.New(baseURL, client.WithToken(token), client.WithInsecure(insecure)).Me(cmd.Context())
	if err != nil {
		return "", err
	}
	if me.Subject == "" {
		return "", fmt.Errorf("token was not accepted")
	}
	return fmt.Sprintf("%s (%s)", me.Subject, strings.Join(me.Roles, ",")), nil
}
