package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Environment variables consulted between flags and the config file.
const (
	EnvAPIURL   = "GUIDE_CMS_API_URL"
	EnvToken    = "GUIDE_CMS_TOKEN"
	EnvPostType = "GUIDE_CMS_POST_TYPE"
)

// Resolved is the API endpoint a remote command talks to.
type Resolved struct {
	APIURL   string
	Token    string
	Profile  string
	Insecure bool
	// PostType is the default content type; empty when neither the
	// environment nor the profile names one.
	PostType string
}

// PostTypeOr returns explicit when set, else the resolved default.
func (r Resolved) PostTypeOr(explicit string) (string, error) {
	if pt := firstNonEmpty(explicit, r.PostType); pt != "" {
		return pt, nil
	}
	return "", fmt.Errorf("post type not set (arg/%s/profile)", EnvPostType)
}

// Resolve picks the API URL and token from flags, then the environment,
// then the selected profile.
func Resolve(cmd *cobra.Command) (Resolved, error) {
	flagURL, _ := cmd.Root().PersistentFlags().GetString("api-url")
	flagToken, _ := cmd.Root().PersistentFlags().GetString("token")

	cfg, err := Load()
	if err != nil {
		return Resolved{}, fmt.Errorf("load config: %w", err)
	}
	prof := cfg.Active
	if p, _ := cmd.Root().PersistentFlags().GetString("profile"); p != "" {
		prof = p
	}
	cp := cfg.Profiles[prof]

	url := firstNonEmpty(flagURL, os.Getenv(EnvAPIURL), cp.APIURL)
	tok := firstNonEmpty(flagToken, os.Getenv(EnvToken), cp.Token)
	if url == "" {
		return Resolved{}, fmt.Errorf("API URL not set (flag/env/config)")
	}
	if tok == "" {
		return Resolved{}, fmt.Errorf("token not set (flag/env/config)")
	}

	return Resolved{
		APIURL:   strings.TrimSuffix(url, "/"),
		Token:    tok,
		Profile:  prof,
		Insecure: cp.Insecure,
		PostType: firstNonEmpty(os.Getenv(EnvPostType), cp.PostType),
	}, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
