// Package config stores fieldctl profiles: which API a remote command talks
// to, with which token, and which post type it edits when none is named.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Profile is one named API endpoint. PostType is the content type remote
// field commands act on when none is given.
type Profile struct {
	Name     string `json:"name"`
	APIURL   string `json:"apiUrl"`
	Token    string `json:"token"`
	Insecure bool   `json:"insecure"`
	PostType string `json:"postType,omitempty"`
}

var postTypeKey = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks the endpoint scheme and the post type key.
func (p Profile) Validate() error {
	if !strings.HasPrefix(p.APIURL, "http://") && !strings.HasPrefix(p.APIURL, "https://") {
		return fmt.Errorf("profile %q: api url %q is not http(s)", p.Name, p.APIURL)
	}
	if p.PostType != "" && !postTypeKey.MatchString(p.PostType) {
		return fmt.Errorf("profile %q: post type %q is not a snake_case key", p.Name, p.PostType)
	}
	return nil
}

// File is the on-disk config document.
type File struct {
	Active   string             `json:"active"`
	Profiles map[string]Profile `json:"profiles"`
	Version  int                `json:"version"`
}

// Path returns ~/.fieldctl/config.json, creating the directory.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".fieldctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file. A missing file yields an empty config with
// the "default" profile active.
func Load() (*File, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{Active: "default", Profiles: map[string]Profile{}, Version: 1}, nil
		}
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	if f.Active == "" {
		f.Active = "default"
	}
	if f.Version == 0 {
		f.Version = 1
	}
	return &f, nil
}

// Save writes f atomically with owner-only permissions.
func Save(f *File) error {
	p, err := Path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Use makes name the active profile.
func (f *File) Use(name string) error {
	if _, ok := f.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	f.Active = name
	return nil
}

// Put stores p under its name and activates it.
func (f *File) Put(p Profile) {
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	f.Profiles[p.Name] = p
	f.Active = p.Name
}
