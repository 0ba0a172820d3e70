package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for API credentials. Credentials never live in
// the YAML config; they come from the process environment or a .env file.
const (
	EnvSegmindKey     = "REACT_APP_SEGMIND_API_KEY"
	EnvThortfulKey    = "THORTFUL_API_KEY"
	EnvThortfulSecret = "THORTFUL_API_SECRET"
	EnvSlackToken     = "SLACK_BOT_TOKEN"
	EnvDiscordToken   = "DISCORD_BOT_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
)

// Credentials holds all third-party secrets resolved from the environment.
type Credentials struct {
	SegmindKey     string
	ThortfulKey    string
	ThortfulSecret string
	SlackToken     string
	DiscordToken   string
	GitHubToken    string
}

// LoadEnv reads a .env file (if present) into the process environment and
// returns the resolved credentials. A missing .env file is not an error;
// individual commands decide which credentials they require.
func LoadEnv() *Credentials {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
	return &Credentials{
		SegmindKey:     os.Getenv(EnvSegmindKey),
		ThortfulKey:    os.Getenv(EnvThortfulKey),
		ThortfulSecret: os.Getenv(EnvThortfulSecret),
		SlackToken:     os.Getenv(EnvSlackToken),
		DiscordToken:   os.Getenv(EnvDiscordToken),
		GitHubToken:    os.Getenv(EnvGitHubToken),
	}
}

// RequireSegmind returns the Segmind API key or an actionable error.
func (c *Credentials) RequireSegmind() (string, error) {
	if c.SegmindKey == "" {
		return "", fmt.Errorf("config: %s is not set (add it to .env or the environment)", EnvSegmindKey)
	}
	return c.SegmindKey, nil
}

// RequireGitHub returns the GitHub token or an actionable error.
func (c *Credentials) RequireGitHub() (string, error) {
	if c.GitHubToken == "" {
		return "", fmt.Errorf("config: %s is not set (add it to .env or the environment)", EnvGitHubToken)
	}
	return c.GitHubToken, nil
}
