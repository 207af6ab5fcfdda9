package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var githubToken string

// Shared color palette for command output.
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var rootCmd = &cobra.Command{
	Use:   "codehawk",
	Short: "codehawk is the command-line interface for the CodeHawk review service.",
	Long:  `A CLI for the CodeHawk review service: index repositories into the vector store, run one-off pull-request reviews, and browse stored reviews.`,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token used for API access")

	if err := viper.BindPFlag("GITHUB_TOKEN", rootCmd.PersistentFlags().Lookup("github-token")); err != nil {
		slog.Error("error binding flag", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// resolveToken returns the token from the flag or the environment.
func resolveToken() string {
	if githubToken != "" {
		return githubToken
	}
	return viper.GetString("GITHUB_TOKEN")
}
