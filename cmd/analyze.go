package cmd

import (
	"strings"
	"time"

	"airshark/internal/analyzer"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type analysis struct {
	Token          string   `yaml:"token"`
	Hashtags       []string `yaml:"hashtags,flow"`
	Mentions       []string `yaml:"mentions,flow"`
	Suspicious     bool     `yaml:"suspicious"`
	MatchedRules   []string `yaml:"matched_rules"`
	ContentQuality float64  `yaml:"content_quality"`
	ReleaseHint    string   `yaml:"release_hint"`
}

// analyzeCmd runs the text heuristics on a single post text, for tuning rules.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Debug: run token, scam and release-date heuristics on a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		token, _ := analyzer.ExtractToken(text)
		scam := analyzer.DetectScamSignals(text)
		out := analysis{
			Token:          token,
			Hashtags:       analyzer.ExtractHashtags(text),
			Mentions:       analyzer.ExtractMentions(text),
			Suspicious:     scam.IsSuspicious,
			MatchedRules:   scam.MatchedPatterns,
			ContentQuality: analyzer.ContentQuality(text),
			ReleaseHint:    analyzer.ExtractReleaseHint(text, time.Now()),
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
