package cmd

import "github.com/spf13/cobra"

// redisCmd groups utilities for the durable post cache.
var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis cache utilities",
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
