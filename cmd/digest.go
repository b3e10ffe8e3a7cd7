package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	digestForce   bool
	digestNoFetch bool
)

// digestCmd writes today's digest, fetching first when nothing is retained yet.
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Write today's markdown digest of the best airdrop posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		p, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		if p.store.Len() == 0 && !digestNoFetch {
			p.orchestrator.RunInitialBurst(ctx)
		}

		path, written, err := p.digestBuilder(cfg).Write(ctx, digestForce)
		if err != nil {
			return err
		}
		if written {
			fmt.Fprintf(cmd.OutOrStdout(), "digest written: %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "digest unchanged: %s\n", path)
		}
		return nil
	},
}

func init() {
	digestCmd.Flags().BoolVar(&digestForce, "force", false, "rewrite today's digest even if its token list is unchanged")
	digestCmd.Flags().BoolVar(&digestNoFetch, "no-fetch", false, "use only cached posts, never call the provider")
	rootCmd.AddCommand(digestCmd)
}
