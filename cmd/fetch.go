package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var fetchQuery string

// fetchCmd runs one fetch pass outside the server and prints what was retained.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch once (every query, or a single --query) and print the retained posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		var accepted int
		if fetchQuery != "" {
			accepted = p.orchestrator.RunFetchCycle(ctx, fetchQuery)
		} else {
			accepted = p.orchestrator.RunInitialBurst(ctx)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "accepted %d new posts, %d retained\n\n", accepted, p.store.Len())
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TOKEN\tSCORE\tAUTHOR\tSCAM\tCREATED\tURL")
		for _, post := range p.store.Snapshot() {
			token := post.Token
			if token == "" {
				token = "-"
			}
			scam := "-"
			if post.Scam.IsSuspicious {
				scam = fmt.Sprintf("%d flags", len(post.Scam.MatchedPatterns))
			}
			fmt.Fprintf(tw, "%s\t%.1f\t@%s\t%s\t%s\t%s\n",
				token, post.QualityScore, post.Author.UserName, scam, post.CreatedAt.Format("2006-01-02 15:04"), post.URL)
		}
		return tw.Flush()
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchQuery, "query", "", "run a single fetch cycle for this search query")
	rootCmd.AddCommand(fetchCmd)
}
