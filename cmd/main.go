package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "market-briefing",
	Short: "A CLI for the market briefing services",
	Long:  `Market Briefing collects financial news, reports and videos, ranks them and delivers a deduplicated digest.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
