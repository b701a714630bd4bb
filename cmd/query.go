package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-sourcing/procure-cli/internal/nlq"
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Show how a natural-language query is interpreted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := nlq.Parse(strings.Join(args, " "), time.Now())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
