package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var sourceDescriptions = map[string]string{
	"usaswimming": "USA Swimming individual times search, one search per state",
	"nisca":       "NISCA national high school record listings",
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Lists the sources swimscrape can collect from.",
	Run: func(cmd *cobra.Command, args []string) {
		names := make([]string, 0, len(adapterFactories))
		for name := range adapterFactories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-14s %s\n", name, sourceDescriptions[name])
		}
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
