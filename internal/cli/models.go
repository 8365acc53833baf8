package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the registered embedding models",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Models) == 0 {
			fmt.Println("No models registered.")
			return nil
		}

		fmt.Printf("%-20s %-10s %-6s %-10s %s\n", "NAME", "PROVIDER", "DIM", "SIZE (MB)", "LANGUAGES")
		for _, m := range cfg.Models {
			langs := strings.Join(m.Languages, ",")
			if langs == "" {
				langs = "-"
			}
			fmt.Printf("%-20s %-10s %-6d %-10.0f %s\n", m.Name, m.Provider, m.Dim, m.ApproxSizeMB, langs)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
