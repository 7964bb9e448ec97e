package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/icp-research/internal/model"
)

var memoryJSON bool

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect the learning memory",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("research"); err != nil {
			return err
		}
		mem := openMemory(ctx, cfg)
		env := &pipelineEnv{Memory: mem}
		defer env.Close()

		return printStats(cmd.OutOrStdout(), mem.Stats(), memoryJSON)
	},
}

func printStats(w io.Writer, st model.MemoryStats, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(w, "Backend:           %s\n", st.Backend)
	fmt.Fprintf(w, "Research sessions: %d\n", st.TotalResearchCount)
	fmt.Fprintf(w, "Average quality:   %.1f%%\n", st.AverageQuality*100)
	fmt.Fprintf(w, "History entries:   %d\n", st.HistoryLength)
	if len(st.Industries) == 0 {
		fmt.Fprintln(w, "No industries on record.")
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDUSTRY\tSESSIONS\tPATTERNS")
	for _, name := range slices.Sorted(maps.Keys(st.Industries)) {
		ind := st.Industries[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\n", name, ind.Confidence, ind.Patterns)
	}
	return tw.Flush()
}

func init() {
	memoryStatsCmd.Flags().BoolVar(&memoryJSON, "json", false, "print JSON")
	memoryCmd.AddCommand(memoryStatsCmd)
	rootCmd.AddCommand(memoryCmd)
}
