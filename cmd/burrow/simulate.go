package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/cuemby/burrow/pkg/balancer"
	"github.com/cuemby/burrow/pkg/definition"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Show how a load balancer spreads selections over a cluster",
	Long: `Load the workers of a cluster definition and run a number of selections
against each worker group, printing how often each worker was picked.

Examples:
  # Default strategy from the configuration
  burrow simulate -f cluster.yaml

  # Compare with fixed weights over 1000 selections of one group
  burrow simulate -f cluster.yaml --type FIXED_WEIGHTED_ROUND_ROBIN --group etl -n 1000`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringP("file", "f", "", "Cluster definition file (required)")
	simulateCmd.Flags().String("type", "", "Balancer type, overrides the configuration")
	simulateCmd.Flags().StringSlice("group", nil, "Worker groups to select from (default: every group)")
	simulateCmd.Flags().IntP("count", "n", 100, "Selections per group")
	_ = simulateCmd.MarkFlagRequired("file")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	typeName, _ := cmd.Flags().GetString("type")
	groups, _ := cmd.Flags().GetStringSlice("group")
	count, _ := cmd.Flags().GetInt("count")

	if count <= 0 {
		return fmt.Errorf("--count must be positive")
	}

	cluster, err := definition.LoadCluster(file)
	if err != nil {
		return err
	}

	cfg := appConfig.Balancer
	if typeName != "" {
		t, err := balancer.ParseType(typeName)
		if err != nil {
			return err
		}
		cfg.Type = t
	}

	reg := registry.New()
	defer reg.Close()
	if err := cluster.Apply(reg); err != nil {
		return err
	}

	lb, err := balancer.New(cfg, reg)
	if err != nil {
		return err
	}
	defer lb.Close()

	if len(groups) == 0 {
		groups = reg.GroupNames()
	}
	if len(groups) == 0 {
		return fmt.Errorf("cluster %s defines no worker groups", cluster.Name)
	}

	fmt.Printf("Simulating %d selections per group with %s\n\n", count, lb.Type())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tWORKER\tSELECTED\tSHARE")
	for _, group := range groups {
		picks := make(map[string]int)
		misses := 0
		for i := 0; i < count; i++ {
			addr, ok := lb.Select(group)
			if !ok {
				misses++
				continue
			}
			picks[addr]++
		}

		addrs := make([]string, 0, len(picks))
		for addr := range picks {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)

		for _, addr := range addrs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\n", group, addr, picks[addr], 100*float64(picks[addr])/float64(count))
		}
		if misses > 0 {
			fmt.Fprintf(w, "%s\t<none>\t%d\t%.1f%%\n", group, misses, 100*float64(misses)/float64(count))
		}
	}
	return w.Flush()
}
