package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cuemby/burrow/pkg/client"
	"github.com/cuemby/burrow/pkg/definition"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/spf13/cobra"
)

// Worker commands
var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Inspect workers of a running server",
}

var workersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetString("group")

		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		workers, err := c.ListWorkers(group)
		if err != nil {
			return fmt.Errorf("failed to list workers: %w", err)
		}
		if len(workers) == 0 {
			fmt.Println("No workers registered")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tSTATUS\tGROUPS\tCPU\tMEMORY\tQUEUE\tWEIGHT\tLAST HEARTBEAT")
		for _, md := range workers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%.0f%%\t%.0f%%\t%d\t%s\n",
				md.Address, md.Status, strings.Join(md.Groups, ","),
				100*md.CPUUsage, 100*md.MemoryUsage, 100*md.TaskThreadPoolUsage,
				md.Weight(), heartbeatAge(md))
		}
		return w.Flush()
	},
}

var workersRemoveCmd = &cobra.Command{
	Use:   "remove ADDRESS",
	Short: "Deregister a worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		removed, err := c.Deregister(args[0])
		if err != nil {
			return fmt.Errorf("failed to deregister worker: %w", err)
		}
		if !removed {
			return fmt.Errorf("worker %s is not registered", args[0])
		}
		fmt.Printf("✓ Worker %s removed\n", args[0])
		return nil
	},
}

func init() {
	workersCmd.PersistentFlags().String("server", "", "API server address (defaults to server.grpcAddr)")
	workersCmd.AddCommand(workersListCmd)
	workersCmd.AddCommand(workersRemoveCmd)

	workersListCmd.Flags().String("group", "", "Only list workers of this group")
}

// Group commands
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage worker group allowlists of a running server",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List worker groups and their dispatch health",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.ListGroups()
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}
		allow := make(map[string][]string, len(resp.Groups))
		for _, g := range resp.Groups {
			allow[g.Name] = g.Addresses
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tHEALTH\tALLOWLIST")
		for _, name := range resp.Names {
			status, err := c.GroupHealth(name)
			if err != nil {
				return fmt.Errorf("failed to check group %s: %w", name, err)
			}
			list := "-"
			if addrs, ok := allow[name]; ok {
				list = strings.Join(addrs, ",")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, status, list)
		}
		return w.Flush()
	},
}

var groupsApplyCmd = &cobra.Command{
	Use:   "apply -f cluster.yaml",
	Short: "Send the allowlists of a cluster definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		replace, _ := cmd.Flags().GetBool("replace")

		cluster, err := definition.LoadCluster(file)
		if err != nil {
			return err
		}

		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		groups, err := c.SetWorkerGroups(cluster.Groups, replace)
		if err != nil {
			return fmt.Errorf("failed to set worker groups: %w", err)
		}
		fmt.Printf("✓ %d worker groups configured\n", len(groups))

		for _, spec := range cluster.Workers {
			md, err := spec.Metadata()
			if err != nil {
				return err
			}
			if err := c.Heartbeat(md); err != nil {
				return fmt.Errorf("failed to register worker %s: %w", spec.Address, err)
			}
		}
		if len(cluster.Workers) > 0 {
			fmt.Printf("✓ %d workers registered\n", len(cluster.Workers))
		}
		return nil
	},
}

func init() {
	groupsCmd.PersistentFlags().String("server", "", "API server address (defaults to server.grpcAddr)")
	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsApplyCmd)

	groupsApplyCmd.Flags().StringP("file", "f", "", "Cluster definition file (required)")
	groupsApplyCmd.Flags().Bool("replace", false, "Replace every allowlist instead of merging")
	_ = groupsApplyCmd.MarkFlagRequired("file")
}

// connect dials the --server flag, or the configured gRPC address
func connect(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("server")
	if addr == "" {
		addr = appConfig.Server.GRPCAddr
	}
	c, err := client.NewClient(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return c, nil
}

func heartbeatAge(md *types.WorkerServerMetadata) string {
	if md.LastHeartbeat.IsZero() {
		return "static"
	}
	return time.Since(md.LastHeartbeat).Round(time.Second).String() + " ago"
}
