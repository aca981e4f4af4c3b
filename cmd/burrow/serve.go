package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/burrow/pkg/api"
	"github.com/cuemby/burrow/pkg/balancer"
	"github.com/cuemby/burrow/pkg/client"
	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/definition"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/health"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/probe"
	"github.com/cuemby/burrow/pkg/reconciler"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cluster registry and API",
	Long: `Run the cluster registry with heartbeat eviction, the gRPC API and the
metrics/health HTTP endpoints.

Worker group allowlists are restored from the data directory. When the
configuration has a worker section, the local machine's load is reported
as heartbeats, either to this process or to the server it names.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("cluster", "", "Cluster definition file to load at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	clusterFile, _ := cmd.Flags().GetString("cluster")
	cfg := appConfig
	logger := log.WithComponent("serve")

	fmt.Println("Starting burrow...")
	fmt.Printf("  Balancer: %s\n", cfg.Balancer.Type)
	fmt.Printf("  gRPC Address: %s\n", cfg.Server.GRPCAddr)
	fmt.Printf("  Metrics Address: %s\n", cfg.Server.MetricsAddr)
	fmt.Printf("  Data Directory: %s\n", cfg.Server.DataDir)
	fmt.Println()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	reg := registry.New(registry.WithEventBuffer(cfg.Registry.EventBuffer))
	defer reg.Close()

	groups, err := store.ListWorkerGroups()
	if err != nil {
		return fmt.Errorf("failed to restore worker groups: %w", err)
	}
	reg.OnWorkerGroupChange(groups)
	fmt.Printf("✓ Restored %d worker groups\n", len(groups))

	if clusterFile != "" {
		cluster, err := definition.LoadCluster(clusterFile)
		if err != nil {
			return err
		}
		reg.OnWorkerGroupAdd(cluster.Groups)
		for _, g := range cluster.Groups {
			if err := store.SaveWorkerGroup(g); err != nil {
				return fmt.Errorf("failed to save worker group %s: %w", g.Name, err)
			}
		}
		for _, w := range cluster.Workers {
			md, err := w.Metadata()
			if err != nil {
				return err
			}
			reg.OnServerAdded(md)
		}
		fmt.Printf("✓ Loaded cluster %s (%d workers)\n", cluster.Name, len(cluster.Workers))
	}
	metrics.RegisterComponent("registry", true, fmt.Sprintf("%d workers", len(reg.Servers())))

	lb, err := balancer.New(cfg.Balancer, reg)
	if err != nil {
		metrics.RegisterComponent("balancer", false, err.Error())
		return err
	}
	defer lb.Close()
	metrics.RegisterComponent("balancer", true, string(lb.Type()))

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	workerEvents := broker.Subscribe(events.EventWorkerEvicted, events.EventWorkerUnhealthy, events.EventWorkerRecovered)
	defer broker.Unsubscribe(workerEvents)
	go func() {
		for evt := range workerEvents {
			logger.Info().
				Str("event", string(evt.Type)).
				Str("worker_address", evt.Metadata["worker_address"]).
				Msg(evt.Message)
		}
	}()

	recon := reconciler.NewReconciler(reg, reconciler.Config{
		HeartbeatTimeout: cfg.Registry.HeartbeatTimeout,
		EvictInterval:    cfg.Registry.EvictInterval,
		Broker:           broker,
	})
	recon.Start()
	defer recon.Stop()
	fmt.Println("✓ Reconciler started")

	if cfg.Liveness.Enabled {
		monitor := health.NewMonitor(reg, cfg.Liveness, health.WithBroker(broker))
		monitor.Start()
		defer monitor.Stop()
		fmt.Printf("✓ Liveness checks started (%s every %s)\n", cfg.Liveness.Type, cfg.Liveness.Interval)
	}

	collector := metrics.NewCollector(reg)
	collector.Start()
	defer collector.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	healthServer := api.NewHealthServer(reg, store)
	go func() {
		if err := healthServer.Start(cfg.Server.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("health server error: %w", err)
		}
	}()
	defer healthServer.Stop()

	apiServer := api.NewServer(reg, store)
	go func() {
		if err := apiServer.Start(cfg.Server.GRPCAddr); err != nil {
			errCh <- fmt.Errorf("API server error: %w", err)
		}
	}()
	defer apiServer.Stop()
	fmt.Println("✓ API server started")

	if cfg.Worker != nil {
		closeProbe, err := startProbe(ctx, cfg.Worker, reg)
		if err != nil {
			return err
		}
		defer closeProbe()
		fmt.Printf("✓ Reporting load for %s\n", cfg.Worker.Address)
	}

	fmt.Println()
	fmt.Println("Burrow is running. Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		logger.Error().Err(err).Msg("Server failed")
		return err
	}

	fmt.Println("✓ Shutdown complete")
	return nil
}

// startProbe reports local load to reg, or to a remote server when the
// worker section names one. The returned func stops reporting.
func startProbe(ctx context.Context, w *config.WorkerConfig, reg *registry.Registry) (func(), error) {
	var sink probe.HeartbeatSink = reg
	var remote *client.Client
	if w.Server != "" {
		c, err := client.NewClient(w.Server)
		if err != nil {
			return nil, err
		}
		sink, remote = c, c
	}

	reporter := probe.NewReporter(probe.ReporterConfig{
		Address:    w.Address,
		Groups:     w.Groups,
		Weight:     w.Weight,
		Thresholds: w.Thresholds,
		Interval:   w.Interval,
	}, probe.NewSystemSampler(w.CPUWindow), sink)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		reporter.Run(ctx)
	}()

	return func() {
		cancel()
		<-done
		if remote != nil {
			remote.Close()
		}
	}, nil
}
