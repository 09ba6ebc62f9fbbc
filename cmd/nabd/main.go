// Command nabd is the resident rabbit daemon: it loads config, acquires
// the single-instance lock, builds the capability set (real or virtual
// hardware), and supervises the front-end listener, scheduler actor and
// sensor dispatcher until signaled to stop, all under a single
// errgroup-supervised goroutine set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/internal/choreo"
	"github.com/nabaztag-core/nabd/internal/choreotime"
	"github.com/nabaztag-core/nabd/internal/config"
	"github.com/nabaztag-core/nabd/internal/discovery"
	"github.com/nabaztag-core/nabd/internal/frontend"
	"github.com/nabaztag-core/nabd/internal/lock"
	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/resource"
	"github.com/nabaztag-core/nabd/internal/scheduler"
	"github.com/nabaztag-core/nabd/internal/sensor"
	"github.com/nabaztag-core/nabd/internal/sensorpolicy"
	_ "github.com/nabaztag-core/nabd/internal/sensorpolicy/policy/default"
	"github.com/nabaztag-core/nabd/internal/virtual"
	"github.com/nabaztag-core/nabd/internal/writer"
)

var (
	configPath string
	lockPath   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nabd",
	Short: "Resident daemon arbitrating a networked rabbit's LEDs, ears, audio and sensors",
	RunE:  runServe,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "/etc/nabd/nabd.yaml", "path to nabd.yaml")
	rootCmd.Flags().StringVar(&lockPath, "lock", "/var/run/nabd.lock", "single-instance lock file path")
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := zap.NewProduction()
	if err != nil {
		log = zap.NewNop()
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fl := lock.New(lockPath)
	if err := fl.TryLock(); err != nil {
		return err
	}
	defer fl.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	registry := writer.NewRegistry()
	resolver := resource.NewFSResolver(cfg.ResourcePaths, 1)
	engine := choreo.New(choreotime.Real{})

	var caps *actuator.Set
	var virtualBackend *virtual.Backend
	if cfg.HardwareBackend == "virtual" {
		virtualBackend = virtual.New(log)
		caps = virtualBackend.Capabilities()
	} else {
		// Real hardware drivers are out of this module's scope; an empty
		// Set means every capability-gated operation degrades gracefully
		// (spec §1: audio input and RFID are already optional, and every
		// actuator call is nil-checked).
		caps = &actuator.Set{}
	}

	policy, err := sensorpolicy.New(sensorpolicy.Config{Name: "default"})
	if err != nil {
		return fmt.Errorf("build sensor policy: %w", err)
	}

	shutdownFn := func(mode protocol.ShutdownMode) {
		log.Info("shutdown requested", zap.String("mode", string(mode)))
		cancel()
	}
	hooks := frontend.NewHooks(registry, log, shutdownFn)
	watcher := config.NewWatcher(configPath, cfg, log)
	sched := scheduler.New(caps, engine, resolver, hooks, choreotime.Real{}, watcher, log, cfg.QueueDepth, cfg.DefaultLocale)

	wakeOwner := uuid.New()
	dispatcher := sensor.New(caps, registry, sched, policy, cfg.RFIDPictures, wakeOwner, log)

	srv := frontend.New(cfg.ListenAddr, cfg.QueueDepth, registry, sched, choreotime.Real{}, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Start(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		return watcher.Watch(gctx, func(config.Config) {
			sched.Submit(scheduler.WorkItem{Kind: scheduler.KindConfigUpdate, Origin: wakeOwner, ConfigService: "nabd"})
		})
	})
	if cfg.MDNSEnabled {
		g.Go(func() error {
			port := portOf(cfg.ListenAddr)
			cleanup, err := discovery.Advertise("nabd", port, cfg.HardwareBackend, log)
			if err != nil {
				log.Warn("mdns advertise failed", zap.Error(err))
				return nil
			}
			<-gctx.Done()
			cleanup()
			return nil
		})
	}
	if virtualBackend != nil {
		g.Go(func() error { return virtualBackend.Serve(gctx, viewerAddr(cfg.ListenAddr)) })
	}

	log.Info("nabd started", zap.String("listen", cfg.ListenAddr), zap.String("backend", cfg.HardwareBackend))
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func portOf(addr string) int {
	_, portStr, err := splitHostPort(addr)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return addr, "", fmt.Errorf("no port in %q", addr)
	}
	return addr[:idx], addr[idx+1:], nil
}

func viewerAddr(listenAddr string) string {
	host, portStr, err := splitHostPort(listenAddr)
	if err != nil {
		return "127.0.0.1:10544"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "127.0.0.1:10544"
	}
	return fmt.Sprintf("%s:%d", host, port+1)
}
