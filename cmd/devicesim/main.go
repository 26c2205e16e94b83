// Command devicesim runs simulated device endpoints for local testing.
//
// Each address in -thermometers gets a UDP thermometer and each address in
// -sockets gets a gRPC power socket. Flags can also be set from the
// environment with a DEVICESIM_ prefix (DEVICESIM_SOCKETS=...).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/peterbourgon/ff/v3"

	"github.com/nerrad567/smarthome-hub/internal/endpoint"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/logging"
)

var version = "dev"

// options holds the parsed command line.
type options struct {
	Thermometers []string
	Sockets      []string
	LogLevel     string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseOptions reads flags and DEVICESIM_* environment variables.
func parseOptions(args []string) (options, error) {
	fs := flag.NewFlagSet("devicesim", flag.ContinueOnError)
	thermometers := fs.String("thermometers", "127.0.0.1:4001", "comma-separated UDP addresses for thermometer simulators")
	sockets := fs.String("sockets", "127.0.0.1:5001", "comma-separated TCP addresses for socket simulators")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("DEVICESIM")); err != nil {
		return options{}, fmt.Errorf("parsing arguments: %w", err)
	}

	opts := options{
		Thermometers: splitList(*thermometers),
		Sockets:      splitList(*sockets),
		LogLevel:     *logLevel,
	}
	if len(opts.Thermometers) == 0 && len(opts.Sockets) == 0 {
		return options{}, errors.New("nothing to simulate: set -thermometers or -sockets")
	}
	return opts, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// run starts every simulator and blocks until ctx is cancelled.
func run(ctx context.Context, opts options) error {
	log := logging.New(config.LoggingConfig{Level: opts.LogLevel, Format: "text", Output: "stdout"}, version)

	var thermometers []*endpoint.ThermometerServer
	for _, addr := range opts.Thermometers {
		srv, err := endpoint.ListenThermometer(addr)
		if err != nil {
			closeThermometers(thermometers)
			return fmt.Errorf("thermometer %s: %w", addr, err)
		}
		srv.SetLogger(log.With("simulator", "thermometer", "address", addr))
		thermometers = append(thermometers, srv)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(opts.Thermometers)+len(opts.Sockets))

	for _, srv := range thermometers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(ctx); err != nil {
				errCh <- fmt.Errorf("thermometer %s: %w", srv.Addr(), err)
			}
		}()
	}

	sockets := make([]*endpoint.SocketServer, 0, len(opts.Sockets))
	for _, addr := range opts.Sockets {
		srv := endpoint.NewSocketServer()
		srv.SetLogger(log.With("simulator", "socket", "address", addr))
		sockets = append(sockets, srv)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(addr); err != nil {
				errCh <- fmt.Errorf("socket %s: %w", addr, err)
			}
		}()
	}

	log.Info("simulators running",
		"thermometers", len(thermometers),
		"sockets", len(sockets),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info("stopping simulators")
	closeThermometers(thermometers)
	for _, srv := range sockets {
		srv.Stop()
	}
	wg.Wait()

	return runErr
}

func closeThermometers(servers []*endpoint.ThermometerServer) {
	for _, srv := range servers {
		srv.Close() //nolint:errcheck // Shutting down
	}
}
