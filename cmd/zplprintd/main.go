// Package main runs the ZPL print daemon: a browser upload page and JSON API
// over HTTP plus the PrintService gRPC API, both backed by one dispatcher.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/zplprint"
	"github.com/opd-ai/zplprint/config"
	"github.com/opd-ai/zplprint/factory"
	"github.com/opd-ai/zplprint/rpc"
	"github.com/opd-ai/zplprint/server"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

// CLIConfig holds command-line overrides of the environment configuration.
type CLIConfig struct {
	httpAddr        string
	grpcAddr        string
	printerIP       string
	printerPort     int
	sendTimeout     time.Duration
	shutdownTimeout time.Duration
	logLevel        string
	logJSON         bool
	logFile         string
	simulate        bool
	help            bool
}

// parseCLIFlags parses args with defaults taken from base.
func parseCLIFlags(args []string, base config.Config, output io.Writer) (*CLIConfig, *flag.FlagSet, error) {
	cli := &CLIConfig{}
	fs := flag.NewFlagSet("zplprintd", flag.ContinueOnError)
	fs.SetOutput(output)

	// Listeners
	fs.StringVar(&cli.httpAddr, "http", base.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cli.grpcAddr, "grpc", base.GRPCAddr, "gRPC listen address (empty disables)")

	// Printer defaults shown on the upload page
	fs.StringVar(&cli.printerIP, "printer-ip", base.DefaultPrinterIP, "Default printer address")
	fs.IntVar(&cli.printerPort, "printer-port", base.DefaultPrinterPort, "Default printer port")

	// Timeouts
	fs.DurationVar(&cli.sendTimeout, "send-timeout", base.SendTimeout, "Upper bound for one print job")
	fs.DurationVar(&cli.shutdownTimeout, "shutdown-timeout", base.ShutdownTimeout, "Graceful shutdown timeout")

	// Logging
	fs.StringVar(&cli.logLevel, "log-level", base.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cli.logJSON, "log-json", base.LogJSON, "Log in JSON format")
	fs.StringVar(&cli.logFile, "log-file", base.LogFile, "Rotated log file (default: stderr)")

	fs.BoolVar(&cli.simulate, "simulate", false, "Record print jobs instead of sending them")
	fs.BoolVar(&cli.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return cli, fs, nil
}

// toConfig merges the flags over base.
func (c *CLIConfig) toConfig(base config.Config) config.Config {
	base.HTTPAddr = c.httpAddr
	base.GRPCAddr = c.grpcAddr
	base.DefaultPrinterIP = c.printerIP
	base.DefaultPrinterPort = c.printerPort
	base.SendTimeout = c.sendTimeout
	base.ShutdownTimeout = c.shutdownTimeout
	base.LogLevel = c.logLevel
	base.LogJSON = c.logJSON
	base.LogFile = c.logFile
	return base
}

// printUsage prints the usage information.
func printUsage(fs *flag.FlagSet) {
	fmt.Println("ZPL Print Daemon")
	fmt.Println("================")
	fmt.Println()
	fmt.Println("Serves a label upload page and a gRPC API that send ZPL documents to")
	fmt.Println("network printers (raw TCP, port 9100) or serial printers (9600-8-N-1).")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options]\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fs.SetOutput(os.Stdout)
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  ZPL_HTTP_ADDR, ZPL_GRPC_ADDR, ZPL_DEFAULT_PRINTER_IP, ZPL_DEFAULT_PRINTER_PORT,")
	fmt.Println("  ZPL_SEND_TIMEOUT, ZPL_SHUTDOWN_TIMEOUT, ZPL_LOG_LEVEL, ZPL_LOG_JSON, ZPL_LOG_FILE,")
	fmt.Println("  ZPL_LOG_MAX_SIZE_MB, ZPL_LOG_MAX_BACKUPS, ZPL_LOG_MAX_AGE_DAYS,")
	fmt.Println("  ZPL_USE_SIMULATION, ZPL_CONNECT_TIMEOUT, ZPL_WRITE_TIMEOUT")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  # Serve on the default ports\n")
	fmt.Printf("  %s\n", os.Args[0])
	fmt.Println()
	fmt.Printf("  # HTTP only, dry run\n")
	fmt.Printf("  %s -grpc '' -simulate\n", os.Args[0])
}

// setupSignalHandling cancels ctx on SIGINT or SIGTERM.
func setupSignalHandling(cancel context.CancelFunc, logger logrus.FieldLogger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.WithFields(logrus.Fields{
			"function": "setupSignalHandling",
			"signal":   sig.String(),
		}).Info("Received signal, initiating graceful shutdown")
		cancel()
	}()
}

// newPrinter builds the dispatcher from the factory and wraps it.
func newPrinter(cfg config.Config, simulate bool, logger logrus.FieldLogger) (*zplprint.Printer, error) {
	f := factory.NewDispatcherFactory(logger)
	if simulate {
		f.SwitchToSimulation()
	}
	dispatcher, err := f.CreateDispatcher()
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	return zplprint.New(dispatcher,
		zplprint.WithLogger(logger),
		zplprint.WithSendTimeout(cfg.SendTimeout),
	), nil
}

// run serves HTTP and, when enabled, gRPC until ctx is cancelled or a
// listener fails.
func run(ctx context.Context, cfg config.Config, printer *zplprint.Printer, logger logrus.FieldLogger) error {
	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.New(printer, server.Defaults{
			PrinterIP:   cfg.DefaultPrinterIP,
			PrinterPort: cfg.DefaultPrinterPort,
		}, logger).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var (
		grpcSrv *grpc.Server
		grpcLis net.Listener
	)
	if cfg.GRPCEnabled() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
		}
		grpcLis = lis
		grpcSrv = grpc.NewServer()
		rpc.Register(grpcSrv, printer, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"function": "run",
			"addr":     cfg.HTTPAddr,
		}).Info("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http %s: %w", cfg.HTTPAddr, err)
		}
		return nil
	})

	if grpcSrv != nil {
		g.Go(func() error {
			logger.WithFields(logrus.Fields{
				"function": "run",
				"addr":     grpcLis.Addr().String(),
			}).Info("gRPC server listening")
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve grpc %s: %w", cfg.GRPCAddr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpSrv, grpcSrv, cfg.ShutdownTimeout, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// shutdown stops both servers within timeout.
func shutdown(httpSrv *http.Server, grpcSrv *grpc.Server, timeout time.Duration, logger logrus.FieldLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if grpcSrv != nil {
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			grpcSrv.Stop()
		}
	}

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.WithFields(logrus.Fields{
			"function": "shutdown",
			"error":    err.Error(),
		}).Warn("HTTP shutdown incomplete")
		return fmt.Errorf("shutdown http: %w", err)
	}

	logger.WithField("function", "shutdown").Info("Servers stopped")
	return nil
}

func main() {
	base, err := config.Load(logrus.StandardLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	cli, fs, err := parseCLIFlags(os.Args[1:], base, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if cli.help {
		printUsage(fs)
		os.Exit(0)
	}

	cfg := cli.toConfig(base)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(1)
	}

	logger, logCloser, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	printer, err := newPrinter(cfg, cli.simulate, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to start")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel, logger)

	if err := run(ctx, cfg, printer, logger); err != nil {
		logger.WithError(err).Error("Daemon stopped with error")
		logCloser.Close()
		os.Exit(1)
	}
}
