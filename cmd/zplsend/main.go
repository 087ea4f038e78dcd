// Package main sends one ZPL file to a label printer, either directly over
// TCP or a serial port, or through a remote zplprintd over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/opd-ai/zplprint"
	"github.com/opd-ai/zplprint/factory"
	"github.com/opd-ai/zplprint/rpc"
	"github.com/opd-ai/zplprint/transport"
	"github.com/opd-ai/zplprint/zpl"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/status"
)

// Exit codes.
const (
	exitOK          = 0
	exitSendFailed  = 1
	exitUsage       = 2
	exitInvalidFile = 3
)

// CLI configuration
type CLIConfig struct {
	file      string
	host      string
	port      uint
	serial    string
	remote    string
	timeout   time.Duration
	listPorts bool
	logLevel  string
	help      bool
}

// parseCLIFlags parses args into a CLIConfig.
func parseCLIFlags(args []string, output io.Writer) (*CLIConfig, *flag.FlagSet, error) {
	config := &CLIConfig{}
	fs := flag.NewFlagSet("zplsend", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&config.file, "file", "", "ZPL file to print (.txt)")
	fs.StringVar(&config.host, "host", "", "Network printer address")
	fs.UintVar(&config.port, "port", transport.DefaultNetworkPort, "Network printer port")
	fs.StringVar(&config.serial, "serial", "", "Serial port name (selects serial delivery)")
	fs.StringVar(&config.remote, "remote", "", "Send through a zplprintd gRPC address instead of locally")
	fs.DurationVar(&config.timeout, "timeout", 30*time.Second, "Overall timeout")
	fs.BoolVar(&config.listPorts, "list-ports", false, "List serial ports and exit")
	fs.StringVar(&config.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.BoolVar(&config.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return config, fs, nil
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if _, err := logrus.ParseLevel(config.logLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if config.listPorts {
		return nil
	}
	if config.file == "" {
		return fmt.Errorf("a file is required")
	}
	if config.serial == "" && config.host == "" {
		return fmt.Errorf("either -host or -serial is required")
	}
	if config.serial != "" && config.host != "" {
		return fmt.Errorf("-host and -serial are mutually exclusive")
	}
	if config.port == 0 || config.port > transport.MaxNetworkPort {
		return fmt.Errorf("invalid printer port: must be between 1 and 65535")
	}
	return nil
}

// printUsage prints the usage information.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "ZPL Send")
	fmt.Fprintln(w, "========")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Validates a ZPL label file (^XA ... ^XZ) and sends it to a printer.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s -file label.txt -host 192.168.1.100 [-port 9100]\n", os.Args[0])
	fmt.Fprintf(w, "  %s -file label.txt -serial /dev/ttyUSB0\n", os.Args[0])
	fmt.Fprintf(w, "  %s -list-ports [-remote host:9090]\n", os.Args[0])
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// newLogger builds a text logger writing to w.
func newLogger(level string, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, config *CLIConfig, stdout, stderr io.Writer) int {
	logger := newLogger(config.logLevel, stderr)

	ctx, cancel := context.WithTimeout(ctx, config.timeout)
	defer cancel()

	if config.listPorts {
		return listPorts(ctx, config, stdout, stderr, logger)
	}

	content, err := readLabel(config.file)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.file, err)
		return exitInvalidFile
	}
	logger.WithFields(logrus.Fields{
		"function": "run",
		"file":     config.file,
		"labels":   zpl.CountLabels(content),
	}).Info("Label file validated")

	var ok bool
	var message string
	if config.remote != "" {
		ok, message, err = sendRemote(ctx, config, content)
		if err != nil {
			fmt.Fprintf(stderr, "remote print failed: %s\n", status.Convert(err).Message())
			return exitSendFailed
		}
	} else {
		ok, message, err = sendLocal(ctx, config, content, logger)
		if err != nil {
			fmt.Fprintf(stderr, "print failed: %v\n", err)
			return exitUsage
		}
	}

	if !ok {
		fmt.Fprintf(stderr, "print failed: %s\n", message)
		return exitSendFailed
	}
	fmt.Fprintln(stdout, message)
	return exitOK
}

// readLabel opens and validates a label file.
func readLabel(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return zpl.Prepare(f, filepath.Base(path))
}

// sendLocal delivers content through a dispatcher built from ZPL_* settings.
func sendLocal(ctx context.Context, config *CLIConfig, content string, logger logrus.FieldLogger) (bool, string, error) {
	dispatcher, err := factory.NewDispatcherFactory(logger).CreateDispatcher()
	if err != nil {
		return false, "", err
	}
	printer := zplprint.New(dispatcher, zplprint.WithLogger(logger))
	result := printer.Send(ctx, zplprint.Request{
		Payload:    content,
		UseSerial:  config.serial != "",
		Host:       config.host,
		Port:       int(config.port),
		SerialPort: config.serial,
	})
	return result.OK, result.Message, nil
}

// sendRemote delivers content through a zplprintd PrintService.
func sendRemote(ctx context.Context, config *CLIConfig, content string) (bool, string, error) {
	client, err := rpc.Dial(config.remote)
	if err != nil {
		return false, "", err
	}
	defer client.Close()

	reply, err := client.Print(ctx, &rpc.PrintRequest{
		ZPLContent:    content,
		UseSerialPort: config.serial != "",
		PrinterIP:     config.host,
		PrinterPort:   int(config.port),
		SerialPort:    config.serial,
	})
	if err != nil {
		return false, "", err
	}
	return reply.Success, reply.Message, nil
}

// listPorts prints one serial port per line.
func listPorts(ctx context.Context, config *CLIConfig, stdout, stderr io.Writer, logger logrus.FieldLogger) int {
	var ports []string
	if config.remote != "" {
		client, err := rpc.Dial(config.remote)
		if err != nil {
			fmt.Fprintf(stderr, "remote list failed: %v\n", err)
			return exitSendFailed
		}
		defer client.Close()

		reply, err := client.ListPorts(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "remote list failed: %s\n", status.Convert(err).Message())
			return exitSendFailed
		}
		ports = reply.Ports
	} else {
		ports = transport.NewPortEnumerator(logger).ListPorts()
	}

	for _, p := range ports {
		fmt.Fprintln(stdout, p)
	}
	return exitOK
}

// main is the entry point for the sender.
func main() {
	config, fs, err := parseCLIFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		os.Exit(exitUsage)
	}

	if config.help {
		printUsage(fs, os.Stdout)
		os.Exit(exitOK)
	}

	if err := validateCLIConfig(config); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(exitUsage)
	}

	os.Exit(run(context.Background(), config, os.Stdout, os.Stderr))
}
