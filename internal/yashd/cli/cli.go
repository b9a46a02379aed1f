// Package cli defines the yashd daemon CLI.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"yashd/internal/log"
	"yashd/internal/validator"
	"yashd/internal/yashd"
	"yashd/internal/yashd/acceptor"
	"yashd/internal/yashd/pidfile"
)

var logger = log.New(os.Stdout, "cli")

var (
	portFlag    = flag.Int("p", yashd.DefaultPort, "port to listen on (1024-65535)")
	portFlagLV  = flag.Int("port", yashd.DefaultPort, "port to listen on (1024-65535)")
	verboseFlag = flag.Bool("v", false, "enable verbose (info-level) logging")
	verboseLV   = flag.Bool("verbose", false, "enable verbose logging")
	helpFlag    = flag.Bool("h", false, "show usage")
	helpLV      = flag.Bool("help", false, "show usage")
)

// Run is the entrypoint of the yashd daemon CLI. It returns the process
// exit code defined by §6.
func Run() int {
	flag.Parse()

	if *helpFlag || *helpLV {
		usage()
		return yashd.ExitOK
	}

	port := yashd.DefaultPort
	if isSet("p") {
		port = *portFlag
	} else if isSet("port") {
		port = *portFlagLV
	}
	valid := validator.New()
	valid.Assert(port >= yashd.MinPort && port <= yashd.MaxPort, fmt.Sprintf("port %d out of range [%d, %d]", port, yashd.MinPort, yashd.MaxPort))
	if err := valid.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "yashd: %s\n", err)
		return yashd.ExitErrArg
	}

	if *verboseFlag || *verboseLV {
		log.SetVerbose(true)
	}

	logFile, err := os.OpenFile(yashd.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		logger.Errorf("open log file %s; error: %v", yashd.LogFile, err)
		return yashd.ExitErrDaemon
	}
	defer logFile.Close()
	os.Stderr = logFile

	pf, err := pidfile.Acquire(yashd.PidFile)
	if err != nil {
		logger.Errorf("acquire pid file; error: %v", err)
		return yashd.ExitErrDaemon
	}
	defer pf.Release(yashd.PidFile)

	a, err := acceptor.Listen(port, logFile)
	if err != nil {
		logger.Errorf("listen on port %d; error: %v", port, err)
		return yashd.ExitErrSocket
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Infof("shutdown signal received")
		cancel()
	}()

	logger.Infof("listening; addr: %s", a.Addr())
	if err := a.Serve(ctx); err != nil {
		logger.Errorf("serve; error: %v", err)
		return yashd.ExitErrThread
	}

	return yashd.ExitOK
}

func isSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func usage() {
	var b strings.Builder
	b.WriteString(`
yashd serves a networked shell over TCP: clients connect, run commands,
and manage foreground/background jobs through a small text protocol.

Usage:
  yashd [flags]

Flags:
  -p, --port     port to listen on, 1024-65535 (default 3826)
  -v, --verbose  enable verbose logging
  -h, --help     show this message
`)
	fmt.Fprint(os.Stdout, b.String())
}
