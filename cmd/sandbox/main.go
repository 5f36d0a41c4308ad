package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tokenkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/sandbox"
)

func main() {

	buildinfo.PrintBuildData(os.Stderr)

	cfg, err := sandbox.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	// -mint <name> prints an operator token for the sandbox and exits.
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	mint := fs.String("mint", "", "print an operator token for name and exit")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-mint"})); err != nil {
		log.Fatalf("%v", err)
	}
	if *mint != "" {
		tok, err := sandbox.GenerateToken(*mint, *mint, []byte(cfg.SecretKey), cfg.OperatorTokenValidity)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(tok)
		return
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	if err := sandbox.NewServer(cfg, logger).Run(ctx); err != nil {
		logger.Error(ctx, "sandbox stopped", "err", err)
		os.Exit(1)
	}

}
