package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ftp_deploy/config"
	"ftp_deploy/internal/backup"
	"ftp_deploy/internal/deploy"
	"ftp_deploy/internal/ftpclient"
	"ftp_deploy/internal/logging"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args, config.LoadEnvironment(os.Getenv), stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	if err := logging.Init(cfg.Log); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	defer logging.Sync()
	log := logging.L()

	d := cfg.Deploy
	log.Info("deploying",
		zap.String("local", d.LocalDir),
		zap.String("target", fmt.Sprintf("%s@%s/%s", d.Credentials.User, d.Credentials.Host, d.StagePath())),
	)

	client := ftpclient.New(cfg.FTP, log.Named("ftp"))
	rep, err := deploy.New(d, client, log).Run(ctx)
	if err != nil {
		log.Error("deploy failed", zap.Error(err), zap.Stringer("failed_at", rep.FailedAt))
		return exitFailed
	}

	if rep.BackupSkipped {
		fmt.Fprintf(stdout, "Deployed %d entries to %s%s (no previous site to back up)\n", rep.Uploaded, d.Domain, backup.LiveDir)
	} else {
		fmt.Fprintf(stdout, "Deployed %d entries to %s%s, previous site kept as %s%s\n", rep.Uploaded, d.Domain, backup.LiveDir, d.Domain, rep.Backup)
	}
	return exitOK
}
