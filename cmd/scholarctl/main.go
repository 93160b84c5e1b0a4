// Package main implements scholarctl, the command line client for the
// confidential scholarship registry: submit encrypted applications, list and
// verify records, and run the watch daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ScholarShield/scholarship-client/internal/chain"
	"github.com/ScholarShield/scholarship-client/internal/config"
	"github.com/ScholarShield/scholarship-client/internal/fhe"
	"github.com/ScholarShield/scholarship-client/internal/notify"
	"github.com/ScholarShield/scholarship-client/internal/orchestrator"
	"github.com/ScholarShield/scholarship-client/internal/registry"
	"github.com/ScholarShield/scholarship-client/internal/scholar"
	"github.com/ScholarShield/scholarship-client/internal/session"
	"github.com/ScholarShield/scholarship-client/internal/watch"
	"github.com/ScholarShield/scholarship-client/pkg/logger"
)

const commandTimeout = 5 * time.Minute

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "apply":
		err = runApply(args)
	case "list":
		err = runList(args)
	case "verify":
		err = runVerify(args)
	case "check":
		err = runCheck(args)
	case "stats":
		err = runStats(args)
	case "watch":
		err = runWatch(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "scholarctl %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: scholarctl <command> [flags]

Commands:
  apply    submit a new application with an encrypted income
  list     list application records
  verify   verify and disclose the income of a record
  check    check whether eligibility checking is available
  stats    show aggregate application statistics
  watch    run the refresh daemon with health and metrics endpoints

Common flags:
  -config path   configuration file (YAML)
`)
}

// app wires the full client stack for one command invocation.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	gate     *session.Gate
	repo     *scholar.Repository
	notifier *notify.Notifier
	co       *orchestrator.Coordinator
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		Name:   "scholarctl",
	})

	client, err := chain.NewClient(chain.Config{
		RPCURL:         cfg.Chain.RPCURL,
		Timeout:        cfg.Chain.Timeout,
		RequestsPerSec: cfg.Chain.RequestsPerSec,
		Burst:          cfg.Chain.Burst,
	}, log)
	if err != nil {
		return nil, err
	}

	reg, err := registry.NewRPCRegistry(client, cfg.Chain.ContractAddress)
	if err != nil {
		return nil, err
	}

	relayer, err := fhe.NewRelayer(fhe.RelayerConfig{
		BaseURL: cfg.Relayer.BaseURL,
		Timeout: cfg.Relayer.Timeout,
	})
	if err != nil {
		return nil, err
	}

	gate := session.NewGate()
	repo := scholar.NewRepository(reg, log)
	notifier := notify.NewNotifier()
	notifier.Subscribe(func(n notify.Notification) {
		if n.Visible {
			fmt.Printf("[%s] %s\n", n.Status, n.Message)
		}
	})

	co := orchestrator.NewCoordinator(gate, fhe.NewEngine(relayer, log), reg, reg, repo, notifier, log)

	return &app{cfg: cfg, log: log, gate: gate, repo: repo, notifier: notifier, co: co}, nil
}

// connect opens the wallet session, which bootstraps the encryption engine
// and loads the snapshot.
func (a *app) connect() error {
	if a.cfg.Wallet.Account == "" {
		return fmt.Errorf("no wallet account configured (set wallet.account or SCHOLAR_ACCOUNT)")
	}
	a.gate.Connect(a.cfg.Wallet.Account)
	return nil
}

func runApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	cfgPath := fs.String("config", "", "configuration file")
	name := fs.String("name", "", "applicant name")
	income := fs.String("income", "", "annual family income (encrypted before submission)")
	score := fs.String("score", "0", "academic score")
	extra := fs.String("extracurricular", "0", "extracurricular score")
	desc := fs.String("description", "", "application description")
	fs.Parse(args)

	a, err := newApp(*cfgPath)
	if err != nil {
		return err
	}
	if err := a.connect(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	id, err := a.co.Submit(ctx, orchestrator.SubmissionForm{
		Name:            *name,
		Income:          *income,
		AcademicScore:   *score,
		Extracurricular: *extra,
		Description:     *desc,
	})
	if err != nil {
		return err
	}
	fmt.Printf("submitted %s\n", id)
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cfgPath := fs.String("config", "", "configuration file")
	search := fs.String("search", "", "filter by name or description")
	fs.Parse(args)

	a, err := newApp(*cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	apps, err := a.repo.Load(ctx)
	if err != nil {
		return err
	}
	apps = scholar.Filter(apps, *search)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSCORE\tVERIFIED\tINCOME\tSUBMITTED")
	for _, app := range apps {
		income := "-"
		if app.IsVerified {
			income = fmt.Sprintf("%d", app.DecryptedValue)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%s\t%s\n",
			app.ID, app.Name, app.AcademicScore, app.IsVerified, income,
			app.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	cfgPath := fs.String("config", "", "configuration file")
	id := fs.String("id", "", "record id to verify")
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" {
		return fmt.Errorf("-id is required")
	}

	a, err := newApp(*cfgPath)
	if err != nil {
		return err
	}
	if err := a.connect(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	value, known, err := a.co.VerifyIncome(ctx, *id)
	if err != nil {
		return err
	}
	if !known {
		fmt.Printf("%s verified; value not yet readable\n", *id)
		return nil
	}

	fmt.Printf("%s income: %d\n", *id, value)
	if report, ok := a.co.EligibilityFor(*id); ok && report.Known {
		verdict := "not eligible"
		if report.Eligible {
			verdict = "eligible"
		}
		fmt.Printf("%s (%.0f%% of the %d threshold)\n", verdict, report.Percent, scholar.EligibilityThreshold)
	}
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cfgPath := fs.String("config", "", "configuration file")
	fs.Parse(args)

	a, err := newApp(*cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	available, err := a.co.CheckAvailability(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("available: %v\n", available)
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "", "configuration file")
	fs.Parse(args)

	a, err := newApp(*cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := a.repo.Load(ctx); err != nil {
		return err
	}

	stats := a.co.Stats()
	fmt.Printf("applications: %d\n", stats.Total)
	fmt.Printf("approved:     %d\n", stats.Approved)
	fmt.Printf("pending:      %d\n", stats.Pending)
	fmt.Printf("avg income:   %.0f\n", stats.AvgIncome)
	fmt.Printf("success rate: %.1f%%\n", stats.SuccessRate)
	return nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "configuration file")
	fs.Parse(args)

	a, err := newApp(*cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := a.repo.Load(ctx); err != nil {
		a.log.WithError(err).Warn("initial load failed, continuing")
	}

	scheduler := watch.NewScheduler(a.cfg.Watch.RefreshSchedule, a.co, a.log)
	if err := scheduler.Start(); err != nil {
		return err
	}

	var listener *watch.Listener
	if a.cfg.Chain.WSURL != "" {
		listener = watch.NewListener(a.cfg.Chain.WSURL, a.cfg.Chain.ContractAddress, a.co, a.log)
		if err := listener.Start(ctx); err != nil {
			return err
		}
	}

	server := watch.NewServer(a.cfg.Watch.ListenAddr, a.repo)
	go func() {
		a.log.WithField("addr", a.cfg.Watch.ListenAddr).Info("watch server listening")
		if err := server.ListenAndServe(); err != nil {
			a.log.WithError(err).Info("watch server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("server shutdown failed")
	}
	if listener != nil {
		if err := listener.Stop(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("listener stop failed")
		}
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("scheduler stop failed")
	}
	return nil
}
