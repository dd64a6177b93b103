package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/RoseOO/ltfsgo/internal/config"
	"github.com/RoseOO/ltfsgo/internal/logging"
	"github.com/RoseOO/ltfsgo/internal/scsierr"
	"github.com/RoseOO/ltfsgo/internal/session"
)

var (
	version   = "0.1.0"
	buildTime = "development"
)

func main() {
	configPath := flag.String("config", "/etc/ltfsgo/config.json", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ltfsgo v%s (built: %s)\n", version, buildTime)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ltfsgo <read|space> <device> [path]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	verb := args[0]
	device := args[1]

	sess, err := session.Open(device, session.DriveVariant(cfg.Tape.DriveVariant), cfg.Tape.BlockSize, cfg.Tape.ExtraPartitionCount, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", device, err)
		os.Exit(exitCodeFor(err))
	}
	defer sess.Close()

	switch verb {
	case "read":
		err = runRead(sess, args[2:])
	case "space":
		err = runSpace(sess, args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown verb %q\n", verb)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func runRead(sess *session.Session, rest []string) error {
	if _, err := sess.ReadIndex(); err != nil {
		return err
	}

	path := ""
	if len(rest) > 0 {
		path = rest[0]
	}

	entries, err := sess.List(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir {
			fmt.Printf("%s/\n", e.Name)
		} else {
			fmt.Printf("%s\t%d\n", e.Name, e.Size)
		}
	}
	return nil
}

func runSpace(sess *session.Session, rest []string) error {
	fs := flag.NewFlagSet("space", flag.ContinueOnError)
	detailed := fs.Bool("detailed", false, "include error-rate log and raw capacity fields")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	report, err := sess.SpaceInfo()
	if err != nil {
		return err
	}
	fmt.Printf("P0 remaining: %s / %s\n", report.P0RemainingHuman, report.P0MaximumHuman)
	fmt.Printf("P1 remaining: %s / %s\n", report.P1RemainingHuman, report.P1MaximumHuman)
	fmt.Printf("media: %s\n", report.Info.MediaDescription)

	if *detailed {
		fmt.Printf("P0 remaining (KB): %d / %d\n", report.Info.P0RemainingKB, report.Info.P0MaximumKB)
		fmt.Printf("P1 remaining (KB): %d / %d\n", report.Info.P1RemainingKB, report.Info.P1MaximumKB)
		fmt.Printf("generation: %s\n", report.Info.Generation)
		fmt.Printf("write protect: %v\n", report.Info.IsWriteProtect)
		fmt.Printf("error rate (log10): %.3f\n", report.Info.ErrorRateLog)
	}
	return nil
}

func exitCodeFor(err error) int {
	if kind, ok := scsierr.KindOf(err); ok {
		switch kind {
		case scsierr.Config, scsierr.UnsupportedOperation:
			return 2
		default:
			return 1
		}
	}
	return 1
}
