// Command stmdemo is the CLI harness for the stm runtime: it runs the
// "orElse" and "Retry" scenario suites and reports a pass/fail line per
// scenario, and offers a small interactive bank-account demo adapted from
// github.com/lukechampine/stm's Santa Claus gate/group pattern.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stmdemo",
		Short: "Exercises the cooperative STM runtime's atomic/retry/orElse engine",
	}
	root.AddCommand(newRunCmd(), newBankCmd())
	return root
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func newRunCmd() *cobra.Command {
	var suites []string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the named scenario suites (default: all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbose)
			runID := uuid.New()

			selected, err := selectSuites(suites, log)
			if err != nil {
				return errors.Wrap(err, "selecting suites")
			}

			allPassed := true
			for _, s := range selected {
				for _, sc := range s.scenarios {
					entry := log.WithFields(logrus.Fields{
						"run":      runID,
						"suite":    s.name,
						"scenario": sc.name,
					})
					if err := sc.run(); err != nil {
						allPassed = false
						entry.WithError(err).Error("FAIL")
						continue
					}
					entry.Info("PASS")
				}
			}
			if !allPassed {
				return errors.New("one or more scenarios failed")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&suites, "suite", []string{"orElse", "Retry"}, "suites to run: orElse, Retry")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log one line per scheduler turn")
	return cmd
}

func selectSuites(names []string, log logrus.FieldLogger) ([]suite, error) {
	available := map[string]func(logrus.FieldLogger) suite{
		"orElse": orElseSuite,
		"Retry":  retrySuite,
	}
	var out []suite
	for _, name := range names {
		build, ok := available[name]
		if !ok {
			return nil, errors.Errorf("unknown suite %q", name)
		}
		out = append(out, build(log))
	}
	return out, nil
}
