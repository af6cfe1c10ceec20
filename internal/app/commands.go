package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sha1n/relic-corpus/internal/config"
	"github.com/sha1n/relic-corpus/internal/corpus"
	"github.com/sha1n/relic-corpus/internal/docset"
)

// BuildReport summarizes a corpus build for the build command.
type BuildReport struct {
	BuildID  string `yaml:"build_id"`
	Archives int    `yaml:"archives"`
	Rejected int    `yaml:"rejected_fragments,omitempty"`

	corpus.Stats `yaml:",inline"`
}

// RunBuild builds the corpus once and writes a YAML report to out.
func RunBuild(ctx context.Context, flags *pflag.FlagSet, out io.Writer) error {
	return withCorpus(ctx, flags, func(svc *docset.Service, c *corpus.Corpus) error {
		m := svc.Manifest()
		report := BuildReport{
			BuildID:  m.BuildID,
			Archives: len(m.ArchivePaths()),
			Stats:    c.Stats(),
		}
		for _, path := range m.ArchivePaths() {
			state, _ := m.GetArchiveState(path)
			report.Rejected += state.Rejected
		}

		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return enc.Close()
	})
}

// RunDump builds the corpus once and writes every symbol to out as YAML.
func RunDump(ctx context.Context, flags *pflag.FlagSet, out io.Writer) error {
	return withCorpus(ctx, flags, func(_ *docset.Service, c *corpus.Corpus) error {
		return docset.Dump(out, c)
	})
}

func withCorpus(ctx context.Context, flags *pflag.FlagSet, fn func(*docset.Service, *corpus.Corpus) error) error {
	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateCorpusSettings(&settings.Corpus); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging()
	slog.Info("Config: corpus", "value", config.CorpusSettingsLogValue(settings.Corpus))

	svc, err := docset.NewService(&settings.Corpus)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Error("Failed to close docset service", "error", err)
		}
	}()

	c, err := svc.BuildLocked(ctx)
	if err != nil {
		var buildErr *corpus.BuildError
		if errors.As(err, &buildErr) {
			for _, e := range buildErr.Errs {
				slog.Error("Symbol failed to build", "error", e)
			}
		}
		return fmt.Errorf("corpus build failed: %w", err)
	}
	return fn(svc, c)
}

// configureLogging sends logs to stderr so stdout stays free for transports and reports
func configureLogging() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}
