// Package cli wires the yt-tutor commands.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nijaru/yt-tutor/completion"
	"github.com/nijaru/yt-tutor/config"
	"github.com/nijaru/yt-tutor/logger"
	"github.com/nijaru/yt-tutor/transcript"
	"github.com/nijaru/yt-tutor/tutor"
	"github.com/nijaru/yt-tutor/youtube"
)

var envFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "yt-tutor",
		Short: "Ask questions about a YouTube video's transcript",
		Long: `yt-tutor fetches the English transcript of a YouTube video and answers
questions about it with an Azure OpenAI chat deployment. The whole transcript is
sent as context with every question.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load before reading configuration")

	root.AddCommand(newServeCmd(), newAskCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type runtime struct {
	cfg    *config.Config
	log    *logrus.Logger
	closer io.Closer
}

func setup(console io.Writer) (*runtime, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, errors.WithMessage(err, "load config")
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	log, closer, err := logger.New(logger.Options{
		Dir:     cfg.LogDir,
		Debug:   cfg.Debug,
		JSON:    cfg.IsProduction(),
		Console: console,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init logger")
	}

	return &runtime{cfg: cfg, log: log, closer: closer}, nil
}

// newTutor builds the production pipeline: YouTube captions in, Azure
// completions out.
func (rt *runtime) newTutor() *tutor.Service {
	source := youtube.NewClient(rt.cfg.Transcript.Timeout, rt.log)
	fetcher := transcript.NewFetcher(source, rt.cfg.Transcript.Languages, rt.log)
	chain := completion.NewChain(completion.DefaultTemplate(), completion.NewAzureClient(rt.cfg.Completion, rt.log))
	return tutor.NewService(fetcher, chain, rt.log)
}
