package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nijaru/yt-tutor/session"
	"github.com/nijaru/yt-tutor/tutor"
)

type askOptions struct {
	url      string
	question string
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask --url <youtube url>",
		Short: "Load a transcript once and answer questions in the terminal",
		Example: `  # Answer a single question
  yt-tutor ask --url "https://youtu.be/dQw4w9WgXcQ" --question "What is the song about?"

  # Read questions from stdin, one per line
  yt-tutor ask --url "https://www.youtube.com/watch?v=dQw4w9WgXcQ"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.closer.Close()

			return runAsk(cmd.Context(), rt.newTutor(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "YouTube video URL")
	cmd.Flags().StringVarP(&opts.question, "question", "q", "", "single question to answer; questions are read from stdin when empty")
	cmd.MarkFlagRequired("url")
	return cmd
}

func runAsk(ctx context.Context, svc *tutor.Service, opts askOptions, in io.Reader, out io.Writer) error {
	sess := session.New()

	res := svc.LoadTranscript(ctx, sess, opts.url)
	if !res.OK() {
		fmt.Fprintln(out, res.Message())
		return errors.Errorf("transcript not loaded for %s", res.VideoURL)
	}
	fmt.Fprintf(out, "Transcript length: %d characters\n", res.Characters)
	fmt.Fprintln(out, res.Message())

	if opts.question != "" {
		return answer(ctx, svc, sess, opts.question, out)
	}

	interactive := in == os.Stdin
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(out, "Ask a question: ")
		}
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if err := answer(ctx, svc, sess, question, out); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func answer(ctx context.Context, svc *tutor.Service, sess *session.Session, question string, out io.Writer) error {
	reply, err := svc.Ask(ctx, sess, question)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Answer: %s\n", reply)
	return nil
}
