// unescape decodes backslash escape sequences typed as literal text.
//
// Each argument is decoded and printed on its own line. Without arguments the
// whole of stdin (or the file given with --input) is decoded as one text and
// written to stdout as is. With --pipeline, the decoded text additionally runs
// through the search and replace stages of a yaml file. The file's unescapeInput
// setting then decides whether the input is decoded at all.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/go-gum/unescape"
	"github.com/go-gum/unescape/pipeline"
)

const (
	exitOK        = 0
	exitMalformed = 1
	exitUsage     = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		inputPath    string
		pipelinePath string
		lenient      bool
		logLevel     string
	)

	flagSet := pflag.NewFlagSet("unescape", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&inputPath, "input", "i", "", "read the text from this file instead of stdin")
	flagSet.StringVar(&pipelinePath, "pipeline", "", "run the text through the search and replace stages of this yaml file")
	flagSet.BoolVar(&lenient, "lenient", false, "print malformed text unchanged instead of failing")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}

		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	if help, _ := flagSet.GetBool("help"); help {
		printUsage(stderr, flagSet)
		return exitOK
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		fmt.Fprintf(stderr, "error: invalid --log-level %q\n", logLevel)
		return exitUsage
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	texts := flagSet.Args()
	if len(texts) > 0 && inputPath != "" {
		fmt.Fprintf(stderr, "error: --input can not be combined with arguments\n")
		return exitUsage
	}

	// without a pipeline every text is decoded, a pipeline decides on its own
	config := pipeline.Config{UnescapeInput: true}
	if pipelinePath != "" {
		var err error
		if config, err = pipeline.LoadFile(pipelinePath); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitUsage
		}

		logger.Debug("loaded pipeline", "file", pipelinePath, "stages", len(config.Stages))
	}

	// a single text read as a whole is written back without a trailing newline
	wholeInput := len(texts) == 0

	if wholeInput {
		text, err := readInput(inputPath, stdin)
		switch {
		case errors.Is(err, errTerminal):
			printUsage(stderr, flagSet)
			return exitUsage

		case err != nil:
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitUsage
		}

		logger.Debug("read input", "bytes", len(text), "file", inputPath)
		texts = []string{text}
	}

	// decode everything before writing, output is all or nothing
	decoded := make([]string, 0, len(texts))
	for idx, text := range texts {
		value := text

		var err error
		if config.UnescapeInput {
			value, err = unescape.Unescape(text)
		}

		switch {
		case err != nil && lenient:
			// the outcome of UnescapeOrKeep, decoded by hand to log the error
			logger.Warn("keeping text with malformed escape sequence", "index", idx, "error", err)
			value = text

		case err != nil:
			fmt.Fprintf(stderr, "error: text %d: %v\n", idx, err)
			return exitMalformed
		}

		if len(config.Stages) > 0 {
			// the input is decoded above, with the strict or lenient rules of the command
			value = runPipeline(logger, idx, value, config.Stages)
		}

		decoded = append(decoded, value)
	}

	for _, value := range decoded {
		if !wholeInput {
			value += "\n"
		}

		if _, err := io.WriteString(stdout, value); err != nil {
			fmt.Fprintf(stderr, "error: write output: %v\n", err)
			return exitUsage
		}
	}

	return exitOK
}

func runPipeline(logger *slog.Logger, idx int, text string, stages []pipeline.Stage) string {
	result := pipeline.Process(text, stages, pipeline.Options{})

	for _, step := range result.Steps {
		if step.Err != nil {
			logger.Warn("stage failed, text passed on unchanged", "index", idx, "stage", step.StageName, "error", step.Err)
			continue
		}

		logger.Debug("stage done", "index", idx, "stage", step.StageName, "matches", step.MatchCount)
	}

	logger.Info("pipeline done", "index", idx, "matches", result.TotalMatches, "duration", result.ProcessingTime)

	return result.FinalOutput
}

var errTerminal = errors.New("stdin is a terminal")

func readInput(path string, stdin io.Reader) (string, error) {
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}

		return string(content), nil
	}

	// do not block on an interactive terminal
	if file, ok := stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return "", errTerminal
	}

	content, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return string(content), nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Decode backslash escape sequences typed as literal text.

Recognized sequences: \n \t \r \\ \" and \u followed by four hex digits.

Usage:
  unescape [flags] [text...]
  unescape [flags] < input
  unescape --pipeline stages.yaml [flags] < input

Flags:
%s`, flagSet.FlagUsages())
}
