// Package pipeline runs a text through an ordered list of search and replace stages.
//
// A stage either searches for plain text or for a regular expression, optionally
// case insensitive and limited to whole words. Replacement strings (and plain search
// texts) may carry escape sequences like `\n`, they are decoded with
// [unescape.UnescapeOrKeep] before they are used.
package pipeline

import (
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/go-gum/unescape"
)

// Stage describes a single search and replace step.
type Stage struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`

	CaseSensitive bool `yaml:"caseSensitive"`
	WordBoundary  bool `yaml:"wordBoundary"`

	// UseRegex interprets Pattern as a regular expression. The Replacement may then
	// refer to submatches using $1 or ${name}.
	UseRegex bool `yaml:"useRegex"`

	Enabled bool `yaml:"enabled"`

	// Stages run in ascending Order, stages with the same Order keep their position.
	Order int `yaml:"order"`
}

// Options changes how Process treats its input.
type Options struct {
	// UnescapeInput decodes escape sequences in the input before the first stage runs.
	// Input that can not be decoded is used as is.
	UnescapeInput bool
}

// StepResult describes the outcome of a single stage.
type StepResult struct {
	StageID     string
	StageName   string
	Input       string
	Output      string
	Pattern     string
	Replacement string
	MatchCount  int

	// Err is set if the stage could not run. Output then equals Input.
	Err error
}

// Result describes a full run of the pipeline.
type Result struct {
	Steps          []StepResult
	FinalOutput    string
	TotalMatches   int
	ProcessingTime time.Duration
}

// Process runs input through all enabled stages. A stage that fails, e.g. because of an
// invalid regular expression, passes its input on unchanged and reports the error in
// its StepResult.
func Process(input string, stages []Stage, opts Options) Result {
	startTime := time.Now()

	if opts.UnescapeInput {
		input = unescape.UnescapeOrKeep(input)
	}

	enabled := slices.DeleteFunc(slices.Clone(stages), func(stage Stage) bool { return !stage.Enabled })
	slices.SortStableFunc(enabled, func(a, b Stage) int { return a.Order - b.Order })

	result := Result{FinalOutput: input}

	for _, stage := range enabled {
		step := processStage(result.FinalOutput, stage)

		result.Steps = append(result.Steps, step)
		result.FinalOutput = step.Output
		result.TotalMatches += step.MatchCount
	}

	result.ProcessingTime = time.Since(startTime)

	return result
}

func processStage(input string, stage Stage) StepResult {
	step := StepResult{
		StageID:     stage.ID,
		StageName:   stage.Name,
		Input:       input,
		Output:      input,
		Pattern:     stage.Pattern,
		Replacement: stage.Replacement,
	}

	re, err := stage.compile()
	if err != nil {
		step.Err = err
		return step
	}

	replacement := unescape.UnescapeOrKeep(stage.Replacement)

	step.MatchCount = len(re.FindAllStringIndex(input, -1))

	if stage.UseRegex {
		step.Output = re.ReplaceAllString(input, replacement)
	} else {
		step.Output = re.ReplaceAllLiteralString(input, replacement)
	}

	return step
}

// compile builds the regular expression that finds the matches of the stage.
func (stage Stage) compile() (*regexp.Regexp, error) {
	pattern := stage.Pattern
	if !stage.UseRegex {
		pattern = regexp.QuoteMeta(unescape.UnescapeOrKeep(pattern))
	}

	if pattern == "" {
		return nil, fmt.Errorf("stage %q: empty pattern", stage.Name)
	}

	if stage.WordBoundary {
		pattern = `\b(?:` + pattern + `)\b`
	}

	if !stage.CaseSensitive {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", stage.Name, err)
	}

	return re, nil
}

// ValidateRegex reports whether pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}

	return nil
}
