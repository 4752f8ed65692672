package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the yaml representation of a pipeline.
//
//	unescapeInput: true
//	stages:
//	  - name: one line per word
//	    pattern: ' '
//	    replacement: '\n'
type Config struct {
	UnescapeInput bool    `yaml:"unescapeInput"`
	Stages        []Stage `yaml:"stages"`
}

// Options returns the Options described by the config.
func (c Config) Options() Options {
	return Options{UnescapeInput: c.UnescapeInput}
}

// Validate checks that every enabled stage can be compiled.
func (c Config) Validate() error {
	var errs []error

	for idx, stage := range c.Stages {
		if !stage.Enabled {
			continue
		}

		if _, err := stage.compile(); err != nil {
			errs = append(errs, fmt.Errorf("stage idx=%d: %w", idx, err))
		}
	}

	return errors.Join(errs...)
}

var stageKeys = map[string]bool{
	"id": true, "name": true, "pattern": true, "replacement": true,
	"caseSensitive": true, "wordBoundary": true, "useRegex": true,
	"enabled": true, "order": true,
}

// UnmarshalYAML decodes a stage. Stages are enabled unless the yaml says otherwise.
func (stage *Stage) UnmarshalYAML(node *yaml.Node) error {
	// Node.Decode does not inherit KnownFields from the outer decoder
	if node.Kind == yaml.MappingNode {
		for idx := 0; idx < len(node.Content); idx += 2 {
			key := node.Content[idx]
			if !stageKeys[key.Value] {
				return fmt.Errorf("line %d: field %s not found in stage", key.Line, key.Value)
			}
		}
	}

	// a type without methods, decoding it does not recurse into UnmarshalYAML
	type plainStage Stage

	decoded := plainStage{Enabled: true}
	if err := node.Decode(&decoded); err != nil {
		return err
	}

	*stage = Stage(decoded)
	return nil
}

// Load reads a yaml config from r and validates it. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	var config Config

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode pipeline: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate pipeline: %w", err)
	}

	return config, nil
}

// LoadFile reads a yaml config from the file at path.
func LoadFile(path string) (Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}

	defer fp.Close()

	return Load(fp)
}
