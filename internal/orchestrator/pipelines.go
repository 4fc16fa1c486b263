package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Built-in pipeline names.
const (
	PipelineFullApplication = "full_application"
	PipelineDailyDigest     = "daily_digest"
	PipelineProfileSetup    = "profile_setup"
)

// ErrUnknownPipeline is returned by RunPipeline for names that were never
// defined.
var ErrUnknownPipeline = errors.New("unknown pipeline")

// Step is one pipeline entry: which unit, which op, and any static task
// fields beyond the injected owner id.
type Step struct {
	Unit string                 `yaml:"unit"`
	Op   string                 `yaml:"op"`
	Task map[string]interface{} `yaml:"task,omitempty"`
}

// builtinPipelines is the static pipeline table. full_application walks a
// posting from scrape to tracked application; daily_digest refreshes and
// summarizes; profile_setup bootstraps a new owner.
func builtinPipelines() map[string][]Step {
	return map[string][]Step{
		PipelineFullApplication: {
			{Unit: "scraper", Op: "scrape_new_postings"},
			{Unit: "matcher", Op: "match_postings"},
			{Unit: "resume-tailor", Op: "tailor_resumes"},
			{Unit: "cover-letter", Op: "generate_letters"},
			{Unit: "tracker", Op: "sync_tracking"},
		},
		PipelineDailyDigest: {
			{Unit: "tracker", Op: "refresh_application_status"},
			{Unit: "digest", Op: "generate_digest"},
		},
		PipelineProfileSetup: {
			{Unit: "profile", Op: "create_profile"},
			{Unit: "resume-parser", Op: "parse_resume"},
		},
	}
}

// Pipelines returns the configured pipeline names, sorted.
func (o *Orchestrator) Pipelines() []string {
	names := make([]string, 0, len(o.pipelines))
	for name := range o.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PipelineSteps returns the steps of a pipeline for inspection.
func (o *Orchestrator) PipelineSteps(name string) ([]Step, bool) {
	steps, ok := o.pipelines[name]
	return steps, ok
}

// LoadPipelineFile merges extra pipelines from a yaml file of the form
//
//	pipelines:
//	  weekly_report:
//	    - unit: digest
//	      op: weekly_summary
//
// Built-in names cannot be overridden. Call before serving; the pipeline
// table is not locked.
func (o *Orchestrator) LoadPipelineFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pipeline file: %w", err)
	}

	var file struct {
		Pipelines map[string][]Step `yaml:"pipelines"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse pipeline file: %w", err)
	}

	for name, steps := range file.Pipelines {
		if _, builtin := builtinPipelines()[name]; builtin {
			return fmt.Errorf("pipeline %s is built in and cannot be overridden", name)
		}
		if len(steps) == 0 {
			return fmt.Errorf("pipeline %s has no steps", name)
		}
		for i, step := range steps {
			if step.Unit == "" || step.Op == "" {
				return fmt.Errorf("pipeline %s step %d needs unit and op", name, i)
			}
		}
		o.pipelines[name] = steps
	}

	o.logger.Info("pipeline file loaded",
		zap.String("path", path),
		zap.Int("pipelines", len(file.Pipelines)))
	return nil
}

// ValidatePipelines checks every configured step against the registry so a
// typo in the table or a pipeline file fails at boot, not at run time.
func (o *Orchestrator) ValidatePipelines() error {
	for name, steps := range o.pipelines {
		for i, step := range steps {
			if !o.registry.Has(step.Unit) {
				return fmt.Errorf("pipeline %s step %d references unknown unit %s", name, i, step.Unit)
			}
		}
	}
	return nil
}
