// Package pipeline orchestrates the two model calls that turn a free-text
// component description into a categorized, standardized catalog entry.
package pipeline

import (
	"context"
	"strings"

	"voltcat/internal/catalog"
	"voltcat/internal/core"
	"voltcat/internal/gateway"
	"voltcat/internal/logging"
	"voltcat/internal/prompt"
)

// DefaultFewShotK is how many knowledge-base examples each prompt carries.
const DefaultFewShotK = 3

// Result is the outcome of one processed description.
type Result struct {
	Category          string
	StandardizedName  string
	SourceDescription string

	// ExampleID identifies the persisted knowledge-base record. Empty when
	// persistence failed.
	ExampleID string

	// PersistErr is set when the result was computed but could not be
	// saved. The run is still a success; the knowledge base just did not
	// grow.
	PersistErr error
}

// Pipeline runs classify, standardize, persist.
type Pipeline struct {
	store    *catalog.Store
	prompts  *prompt.Builder
	gateway  *gateway.Gateway
	fewShotK int
}

// New creates a pipeline over an opened store and a gateway.
func New(store *catalog.Store, gw *gateway.Gateway) *Pipeline {
	return &Pipeline{
		store:    store,
		prompts:  prompt.NewBuilder(),
		gateway:  gw,
		fewShotK: DefaultFewShotK,
	}
}

// SetFewShotK overrides how many examples each prompt carries.
func (p *Pipeline) SetFewShotK(k int) {
	if k > 0 {
		p.fewShotK = k
	}
}

// Process runs the full standardization flow for one description. A failed
// Append does not fail the run: the computed result is returned with
// PersistErr set so the caller can warn and continue.
func (p *Pipeline) Process(ctx context.Context, description string) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Process")
	defer timer.Stop()

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &core.ValidationError{
			Stage:  core.StageStart,
			Field:  "description",
			Value:  "",
			Reason: "must not be empty",
		}
	}

	logging.Pipeline("Processing %q", core.Truncate(description, 80))

	// Classification
	similar := p.store.Retrieve(ctx, description, p.fewShotK)
	classifyPrompt := p.prompts.BuildClassificationPrompt(description, p.store.Taxonomy(), similar)
	category, err := p.gateway.Classify(ctx, classifyPrompt)
	if err != nil {
		return nil, err
	}
	if !p.store.Taxonomy().Contains(category) {
		logging.PipelineWarn("Model returned unknown category %q", category)
		return nil, &core.MalformedResponseError{
			Stage:  core.StageClassify,
			Reply:  category,
			Reason: "category is not in the loaded taxonomy",
		}
	}
	logging.PipelineDebug("Classified as %q", category)

	// Standardization
	peers := p.store.FindByCategory(category, p.fewShotK)
	standardizePrompt := p.prompts.BuildStandardizationPrompt(description, category, peers)
	name, err := p.gateway.Standardize(ctx, standardizePrompt)
	if err != nil {
		return nil, err
	}
	logging.PipelineDebug("Standardized as %q", name)

	result := &Result{
		Category:          category,
		StandardizedName:  name,
		SourceDescription: description,
	}

	// Persistence. The accepted result feeds future few-shot retrieval.
	stored, err := p.store.Append(catalog.Example{
		Description:      description,
		Category:         category,
		StandardizedName: name,
	})
	if err != nil {
		logging.PipelineWarn("Result computed but not persisted: %v", err)
		result.PersistErr = err
		return result, nil
	}
	result.ExampleID = stored.ID

	logging.Pipeline("Done: category=%q name=%q example=%s", category, name, stored.ID)
	return result, nil
}
