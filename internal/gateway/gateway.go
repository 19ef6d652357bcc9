package gateway

import (
	"context"
	"errors"
	"strings"

	"voltcat/internal/core"
	"voltcat/internal/logging"
)

// DefaultMaxNameLength bounds the standardized name length. Replies longer
// than this are treated as prose, not a catalog name.
const DefaultMaxNameLength = 200

// maxLabelLength bounds a category label. Taxonomy entries are short; a
// reply past this is not a label.
const maxLabelLength = 100

// Gateway reduces model replies to validated classification labels and
// standardized names. Callers never see raw model text.
type Gateway struct {
	client        LLMClient
	maxNameLength int
}

// New creates a Gateway over an LLM client.
func New(client LLMClient) *Gateway {
	return &Gateway{
		client:        client,
		maxNameLength: DefaultMaxNameLength,
	}
}

// Classify sends a classification prompt and returns the bare category
// label the model picked. Transport and API failures become backend errors;
// a reply that cannot be reduced to a single short label is malformed.
func (g *Gateway) Classify(ctx context.Context, prompt string) (string, error) {
	reply, err := g.client.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, errNoCompletion) {
			return "", &core.MalformedResponseError{
				Stage:  core.StageClassify,
				Reply:  "",
				Reason: "no completion returned",
			}
		}
		return "", &core.BackendUnavailableError{Stage: core.StageClassify, Err: err}
	}

	label := cleanReply(reply)
	if label == "" {
		return "", &core.MalformedResponseError{
			Stage:  core.StageClassify,
			Reply:  reply,
			Reason: "empty reply",
		}
	}
	if strings.ContainsAny(label, "\n\r") {
		return "", &core.MalformedResponseError{
			Stage:  core.StageClassify,
			Reply:  reply,
			Reason: "reply is not a single category label",
		}
	}
	if len(label) > maxLabelLength {
		return "", &core.MalformedResponseError{
			Stage:  core.StageClassify,
			Reply:  reply,
			Reason: "reply too long for a category label",
		}
	}

	logging.GatewayDebug("Classify: label=%q", label)
	return label, nil
}

// Standardize sends a standardization prompt and returns the canonical name
// the model produced, uppercased. Same failure discipline as Classify.
func (g *Gateway) Standardize(ctx context.Context, prompt string) (string, error) {
	reply, err := g.client.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, errNoCompletion) {
			return "", &core.MalformedResponseError{
				Stage:  core.StageStandardize,
				Reply:  "",
				Reason: "no completion returned",
			}
		}
		return "", &core.BackendUnavailableError{Stage: core.StageStandardize, Err: err}
	}

	name := cleanReply(reply)
	if name == "" {
		return "", &core.MalformedResponseError{
			Stage:  core.StageStandardize,
			Reply:  reply,
			Reason: "empty reply",
		}
	}
	if strings.ContainsAny(name, "\n\r") {
		return "", &core.MalformedResponseError{
			Stage:  core.StageStandardize,
			Reply:  reply,
			Reason: "reply is not a single name line",
		}
	}
	if len(name) > g.maxNameLength {
		return "", &core.MalformedResponseError{
			Stage:  core.StageStandardize,
			Reply:  reply,
			Reason: "reply too long for a standardized name",
		}
	}

	name = strings.ToUpper(name)
	logging.GatewayDebug("Standardize: name=%q", name)
	return name, nil
}

// cleanReply strips markdown code fences, backticks, and surrounding quotes
// from a model reply before it is judged.
func cleanReply(reply string) string {
	s := strings.TrimSpace(reply)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	// Strip one layer of matching quotes
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
