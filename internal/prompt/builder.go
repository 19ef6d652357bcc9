// Package prompt builds the model-facing text for classification and
// standardization. Pure string construction: no I/O, no model calls.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"voltcat/internal/catalog"
	"voltcat/internal/logging"
)

// namingGuide holds the standardization rules embedded in every
// standardization prompt. The rules mirror the house cataloging standard
// for electrical components.
const namingGuide = `Naming Standardization Guide

General rules:
- The entire name must be UPPERCASE.
- If the manufacturer model code cannot be determined, end the name with " - (NO MODEL)".
- Units are abbreviated per technical convention (A for amperes, V for volts, kW, kVA, uF).
- Brand names appear only when they are part of the commercial product name.
- Never include an NCM fiscal code in the standardized name.
- Never include a barcode in the standardized name.
- Never include a manufacturer purchase code in the standardized name.
- For circuit breakers, current and pole count are written in sequence with no comma between them (e.g. "20A BIPOLAR", never "20A, BIPOLAR").

Punctuation and structure:
- Commas and spaces between name segments are fixed separators.
- A comma is only added when a valid information block follows it.
- When a piece of information is unknown, omit both the segment and the separator that would precede it. Never emit double or trailing commas.

Model discipline:
- The name must end with the product model designation (e.g. SAK 4 EN, MDW-C20-2), never with a numeric purchase code.
- If no specific alphanumeric model is evident, use the product line name as the model.
- Strip filler words such as "new", "model", "reference" from the name body.
- For enclosures and cabinets, dimensions are always followed by the format indication (WxHxD).
- Sub-components (door, mounting plate) are mentioned only when missing (e.g. "WITHOUT MOUNTING PLATE"); a complete item does not list its parts.`

// Builder constructs classification and standardization prompts.
type Builder struct{}

// NewBuilder returns a prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildClassificationPrompt asks the model to place a free-text component
// description into exactly one taxonomy category. The reply contract is a
// single bare category name copied verbatim from the list.
func (b *Builder) BuildClassificationPrompt(description string, taxonomy *catalog.Taxonomy, examples []catalog.Example) string {
	categories, err := json.MarshalIndent(taxonomy.Categories(), "", "  ")
	if err != nil {
		// Categories are plain strings; MarshalIndent cannot fail on them
		categories = []byte("[]")
	}

	var sb strings.Builder
	sb.WriteString("Analyze the component description below and classify it into EXACTLY ONE of the listed categories.\n")
	sb.WriteString("Reply with ONLY the exact category name, copied from the list. Do not add any other word.\n\n")

	if len(examples) > 0 {
		sb.WriteString("### Previously classified items for reference\n")
		for _, ex := range examples {
			fmt.Fprintf(&sb, "- %q => %s\n", ex.Description, ex.Category)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Component description: %q\n\n", description)
	sb.WriteString("Valid categories:\n")
	sb.Write(categories)
	sb.WriteString("\n\nChosen category:\n")

	out := sb.String()
	logging.PromptDebug("Classification prompt: %d bytes, %d few-shot examples", len(out), len(examples))
	return out
}

// BuildStandardizationPrompt asks the model to produce the canonical
// catalog name for a description already placed in a category. The reply
// contract is a single uppercase line.
func (b *Builder) BuildStandardizationPrompt(description, category string, examples []catalog.Example) string {
	var sb strings.Builder
	sb.WriteString("You are an industrial materials cataloging specialist. ")
	sb.WriteString("Produce the standardized catalog name for the component described below, following the guide and the formatting of the existing entries.\n\n")

	sb.WriteString(namingGuide)
	sb.WriteString("\n\n")

	if len(examples) > 0 {
		fmt.Fprintf(&sb, "### Existing entries in category %q\n", category)
		sb.WriteString("Use these as the formatting reference:\n")
		for _, ex := range examples {
			fmt.Fprintf(&sb, "- %s\n", ex.StandardizedName)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Category: %s\n", category)
	fmt.Fprintf(&sb, "Component description: %q\n\n", description)
	sb.WriteString("Reply with ONLY the standardized name, on a single line, entirely uppercase. No explanation, no quotes, no code fences.\n\n")
	sb.WriteString("Standardized name:\n")

	out := sb.String()
	logging.PromptDebug("Standardization prompt: %d bytes, %d category examples", len(out), len(examples))
	return out
}
