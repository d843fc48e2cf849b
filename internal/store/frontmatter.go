package store

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/musterdev/muster/internal/types"
)

const fence = "---"

// DecodePlan parses a plan file: a YAML frontmatter block between --- fences
// holding the metadata, followed by free-form body text stored as Details.
func DecodePlan(data []byte) (*types.Plan, error) {
	text := string(data)
	rest, ok := strings.CutPrefix(text, fence+"\n")
	if !ok {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("empty plan file")
		}
		return nil, fmt.Errorf("missing frontmatter fence")
	}

	var header, body string
	if idx := strings.Index(rest, "\n"+fence); idx >= 0 {
		header = rest[:idx]
		body = rest[idx+len(fence)+1:]
		body = strings.TrimPrefix(body, "\n")
	} else {
		return nil, fmt.Errorf("unterminated frontmatter fence")
	}

	var plan types.Plan
	if err := yaml.Unmarshal([]byte(header), &plan); err != nil {
		return nil, fmt.Errorf("invalid frontmatter: %w", err)
	}
	plan.Details = strings.TrimSpace(body)
	plan.NormalizeTags()
	return &plan, nil
}

// EncodePlan renders the plan back into frontmatter + body form.
func EncodePlan(plan *types.Plan) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return nil, fmt.Errorf("encode plan %d: %w", plan.ID, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	buf.WriteString(fence + "\n")
	if plan.Details != "" {
		buf.WriteString("\n")
		buf.WriteString(plan.Details)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}
