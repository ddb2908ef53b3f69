package ai

import (
	"fmt"
	"strings"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// Built-in profile names.
const (
	ProfileOpportunity = "opportunity"
	ProfileOutreach    = "outreach"
	ProfileCustom      = "custom"
)

// Profile describes one kind of classification: the instructions sent to the
// backend, the boolean field that carries the decision, and defaults for the
// optional fields the instructions ask for.
type Profile struct {
	Name         string
	SystemPrompt string
	Question     string
	AcceptField  string
	// Defaults fill optional fields missing from an otherwise valid reply.
	Defaults  map[string]any
	MaxTokens int
}

const opportunitySystemPrompt = `We are scanning community threads for business ideas that can be solved with software. You are an analyst helping us sift through these ideas. Assume the submitted post describes a problem people would pay to have solved. Decide whether it could be solved with a bespoke web or mobile application.

We build simple to moderately complex web apps and lean on third-party services (payments, auth, hosting) wherever possible. We are not interested in hardware or firmware opportunities.

Respond with a JSON object containing:
- "viable": boolean (true if this is a viable web/mobile app opportunity)
- "reason": string (brief explanation of your decision)
- "tech_stack_ideas": array of strings (suggested technologies if viable, empty array if not)
- "complexity": string ("simple", "moderate", "complex", or "too_complex")`

const outreachSystemPromptTmpl = `You are a community outreach analyst for %s.

Your job is to read community posts and decide whether the author is experiencing a problem this product could genuinely help with. Do NOT flag memes or jokes without a real underlying struggle, clinical or medication advice threads, or posts where the author has already found a solution.

Respond with a JSON object containing:
- "relevant": boolean (true if this person could genuinely benefit from the product)
- "reason": string (brief explanation of why this post matches or doesn't)
- "suggested_angle": string (if relevant, a short note on how to frame a helpful, non-salesy reply to this person's specific complaint; otherwise an empty string)`

// Opportunity returns the profile that looks for software business ideas.
func Opportunity() Profile {
	return Profile{
		Name:         ProfileOpportunity,
		SystemPrompt: opportunitySystemPrompt,
		Question:     "Is this a viable business opportunity that could be solved with a web/mobile application?",
		AcceptField:  "viable",
		Defaults: map[string]any{
			"tech_stack_ideas": []string{},
			"complexity":       "unknown",
		},
		MaxTokens: 500,
	}
}

// Outreach returns the profile that looks for people a product could help.
// product is a one-line description used in the instructions.
func Outreach(product string) Profile {
	if strings.TrimSpace(product) == "" {
		product = "our product"
	}
	return Profile{
		Name:         ProfileOutreach,
		SystemPrompt: fmt.Sprintf(outreachSystemPromptTmpl, product),
		Question:     "Is this person experiencing a problem the product could help with?",
		AcceptField:  "relevant",
		Defaults: map[string]any{
			"suggested_angle": "",
		},
		MaxTokens: 400,
	}
}

// Custom returns an operator-defined profile.
func Custom(systemPrompt, acceptField string) Profile {
	return Profile{
		Name:         ProfileCustom,
		SystemPrompt: systemPrompt,
		Question:     "Does this post match the criteria above?",
		AcceptField:  acceptField,
		Defaults:     map[string]any{},
	}
}

// UserPrompt renders the per-item request.
func (p Profile) UserPrompt(item models.Item) string {
	content := item.BodySnippet
	if content == "" {
		content = item.Body
	}
	if content == "" {
		content = "No content available"
	}
	source := item.SourceTag
	if source == "" {
		source = "Unknown"
	}

	var b strings.Builder
	b.WriteString("Please evaluate this post:\n\n")
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Source: %s\n", source)
	fmt.Fprintf(&b, "Content: %s\n", content)
	fmt.Fprintf(&b, "Link: %s\n\n", item.Link)
	b.WriteString(p.Question)
	return b.String()
}

// DefaultFor returns a fresh copy of the default for key, so callers can
// mutate slices without touching the profile.
func (p Profile) DefaultFor(key string) (any, bool) {
	v, ok := p.Defaults[key]
	if !ok {
		return nil, false
	}
	if s, isSlice := v.([]string); isSlice {
		return append([]string{}, s...), true
	}
	return v, true
}
