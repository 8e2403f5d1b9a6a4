package llm

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// RuleBased is the degraded completer used when no chat backend is
// configured. It parses the context and question out of the RAG prompt,
// ranks context sentences by question-keyword overlap weighted with
// normalized term frequency, and stitches the best ones into an answer.
// It never returns an error.
type RuleBased struct {
	tokenPattern *regexp.Regexp
}

func NewRuleBased() *RuleBased {
	return &RuleBased{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+(?:[,./]\p{N}+)*`),
	}
}

func (r *RuleBased) Name() string { return "rule-based" }

func (r *RuleBased) Complete(_ context.Context, prompt string) (string, error) {
	contextPart, question, ok := splitPrompt(prompt)
	if !ok {
		return "Sorry, I could not process your question properly.", nil
	}

	sentences := strings.Split(contextPart, ".")
	qset := r.tokenSet(question)
	if len(qset) == 0 || len(sentences) == 0 {
		return "I could not find specific information to answer that question in the provided documents.", nil
	}

	// Term frequencies over the context, normalized by the max.
	freq := map[string]float64{}
	for _, s := range sentences {
		for _, tok := range r.tokens(s) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i, s := range sentences {
		toks := r.tokens(s)
		if len(toks) == 0 {
			continue
		}
		overlap := 0.0
		weight := 0.0
		for _, tok := range toks {
			if _, ok := qset[tok]; ok {
				overlap++
			}
			weight += freq[tok]
		}
		if overlap == 0 {
			continue
		}
		ranked = append(ranked, scored{i, (overlap + weight) / math.Sqrt(float64(len(toks)))})
	}
	if len(ranked) == 0 {
		return "I could not find specific information to answer that question in the provided documents.", nil
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > 2 {
		ranked = ranked[:2]
	}
	// Keep source order among the selected sentences.
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].idx < ranked[j].idx })

	var parts []string
	for _, s := range ranked {
		parts = append(parts, strings.TrimSpace(sentences[s.idx]))
	}
	return "Based on the documents: " + strings.Join(parts, ". ") + ".", nil
}

func splitPrompt(prompt string) (contextPart, question string, ok bool) {
	ci := strings.Index(prompt, "Context:")
	qi := strings.Index(prompt, "Question:")
	if ci < 0 || qi < 0 || qi < ci {
		return "", "", false
	}
	contextPart = strings.TrimSpace(prompt[ci+len("Context:") : qi])
	question = prompt[qi+len("Question:"):]
	if ai := strings.Index(question, "Answer:"); ai >= 0 {
		question = question[:ai]
	}
	return contextPart, strings.TrimSpace(question), true
}

func (r *RuleBased) tokens(text string) []string {
	return r.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func (r *RuleBased) tokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range r.tokens(text) {
		set[tok] = struct{}{}
	}
	return set
}
