package query

import (
	"regexp"
	"strings"
)

// DefaultMinOverlap is the minimum share of query keywords that must appear in the context.
const DefaultMinOverlap = 0.1

// OutOfScopeMessage is returned, as a successful answer, whenever a question cannot be
// answered from the document.
const OutOfScopeMessage = "I can only answer questions about the uploaded document, and it does not appear to contain information related to your question. Try rephrasing, or ask about something the document covers."

// RefusalSentence is the sentence the generator is told to use when the context is insufficient.
const RefusalSentence = "I cannot answer this from the provided document."

// metaPhrases are operations on the document as a whole.
var metaPhrases = []string{
	"summarize", "summarise", "explain", "compare", "contrast", "analyze", "analyse",
	"describe", "overview", "tell me about", "interpret", "evaluate", "what is this about",
}

// refusalPhrases are self-reported "can't answer from context" replies.
var refusalPhrases = []string{
	strings.ToLower(RefusalSentence),
	"i don't know", "i do not know",
	"i cannot answer", "i can't answer", "i am unable to answer", "i'm unable to answer",
	"cannot be answered", "can't be answered",
	"not mentioned in the context", "not mentioned in the document", "not mentioned in the provided",
	"not provided in the context", "not found in the context", "not in the provided context",
	"no information about", "does not contain information", "doesn't contain information",
	"does not provide information", "doesn't provide information",
	"not enough information", "insufficient information",
	"the context does not", "the context doesn't", "the document does not mention",
	"outside the scope",
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopwords = toSet(
	"the", "and", "but", "for", "with", "are", "was", "were", "been", "being", "this", "that",
	"these", "those", "from", "into", "about", "between", "through", "during", "before", "after",
	"above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don",
	"should", "now", "than", "such", "again", "further", "then", "else", "over", "under",
	"what", "which", "who", "whom", "whose", "when", "where", "why", "how", "does", "did",
	"has", "have", "had", "there", "their", "they", "them", "you", "your", "please", "tell",
	"give", "show", "could", "would", "any", "all", "some", "more", "most", "other", "its",
	"not", "only", "also", "our", "her", "his", "she", "him", "know", "want", "like", "get",
	"document", "file", "text",
)

// Decision is the outcome of a relevance check.
type Decision struct {
	Pass bool `json:"pass"`
	// Ratio is |query ∩ context| / |query| over keywords, when it was computed.
	Ratio float64 `json:"ratio"`
	// Reason names the rule that decided.
	Reason string `json:"reason"`
}

// Gate blocks generation when retrieved context is unlikely to address the query.
type Gate struct {
	minOverlap float64
}

// NewGate creates a Gate. A non-positive threshold uses DefaultMinOverlap.
func NewGate(minOverlap float64) *Gate {
	if minOverlap <= 0 {
		minOverlap = DefaultMinOverlap
	}
	return &Gate{minOverlap: minOverlap}
}

// Check decides whether an answer should be attempted for query given the retrieved context.
func (g *Gate) Check(query string, c Classification, context string) Decision {
	if c.WantsBreadth() {
		return Decision{Pass: true, Reason: "breadth request"}
	}
	if containsAny(strings.ToLower(query), metaPhrases) {
		return Decision{Pass: true, Reason: "document-level operation"}
	}

	qk := Keywords(query)
	if len(qk) == 0 {
		return Decision{Pass: true, Reason: "no keywords"}
	}
	ck := Keywords(context)

	hits := 0
	for k := range qk {
		if _, ok := ck[k]; ok {
			hits++
		}
	}
	ratio := float64(hits) / float64(len(qk))
	if ratio >= g.minOverlap {
		return Decision{Pass: true, Ratio: ratio, Reason: "keyword overlap"}
	}
	return Decision{Pass: false, Ratio: ratio, Reason: "insufficient keyword overlap"}
}

// Keywords returns the distinct lowercase alphanumeric tokens of at least three
// characters in text, minus stopwords.
func Keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// IsRefusal reports whether a generated answer admits it cannot answer from the context.
func IsRefusal(answer string) bool {
	lower := strings.ToLower(strings.ReplaceAll(answer, "’", "'"))
	return containsAny(lower, refusalPhrases)
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
