// Package query classifies questions and decides whether retrieved context can answer them.
package query

import "strings"

// DefaultBroadWidthCap bounds the retrieval width of broad and content-request queries.
const DefaultBroadWidthCap = 15

// broadPhrases signal a whole-document intent.
var broadPhrases = []string{
	"summarize", "summarise", "summary", "overview", "outline",
	"what is this document", "what is this file", "what's this document", "what does this document",
	"what is the document about", "what is this about",
	"main points", "key points", "main ideas", "key ideas", "key takeaways",
	"whole document", "entire document", "whole file", "entire file",
	"the gist", "tl;dr", "tldr", "high level", "high-level",
}

// contentRequestPhrases signal an explicit listing or dumping intent.
var contentRequestPhrases = []string{
	"list all", "list every", "show all", "show me all", "show me everything",
	"give me all", "give me everything", "everything in", "full content", "full text",
	"all the content", "all content", "entire content", "dump", "print all", "print everything",
	"every row", "all rows", "all entries", "all items", "all records",
}

// Classification describes the shape of a query.
type Classification struct {
	// Width is the number of chunks to retrieve.
	Width int `json:"width"`
	// Broad is set for summary/overview style queries.
	Broad bool `json:"broad"`
	// ContentRequest is set for explicit "list everything" queries.
	ContentRequest bool `json:"content_request"`

	WordCount     int `json:"word_count"`
	QuestionMarks int `json:"question_marks"`
}

// WantsBreadth reports whether the query should be served by the breadth strategy.
func (c Classification) WantsBreadth() bool {
	return c.Broad || c.ContentRequest
}

// Classifier picks a retrieval width for a query.
type Classifier struct {
	broadWidthCap int
}

// NewClassifier creates a Classifier. A non-positive cap uses DefaultBroadWidthCap.
func NewClassifier(broadWidthCap int) *Classifier {
	if broadWidthCap <= 0 {
		broadWidthCap = DefaultBroadWidthCap
	}
	return &Classifier{broadWidthCap: broadWidthCap}
}

// Classify is pure: the result depends only on the query text and totalChunks.
func (c *Classifier) Classify(query string, totalChunks int) Classification {
	lower := strings.ToLower(query)
	out := Classification{
		WordCount:      len(strings.Fields(query)),
		QuestionMarks:  strings.Count(query, "?"),
		Broad:          containsAny(lower, broadPhrases),
		ContentRequest: containsAny(lower, contentRequestPhrases),
	}

	switch {
	case out.WordCount > 15 || out.QuestionMarks > 1:
		out.Width = 6
	case out.WordCount > 8:
		out.Width = 5
	default:
		out.Width = 4
	}

	if out.WantsBreadth() {
		out.Width = min(totalChunks, c.broadWidthCap)
	}
	return out
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
