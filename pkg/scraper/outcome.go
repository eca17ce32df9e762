package scraper

import (
	"nitterscraper/pkg/models"
	"nitterscraper/pkg/nitter"
)

// OutcomeKind is the result of asking one mirror for one account
type OutcomeKind string

const (
	// OutcomeSuccess means the mirror returned at least one post
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeEmpty means the mirror answered but had nothing
	OutcomeEmpty OutcomeKind = "empty"
	// OutcomeEndpointError means the mirror failed
	OutcomeEndpointError OutcomeKind = "error"
)

// Outcome is a classified fetch result
type Outcome struct {
	Kind   OutcomeKind
	Tweets []*models.Fields
	Err    error
}

func classify(timeline *nitter.Timeline, err error) Outcome {
	switch {
	case err != nil:
		return Outcome{Kind: OutcomeEndpointError, Err: err}
	case timeline.Len() == 0:
		return Outcome{Kind: OutcomeEmpty}
	default:
		return Outcome{Kind: OutcomeSuccess, Tweets: timeline.Tweets}
	}
}
