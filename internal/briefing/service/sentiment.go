package service

import (
	"sort"

	"golang-market-briefing/internal/entity"
)

// Aggregator folds scored news records into per-scope signal
// classifications. Buckets live for one run only.
type Aggregator struct{}

// NewAggregator creates an Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate counts each record's polarity into the overall bucket and into
// the bucket of every sector the record belongs to, then classifies every
// scope. A record contributes exactly one polarity per scope. The result
// always contains the overall scope.
func (a *Aggregator) Aggregate(scoredNews []entity.ScoredRecord) map[string]entity.Signal {
	buckets := map[string]*entity.SentimentBucket{
		entity.ScopeOverall: {Scope: entity.ScopeOverall},
	}

	for _, record := range scoredNews {
		a.count(buckets[entity.ScopeOverall], record.Polarity)
		for _, sector := range record.Sectors {
			bucket, ok := buckets[sector]
			if !ok {
				bucket = &entity.SentimentBucket{Scope: sector}
				buckets[sector] = bucket
			}
			a.count(bucket, record.Polarity)
		}
	}

	signals := make(map[string]entity.Signal, len(buckets))
	for scope, bucket := range buckets {
		signals[scope] = bucket.Classify()
	}
	return signals
}

func (a *Aggregator) count(bucket *entity.SentimentBucket, polarity entity.Polarity) {
	switch polarity {
	case entity.PolarityBullish:
		bucket.BullishCount++
	case entity.PolarityBearish:
		bucket.BearishCount++
	default:
		bucket.NeutralCount++
	}
}

// SortedScopes returns the scopes of a signal map with overall first and
// sectors alphabetical, for stable rendering.
func SortedScopes(signals map[string]entity.Signal) []string {
	scopes := make([]string, 0, len(signals))
	for scope := range signals {
		if scope != entity.ScopeOverall {
			scopes = append(scopes, scope)
		}
	}
	sort.Strings(scopes)
	if _, ok := signals[entity.ScopeOverall]; ok {
		scopes = append([]string{entity.ScopeOverall}, scopes...)
	}
	return scopes
}
