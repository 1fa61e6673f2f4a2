package service

import (
	"fmt"
	"strings"

	"tweet_monitor/internal/domain"
)

// CompareIDs orders two decimal tweet ids numerically. Ids may exceed 64
// bits, so they are compared by normalized length and then digit by digit.
func CompareIDs(a, b string) (int, error) {
	na, err := normalizeID(a)
	if err != nil {
		return 0, err
	}
	nb, err := normalizeID(b)
	if err != nil {
		return 0, err
	}
	if len(na) != len(nb) {
		if len(na) < len(nb) {
			return -1, nil
		}
		return 1, nil
	}
	return strings.Compare(na, nb), nil
}

func normalizeID(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidCursor)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", domain.ErrInvalidCursor, id)
		}
	}
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" {
		return "0", nil
	}
	return trimmed, nil
}

// NextCursor picks the highest id among the batch and the reported newest
// id. The result never moves below current.
func NextCursor(current *string, newestID string, tweets []domain.Tweet) (*string, error) {
	var best string
	candidates := make([]string, 0, len(tweets)+1)
	for _, t := range tweets {
		candidates = append(candidates, t.TweetID)
	}
	if newestID != "" {
		candidates = append(candidates, newestID)
	}

	for _, id := range candidates {
		if best == "" {
			if _, err := normalizeID(id); err != nil {
				return nil, err
			}
			best = id
			continue
		}
		cmp, err := CompareIDs(id, best)
		if err != nil {
			return nil, err
		}
		if cmp > 0 {
			best = id
		}
	}

	if best == "" {
		return current, nil
	}
	if current != nil && *current != "" {
		if cmp, err := CompareIDs(best, *current); err == nil && cmp <= 0 {
			return current, nil
		}
	}
	return &best, nil
}
