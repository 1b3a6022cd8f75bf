package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MaxKeywords is the number of extracted keywords kept per document.
const MaxKeywords = 3

// Kind tells which side of the matching a document belongs to.
type Kind string

const (
	KindJob      Kind = "job"
	KindEngineer Kind = "engineer"
)

// ParseKind converts a user-supplied string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindJob:
		return KindJob, nil
	case KindEngineer:
		return KindEngineer, nil
	default:
		return "", fmt.Errorf("%w: unknown document kind %q", ErrInvalidArgument, s)
	}
}

// Opposite returns the side this kind is matched against.
func (k Kind) Opposite() Kind {
	if k == KindJob {
		return KindEngineer
	}
	return KindJob
}

// Document is a job posting or an engineer profile. Identity is immutable
// once created; text and keywords may be replaced in place for re-evaluation.
type Document struct {
	ID             int64
	Kind           Kind
	Text           string
	Keywords       []string
	CreatedAt      time.Time
	IsHidden       bool
	AssignedUserID *int64

	// PendingIndex is set when the document row is durable but its vector
	// never made it into the index. A reconciliation pass can pick these up.
	PendingIndex bool
}

// NormalizeKeywords trims, deduplicates and caps a keyword list at
// MaxKeywords, preserving the original order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, MaxKeywords)
	seen := make(map[string]struct{}, MaxKeywords)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lower := strings.ToLower(kw)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, kw)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// KeywordsIntersect reports whether the two keyword lists share at least one
// entry, compared case-insensitively.
func KeywordsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, kw := range a {
		set[strings.ToLower(strings.TrimSpace(kw))] = struct{}{}
	}
	for _, kw := range b {
		if _, ok := set[strings.ToLower(strings.TrimSpace(kw))]; ok {
			return true
		}
	}
	return false
}

// DocumentFilter narrows ListIDs results.
type DocumentFilter struct {
	Kind          Kind
	IncludeHidden bool
	PendingOnly   bool
	Limit         int
	Offset        int
}

// DocumentStore is the durable record of job and engineer documents.
type DocumentStore interface {
	Create(ctx context.Context, doc *Document) (int64, error)
	Get(ctx context.Context, id int64) (*Document, error)
	UpdateText(ctx context.Context, id int64, text string) error
	SetHidden(ctx context.Context, id int64, hidden bool) error
	SetKeywords(ctx context.Context, id int64, keywords []string) error
	SetPendingIndex(ctx context.Context, id int64, pending bool) error
	ListIDs(ctx context.Context, filter DocumentFilter) ([]int64, error)
}
