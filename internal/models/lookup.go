package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/qcat/internal/shared"
)

// Lookup operations recorded in history.
const (
	OpSearch   = "search"
	OpArtist   = "artist"
	OpReleases = "releases"
	OpAlbum    = "album"
	OpStream   = "stream"
)

// Lookup records one gateway call made through the CLI or HTTP surface.
type Lookup struct {
	id          string
	sequence    int
	operation   string
	query       string
	entityHint  EntityHint
	region      string
	resultCount int
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewLookup creates a Lookup stamped with the current time. The ID is assigned by the repository.
func NewLookup(sequence int, operation, query, region string) *Lookup {
	now := time.Now()
	return &Lookup{
		sequence:  sequence,
		operation: operation,
		query:     query,
		region:    shared.NormalizeRegion(region),
		createdAt: now,
		updatedAt: now,
	}
}

func (l *Lookup) ID() string { return l.id }
func (l *Lookup) Sequence() int { return l.sequence }
func (l *Lookup) Operation() string { return l.operation }
func (l *Lookup) Query() string { return l.query }
func (l *Lookup) EntityHint() EntityHint { return l.entityHint }
func (l *Lookup) Region() string { return l.region }
func (l *Lookup) ResultCount() int { return l.resultCount }
func (l *Lookup) CreatedAt() time.Time { return l.createdAt }
func (l *Lookup) UpdatedAt() time.Time { return l.updatedAt }
func (l *Lookup) DeletedAt() *time.Time { return l.deletedAt }

func (l *Lookup) SetID(id string) { l.id = id }
func (l *Lookup) SetSequence(seq int) { l.sequence = seq }
func (l *Lookup) SetEntityHint(h EntityHint) { l.entityHint = h }
func (l *Lookup) SetResultCount(n int) { l.resultCount = n }
func (l *Lookup) SetCreatedAt(t time.Time) { l.createdAt = t }
func (l *Lookup) SetUpdatedAt(t time.Time) { l.updatedAt = t }
func (l *Lookup) SetDeletedAt(t *time.Time) { l.deletedAt = t }
func (l *Lookup) IsDeleted() bool { return l.deletedAt != nil }

// Validate checks the lookup has an operation and a query.
func (l *Lookup) Validate() error {
	switch l.operation {
	case OpSearch, OpArtist, OpReleases, OpAlbum, OpStream:
	default:
		return fmt.Errorf("%w: unknown lookup operation %q", shared.ErrInvalidInput, l.operation)
	}
	if strings.TrimSpace(l.query) == "" {
		return fmt.Errorf("%w: lookup query is empty", shared.ErrInvalidInput)
	}
	if l.resultCount < 0 {
		return fmt.Errorf("%w: negative result count", shared.ErrInvalidInput)
	}
	return nil
}
