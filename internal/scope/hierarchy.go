// Package scope builds organization-scoped reads over the club's tables.
//
// Every query carries an organization id. Tables that hang off the
// season/category trees also carry a Hierarchy, which selects exactly one of
// the youth or senior branch. A row with ids of both trees belongs to the
// senior tree.
package scope

import (
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
)

var (
	ErrMissingOrganization = errors.New("organization id is required")
	ErrMissingHierarchy    = errors.New("hierarchy is required")
	ErrUnknownKind         = errors.New("unknown hierarchy kind")
)

// Kind selects one of the two parallel season → category trees.
type Kind uint8

const (
	KindYouth Kind = iota + 1
	KindSenior
)

// ParseKind accepts "youth" and "senior".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "youth":
		return KindYouth, nil
	case "senior":
		return KindSenior, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) String() string {
	switch k {
	case KindYouth:
		return "youth"
	case KindSenior:
		return "senior"
	}
	return "unknown"
}

func (k Kind) Valid() bool { return k == KindYouth || k == KindSenior }

// Columns returns the season and category foreign-key columns of the tree.
func (k Kind) Columns() (season, category string) {
	if k == KindSenior {
		return "senior_season_id", "senior_category_id"
	}
	return "season_id", "category_id"
}

// Section is the permission section guarding the tree's data.
func (k Kind) Section() access.Section {
	if k == KindSenior {
		return access.SeniorFootball
	}
	return access.Football
}

// SeasonTable and CategoryTable name the tree's own season and category tables.
func (k Kind) SeasonTable() string {
	if k == KindSenior {
		return "senior_seasons"
	}
	return "seasons"
}

func (k Kind) CategoryTable() string {
	if k == KindSenior {
		return "senior_categories"
	}
	return "categories"
}

func (k Kind) other() Kind {
	if k == KindSenior {
		return KindYouth
	}
	return KindSenior
}

// Hierarchy is the tagged youth|senior scope of a read or a new row.
// Empty ids widen the scope to the whole tree.
type Hierarchy struct {
	kind       Kind
	seasonID   string
	categoryID string
}

func Youth(seasonID, categoryID string) Hierarchy {
	return Hierarchy{kind: KindYouth, seasonID: seasonID, categoryID: categoryID}
}

func Senior(seasonID, categoryID string) Hierarchy {
	return Hierarchy{kind: KindSenior, seasonID: seasonID, categoryID: categoryID}
}

// New builds a Hierarchy of kind k.
func New(k Kind, seasonID, categoryID string) (Hierarchy, error) {
	if !k.Valid() {
		return Hierarchy{}, ErrUnknownKind
	}
	return Hierarchy{kind: k, seasonID: seasonID, categoryID: categoryID}, nil
}

// FromRow classifies a row by the ids it carries. Senior ids win when both
// trees are populated. ok is false for rows attached to neither tree.
func FromRow(seasonID, categoryID, seniorSeasonID, seniorCategoryID *string) (Hierarchy, bool) {
	val := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	if val(seniorSeasonID) != "" || val(seniorCategoryID) != "" {
		return Senior(val(seniorSeasonID), val(seniorCategoryID)), true
	}
	if val(seasonID) != "" || val(categoryID) != "" {
		return Youth(val(seasonID), val(categoryID)), true
	}
	return Hierarchy{}, false
}

func (h Hierarchy) Kind() Kind                { return h.kind }
func (h Hierarchy) SeasonID() string          { return h.seasonID }
func (h Hierarchy) CategoryID() string        { return h.categoryID }
func (h Hierarchy) IsZero() bool              { return !h.kind.Valid() }
func (h Hierarchy) IsSenior() bool            { return h.kind == KindSenior }
func (h Hierarchy) Columns() (string, string) { return h.kind.Columns() }

// IDs returns the four hierarchy columns as a row would store them: the
// chosen tree's ids set, the other tree's ids NULL.
func (h Hierarchy) IDs() (seasonID, categoryID, seniorSeasonID, seniorCategoryID *string) {
	ptr := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	if h.kind == KindSenior {
		return nil, nil, ptr(h.seasonID), ptr(h.categoryID)
	}
	return ptr(h.seasonID), ptr(h.categoryID), nil, nil
}

func (h Hierarchy) String() string {
	return fmt.Sprintf("%s(season=%s,category=%s)", h.kind, h.seasonID, h.categoryID)
}
