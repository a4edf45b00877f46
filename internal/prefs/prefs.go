package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"feedwall/internal/catalog"
)

// Vote is a viewer's thumbs up or down on a camera.
type Vote int

const (
	VoteNone Vote = 0
	VoteUp   Vote = 1
	VoteDown Vote = -1
)

// ErrInvalidVote rejects anything but up, down or none.
var ErrInvalidVote = errors.New("prefs: invalid vote")

func (v Vote) String() string {
	switch v {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	default:
		return "none"
	}
}

// ParseVote accepts up/down/none and +1/-1/0.
func ParseVote(s string) (Vote, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "1", "+1":
		return VoteUp, nil
	case "down", "-1":
		return VoteDown, nil
	case "none", "0", "":
		return VoteNone, nil
	}
	return VoteNone, fmt.Errorf("%w: %q", ErrInvalidVote, s)
}

// VoteKey is the stable key for a camera's vote.
func VoteKey(id catalog.CameraID) string {
	return "vote:" + string(id)
}

const filterKey = "country_filter"

// Prefs is one viewer's view of a Store.
type Prefs struct {
	store  Store
	prefix string
}

// ForViewer scopes store to viewer. An empty viewer shares the global scope.
func ForViewer(store Store, viewer string) *Prefs {
	prefix := ""
	if viewer != "" {
		prefix = "viewer:" + viewer + ":"
	}
	return &Prefs{store: store, prefix: prefix}
}

// CountryFilter returns the saved filter, or "" when none is saved.
func (p *Prefs) CountryFilter(ctx context.Context) (string, error) {
	v, err := p.store.Get(ctx, p.prefix+filterKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SetCountryFilter saves the canonical filter; "" clears it.
func (p *Prefs) SetCountryFilter(ctx context.Context, country string) error {
	country = catalog.Canonical(country)
	if country == "" {
		return p.store.Delete(ctx, p.prefix+filterKey)
	}
	return p.store.Set(ctx, p.prefix+filterKey, country)
}

// Vote returns the viewer's vote on id.
func (p *Prefs) Vote(ctx context.Context, id catalog.CameraID) (Vote, error) {
	v, err := p.store.Get(ctx, p.prefix+VoteKey(id))
	if errors.Is(err, ErrNotFound) {
		return VoteNone, nil
	}
	if err != nil {
		return VoteNone, err
	}
	return ParseVote(v)
}

// SetVote records v on id; VoteNone removes the vote.
func (p *Prefs) SetVote(ctx context.Context, id catalog.CameraID, v Vote) error {
	if v == VoteNone {
		return p.store.Delete(ctx, p.prefix+VoteKey(id))
	}
	return p.store.Set(ctx, p.prefix+VoteKey(id), v.String())
}
