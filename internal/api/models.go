package api

import (
	"time"

	"feedwall/internal/catalog"
	"feedwall/internal/feed"
)

// SessionView is the JSON shape of a session snapshot.
type SessionView struct {
	ID               string      `json:"id"`
	Callsign         string      `json:"callsign"`
	State            feed.State  `json:"state"`
	Message          string      `json:"message,omitempty"`
	Index            int         `json:"index"`
	Visible          int         `json:"visible"`
	Camera           *CameraView `json:"camera,omitempty"`
	Source           *feed.Issue `json:"source,omitempty"`
	Preload          *feed.Issue `json:"preload,omitempty"`
	Retrying         bool        `json:"retrying"`
	Filter           string      `json:"filter"`
	Countries        []string    `json:"countries"`
	Countdown        string      `json:"countdown"`
	CountdownSeconds int64       `json:"countdown_seconds"`
	Audio            AudioView   `json:"audio"`
}

// CameraView is a camera with its display fields.
type CameraView struct {
	ID            catalog.CameraID `json:"id"`
	Location      string           `json:"location"`
	ShortLocation string           `json:"location_short"`
	Country       string           `json:"country"`
	CountryCode   string           `json:"country_code"`
	IP            string           `json:"ip,omitempty"`
	LiveURL       string           `json:"live_url,omitempty"`
	Uptime        string           `json:"uptime,omitempty"`
	LastSeen      *time.Time       `json:"last_seen,omitempty"`
	LastSeenAgo   string           `json:"last_seen_ago,omitempty"`
}

// AudioView is the ambient state.
type AudioView struct {
	Muted       bool    `json:"muted"`
	UserMuted   bool    `json:"user_muted"`
	OverlayOpen bool    `json:"overlay_open"`
	Gain        float64 `json:"gain"`
	TargetGain  float64 `json:"target_gain"`
}

// EventView is one controller event.
type EventView struct {
	ID        uint64         `json:"id"`
	At        time.Time      `json:"at"`
	Kind      feed.EventKind `json:"kind"`
	State     feed.State     `json:"state"`
	Index     int            `json:"index"`
	CameraID  string         `json:"camera_id,omitempty"`
	Source    *feed.Issue    `json:"source,omitempty"`
	Preloaded bool           `json:"preloaded,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// OverlayItemView is one grid cell.
type OverlayItemView struct {
	Index  int        `json:"index"`
	Camera CameraView `json:"camera"`
	Source string     `json:"source"`
}

// OverlayView is the response to opening or closing the overlay.
type OverlayView struct {
	Items []OverlayItemView `json:"items"`
	Audio AudioView         `json:"audio"`
}

// CountryView pairs a canonical country with its display name.
type CountryView struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type createSessionRequest struct {
	Viewer string `json:"viewer"`
}

type filterRequest struct {
	Country *string `json:"country"`
}

type overlayRequest struct {
	Open bool `json:"open"`
}

type voteRequest struct {
	Vote string `json:"vote"`
}

func cameraView(c catalog.CameraRecord, now time.Time) CameraView {
	v := CameraView{
		ID:            c.ID,
		Location:      c.Location,
		ShortLocation: c.ShortLocation,
		Country:       c.Country,
		CountryCode:   c.CountryCode,
		IP:            c.IP(),
		LiveURL:       catalog.LiveStreamURL(c.RawURL),
	}
	if d, ok := c.Uptime(now); ok {
		v.Uptime = catalog.FormatUptime(d)
	}
	if !c.LastSeen.IsZero() {
		ls := c.LastSeen
		v.LastSeen = &ls
	}
	if d, ok := c.LastSeenAgo(now); ok {
		v.LastSeenAgo = catalog.FormatUptime(d)
	}
	return v
}

func audioView(a feed.AudioState) AudioView {
	return AudioView{
		Muted:       a.Muted,
		UserMuted:   a.UserMuted,
		OverlayOpen: a.OverlayOpen,
		Gain:        a.Gain,
		TargetGain:  a.TargetGain,
	}
}

func eventView(r feed.EventRecord) EventView {
	v := EventView{
		ID:        r.ID,
		At:        r.At,
		Kind:      r.Kind,
		State:     r.State,
		Index:     r.Index,
		CameraID:  string(r.Camera.ID),
		Preloaded: r.Preloaded,
	}
	if !r.Source.Zero() {
		src := r.Source
		v.Source = &src
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}
