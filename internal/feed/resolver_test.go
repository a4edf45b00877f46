package feed

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedwall/internal/catalog"
)

func TestResolve_properties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	r := NewResolver(catalog.NewThumbnailIndex(nil), DefaultResolverConfig())

	properties.Property("empty url yields only the placeholder", prop.ForAll(
		func(id string, blank string) bool {
			chain := r.Resolve(catalog.CameraRecord{ID: catalog.CameraID(id), RawURL: blank})
			return len(chain) == 1 && chain[0].Tier == TierPlaceholder
		},
		gen.Identifier(),
		gen.OneConstOf("", " ", "\t", "  \n"),
	))

	properties.Property("no thumbnail starts at the live snapshot", prop.ForAll(
		func(id string) bool {
			chain := r.Resolve(catalog.CameraRecord{ID: catalog.CameraID(id), RawURL: "http://10.0.0.1/snap.jpg"})
			return chain[0].Tier == TierSnapshot && chain[len(chain)-1].Tier == TierPlaceholder
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestResolve_with_thumbnail(t *testing.T) {
	r := NewResolver(catalog.NewThumbnailIndex([]catalog.CameraID{"42"}), DefaultResolverConfig())

	chain := r.Resolve(catalog.CameraRecord{ID: "42", RawURL: "http://1.2.3.4/image.jpg"})
	require.Len(t, chain, 4)
	assert.Equal(t, Candidate{Tier: TierThumbnail, URL: "/thumbnails/42.jpg"}, chain[0])
	assert.Equal(t, Candidate{Tier: TierThumbnailAlt, URL: "/thumbnails/42.png"}, chain[1])
	assert.Equal(t, TierSnapshot, chain[2].Tier)
	assert.Equal(t, Candidate{Tier: TierPlaceholder, URL: "/static/no-signal.svg"}, chain[3])
}

func TestResolver_URL(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	snap := Candidate{Tier: TierSnapshot, URL: "http://1.2.3.4/snap.cgi?res=1"}
	secure := Candidate{Tier: TierSnapshot, URL: "https://cam.example/still.jpg"}

	t.Run("always proxies", func(t *testing.T) {
		r := NewResolver(nil, ResolverConfig{ProxyMode: ProxyAlways})
		got := r.URL(secure, at)
		require.True(t, strings.HasPrefix(got, "/feed-proxy?"), got)
		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "1", u.Query().Get("single"))
		assert.Equal(t, "https://cam.example/still.jpg?t=1700000000123", u.Query().Get("url"))
	})

	t.Run("mixed proxies plain http only", func(t *testing.T) {
		r := NewResolver(nil, ResolverConfig{ProxyMode: ProxyMixed})
		assert.True(t, strings.HasPrefix(r.URL(snap, at), "/feed-proxy?"))
		assert.Equal(t, "https://cam.example/still.jpg?t=1700000000123", r.URL(secure, at))
	})

	t.Run("never goes direct", func(t *testing.T) {
		r := NewResolver(nil, ResolverConfig{ProxyMode: ProxyNever})
		assert.Equal(t, "http://1.2.3.4/snap.cgi?res=1&t=1700000000123", r.URL(snap, at))
	})

	t.Run("static tiers are untouched", func(t *testing.T) {
		r := NewResolver(nil, ResolverConfig{})
		thumb := Candidate{Tier: TierThumbnail, URL: "/thumbnails/1.jpg"}
		assert.Equal(t, "/thumbnails/1.jpg", r.URL(thumb, at))
	})
}

func TestParseProxyMode(t *testing.T) {
	assert.Equal(t, ProxyMixed, ParseProxyMode(" Mixed "))
	assert.Equal(t, ProxyNever, ParseProxyMode("never"))
	assert.Equal(t, ProxyAlways, ParseProxyMode("bogus"))
	assert.Equal(t, ProxyAlways, ParseProxyMode(""))
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "thumbnail_alt", TierThumbnailAlt.String())
	assert.Equal(t, "unknown", Tier(9).String())
	assert.False(t, TierPlaceholder.Networked())
	assert.True(t, TierSnapshot.Live())
	assert.False(t, TierThumbnail.Live())
}

func TestTag_text_round_trip(t *testing.T) {
	in := Tag{Seq: 7, CameraID: "9", Tier: TierSnapshot, Role: RolePreload}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":7,"camera_id":"9","tier":"snapshot","role":"preload"}`, string(b))

	var out Tag
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	var tier Tier
	assert.Error(t, tier.UnmarshalText([]byte("hologram")))
}
