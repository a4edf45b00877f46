package feed

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"feedwall/internal/catalog"
)

// Config holds controller timing.
type Config struct {
	// RefreshInterval re-requests a live source; zero disables refresh.
	RefreshInterval time.Duration
	// RetryDelay is the wait before the single same-URL retry.
	RetryDelay time.Duration
	// Window is the rotation cadence; zero disables rotation.
	Window time.Duration
}

func DefaultConfig() Config {
	return Config{
		RefreshInterval: 3 * time.Second,
		RetryDelay:      2 * time.Second,
		Window:          DefaultWindow,
	}
}

// View is a read-only snapshot of the controller.
type View struct {
	State     State
	Index     int
	Visible   int
	Camera    catalog.CameraRecord
	HasCamera bool
	Source    Issue
	Preload   Issue
	Retrying  bool
	Filter    string
	Countries []string
}

// OverlayItem is one cell of the grid overlay.
type OverlayItem struct {
	Index  int
	Camera catalog.CameraRecord
	Source string
}

// Controller decides which camera is on screen and which source it uses.
// It is not safe for concurrent use: every method, and every timer callback
// scheduled through its Clock, must run on one goroutine.
type Controller struct {
	resolver *Resolver
	clock    Clock
	rotation Rotation
	cfg      Config
	log      *slog.Logger

	catalog   *catalog.Catalog
	countries []string
	filter    string
	visible   []catalog.CameraRecord

	state        State
	index        int
	chain        []Candidate
	pos          int
	retried      bool
	retryPending bool
	current      Issue
	// attemptSeq is the first seq of the current attempt on this camera and
	// tier. Refreshes extend an attempt; a display or retry starts a new one.
	attemptSeq uint64
	skipRun    int

	preload      Issue
	preloadReady bool

	seq         uint64
	rotationGen uint64
	closed      bool

	refreshTimer  Timer
	retryTimer    Timer
	rotationTimer Timer

	listeners  map[int]Listener
	listenerID int
}

func NewController(resolver *Resolver, clock Clock, cfg Config, log *slog.Logger) *Controller {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		resolver:  resolver,
		clock:     clock,
		rotation:  Rotation{Window: cfg.Window},
		cfg:       cfg,
		log:       log,
		catalog:   catalog.Empty(),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function that removes it.
func (c *Controller) Subscribe(l Listener) func() {
	c.listenerID++
	id := c.listenerID
	c.listeners[id] = l
	return func() { delete(c.listeners, id) }
}

func (c *Controller) emit(e Event) {
	for _, l := range c.listeners {
		l(e)
	}
}

// Load replaces the catalog, reapplies the current filter and shows the
// camera the rotation selects for now. An empty catalog leaves the
// controller Idle.
func (c *Controller) Load(cat *catalog.Catalog) {
	if cat == nil {
		cat = catalog.Empty()
	}
	c.stopTimer(&c.rotationTimer)
	c.catalog = cat
	c.countries = catalog.AvailableCountries(cat.Records())
	c.visible = catalog.Filter(cat.Records(), c.filter)

	switch {
	case cat.Len() == 0:
		c.clearDisplay()
		c.setState(StateIdle, catalog.ErrCatalogUnavailable)
		return
	case len(c.visible) == 0:
		c.enterExhausted()
	default:
		c.show(c.rotation.IndexAt(c.clock.Now(), len(c.visible)), false)
	}
	c.armRotation(c.clock.Now())
}

// ShowAt displays the camera at i modulo the visible length and returns the
// primary request that ended up current.
func (c *Controller) ShowAt(i int) (Issue, error) {
	if err := c.ready(); err != nil {
		return Issue{}, err
	}
	c.show(i, false)
	return c.current, nil
}

// Advance moves by dir positions, wrapping at both ends.
func (c *Controller) Advance(dir int) (Issue, error) {
	return c.ShowAt(c.index + dir)
}

func (c *Controller) ready() error {
	if c.catalog.Len() == 0 {
		return catalog.ErrCatalogUnavailable
	}
	if len(c.visible) == 0 {
		return ErrFilterYieldsEmpty
	}
	return nil
}

// SetCountryFilter narrows the visible set to one country; an empty value
// clears the filter. The current index is kept modulo the new length.
func (c *Controller) SetCountryFilter(country string) error {
	c.filter = catalog.Canonical(country)
	if c.catalog.Len() == 0 {
		return nil
	}
	c.visible = catalog.Filter(c.catalog.Records(), c.filter)
	if len(c.visible) == 0 {
		c.enterExhausted()
		return ErrFilterYieldsEmpty
	}
	c.show(c.index, false)
	return nil
}

// TagFor returns the in-flight tag with sequence number seq. Any request of
// the current attempt maps to the current camera and tier, so a refresh does
// not orphan a slow request issued before it. Unknown numbers yield a tag
// that every callback treats as stale.
func (c *Controller) TagFor(seq uint64) Tag {
	switch {
	case seq == 0:
	case seq == c.preload.Tag.Seq:
		return c.preload.Tag
	case c.attemptSeq != 0 && seq >= c.attemptSeq && seq <= c.current.Tag.Seq:
		tag := c.current.Tag
		tag.Seq = seq
		return tag
	}
	return Tag{Seq: seq}
}

// inAttempt reports whether tag belongs to the current primary attempt.
func (c *Controller) inAttempt(tag Tag) bool {
	cur := c.current.Tag
	return c.state == StateDisplaying &&
		tag.Role == RolePrimary &&
		tag.CameraID == cur.CameraID &&
		tag.Tier == cur.Tier &&
		tag.Seq >= c.attemptSeq && tag.Seq <= cur.Seq
}

// OnSourceLoaded records a successful load for tag.
func (c *Controller) OnSourceLoaded(tag Tag) error {
	if tag.Seq == 0 {
		return ErrStaleAttempt
	}
	if tag.Role == RolePreload {
		if tag != c.preload.Tag {
			return ErrStaleAttempt
		}
		c.preloadReady = true
		return nil
	}
	if !c.inAttempt(tag) {
		return ErrStaleAttempt
	}
	c.skipRun = 0
	c.retried = false
	return nil
}

// OnSourceError handles a failed request. The first failure of a networked
// source schedules one retry of the same URL; a second failure escalates to
// the next tier. Reaching the placeholder triggers the auto-skip.
func (c *Controller) OnSourceError(tag Tag) error {
	if tag.Seq == 0 {
		return ErrStaleAttempt
	}
	if tag.Role == RolePreload {
		if tag != c.preload.Tag {
			return ErrStaleAttempt
		}
		c.preloadReady = false
		return nil
	}
	if !c.inAttempt(tag) || c.retryPending {
		return ErrStaleAttempt
	}
	if !c.chain[c.pos].Tier.Networked() {
		return nil
	}

	if !c.retried {
		c.retried = true
		c.retryPending = true
		c.stopTimer(&c.refreshTimer)
		seq := c.current.Tag.Seq
		c.stopTimer(&c.retryTimer)
		c.retryTimer = c.clock.AfterFunc(c.cfg.RetryDelay, func() { c.retryFired(seq) })
		c.log.Debug("source failed, retrying", "camera_id", string(tag.CameraID), "tier", tag.Tier.String())
		return nil
	}

	c.pos++
	c.retried = false
	next := c.chain[c.pos]
	err := ErrSourceUnreachable
	if next.Tier == TierPlaceholder {
		err = ErrAllTiersExhausted
	}
	c.log.Debug("source escalated", "camera_id", string(tag.CameraID), "from", tag.Tier.String(), "to", next.Tier.String())
	c.issue(EventDisplay, c.resolver.URL(next, c.clock.Now()), false, err)
	c.settle()
	return nil
}

// View returns a snapshot of the controller state.
func (c *Controller) View() View {
	v := View{
		State:     c.state,
		Index:     c.index,
		Visible:   len(c.visible),
		Source:    c.current,
		Preload:   c.preload,
		Retrying:  c.retryPending,
		Filter:    c.filter,
		Countries: append([]string(nil), c.countries...),
	}
	if (c.state == StateDisplaying || c.state == StateTransitioning) && c.index < len(c.visible) {
		v.Camera = c.visible[c.index]
		v.HasCamera = true
	}
	return v
}

// Visible returns a copy of the visible set.
func (c *Controller) Visible() []catalog.CameraRecord {
	return append([]catalog.CameraRecord(nil), c.visible...)
}

// Rotation returns the scheduler the controller follows.
func (c *Controller) Rotation() Rotation {
	return c.rotation
}

// Overlay returns up to n random cameras from the visible set with their
// positions, for the grid overlay.
func (c *Controller) Overlay(n int, rng *rand.Rand) []OverlayItem {
	if n <= 0 || len(c.visible) == 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	perm := rng.Perm(len(c.visible))
	if n < len(perm) {
		perm = perm[:n]
	}
	now := c.clock.Now()
	items := make([]OverlayItem, 0, len(perm))
	for _, i := range perm {
		cam := c.visible[i]
		items = append(items, OverlayItem{
			Index:  i,
			Camera: cam,
			Source: c.resolver.URL(c.resolver.Resolve(cam)[0], now),
		})
	}
	return items
}

// Close stops every timer. Callbacks already queued are ignored.
func (c *Controller) Close() {
	c.closed = true
	c.stopTimer(&c.refreshTimer)
	c.stopTimer(&c.retryTimer)
	c.stopTimer(&c.rotationTimer)
}

func (c *Controller) show(i int, auto bool) {
	n := len(c.visible)
	idx := ((i % n) + n) % n

	c.stopTimer(&c.retryTimer)
	c.stopTimer(&c.refreshTimer)
	c.retryPending = false
	c.retried = false
	if !auto {
		c.skipRun = 0
	}

	c.setState(StateTransitioning, nil)
	c.index = idx
	cam := c.visible[idx]
	c.chain = c.resolver.Resolve(cam)
	c.pos = 0

	first := c.chain[0]
	preloaded := c.preloadReady && c.preload.Tag.CameraID == cam.ID && c.preload.Tag.Tier == first.Tier
	var err error
	if first.Tier == TierPlaceholder {
		err = ErrAllTiersExhausted
	}
	url := c.resolver.URL(first, c.clock.Now())
	if preloaded {
		url = c.preload.URL
	}
	c.issue(EventDisplay, url, preloaded, err)
	c.startPreload()
	c.setState(StateDisplaying, nil)
	c.settle()
}

// issue makes the current candidate the primary request.
func (c *Controller) issue(kind EventKind, url string, preloaded bool, err error) {
	c.seq++
	cam := c.visible[c.index]
	c.current = Issue{
		Tag: Tag{Seq: c.seq, CameraID: cam.ID, Tier: c.chain[c.pos].Tier, Role: RolePrimary},
		URL: url,
	}
	if kind != EventRefresh {
		c.attemptSeq = c.seq
	}
	c.emit(Event{
		Kind:      kind,
		State:     c.state,
		Index:     c.index,
		Camera:    cam,
		Source:    c.current,
		Preloaded: preloaded,
		Err:       err,
	})
}

// settle runs after a primary request is issued: placeholders trigger the
// auto-skip, live tiers get a refresh timer.
func (c *Controller) settle() {
	if c.chain[c.pos].Tier == TierPlaceholder {
		c.autoSkip()
		return
	}
	c.startRefresh()
}

// autoSkip moves past a dark camera. It never skips onto itself and stops
// once every visible camera has been tried without a successful load.
func (c *Controller) autoSkip() {
	n := len(c.visible)
	cam := c.visible[c.index]
	if n <= 1 {
		c.log.Debug("only visible camera is dark, holding placeholder", "camera_id", string(cam.ID))
		return
	}
	if c.skipRun >= n-1 {
		c.log.Info("every visible camera is dark, holding placeholder", "visible", n)
		return
	}
	c.skipRun++
	c.emit(Event{Kind: EventAutoSkip, State: c.state, Index: c.index, Camera: cam, Err: ErrAllTiersExhausted})
	c.show(c.index+1, true)
}

func (c *Controller) startPreload() {
	c.preload = Issue{}
	c.preloadReady = false
	n := len(c.visible)
	if n < 2 {
		return
	}
	next := (c.index + 1) % n
	cam := c.visible[next]
	first := c.resolver.Resolve(cam)[0]
	if !first.Tier.Networked() {
		return
	}
	c.seq++
	c.preload = Issue{
		Tag: Tag{Seq: c.seq, CameraID: cam.ID, Tier: first.Tier, Role: RolePreload},
		URL: c.resolver.URL(first, c.clock.Now()),
	}
	c.emit(Event{Kind: EventPreload, State: c.state, Index: next, Camera: cam, Source: c.preload})
}

func (c *Controller) startRefresh() {
	c.stopTimer(&c.refreshTimer)
	if c.cfg.RefreshInterval <= 0 || !c.chain[c.pos].Tier.Live() {
		return
	}
	seq := c.current.Tag.Seq
	c.refreshTimer = c.clock.AfterFunc(c.cfg.RefreshInterval, func() { c.refreshFired(seq) })
}

func (c *Controller) refreshFired(seq uint64) {
	if c.closed || c.state != StateDisplaying || seq != c.current.Tag.Seq || c.retryPending {
		return
	}
	c.refreshTimer = nil
	c.issue(EventRefresh, c.resolver.URL(c.chain[c.pos], c.clock.Now()), false, nil)
	c.startRefresh()
}

func (c *Controller) retryFired(seq uint64) {
	if c.closed || !c.retryPending || seq != c.current.Tag.Seq {
		return
	}
	c.retryTimer = nil
	c.retryPending = false
	c.issue(EventRetry, c.current.URL, false, nil)
	c.startRefresh()
}

func (c *Controller) armRotation(from time.Time) {
	c.stopTimer(&c.rotationTimer)
	if c.closed || c.cfg.Window <= 0 || c.catalog.Len() == 0 {
		return
	}
	c.rotationGen++
	gen := c.rotationGen
	boundary := c.rotation.NextBoundary(from)
	c.rotationTimer = c.clock.AfterFunc(boundary.Sub(c.clock.Now()), func() { c.rotationFired(gen, boundary) })
}

// rotationFired selects by the boundary it was armed for, so a timer that
// fires a little early still lands on the new window.
func (c *Controller) rotationFired(gen uint64, boundary time.Time) {
	if c.closed || gen != c.rotationGen {
		return
	}
	c.rotationTimer = nil
	if n := len(c.visible); n > 0 {
		c.log.Debug("rotation boundary", "window", c.rotation.WindowIndex(boundary))
		c.show(c.rotation.IndexAt(boundary, n), false)
	}
	from := c.clock.Now()
	if from.Before(boundary) {
		from = boundary
	}
	c.armRotation(from)
}

func (c *Controller) enterExhausted() {
	c.clearDisplay()
	c.setState(StateExhausted, ErrFilterYieldsEmpty)
}

func (c *Controller) clearDisplay() {
	c.stopTimer(&c.retryTimer)
	c.stopTimer(&c.refreshTimer)
	c.chain = nil
	c.pos = 0
	c.retried = false
	c.retryPending = false
	c.current = Issue{}
	c.attemptSeq = 0
	c.preload = Issue{}
	c.preloadReady = false
}

func (c *Controller) setState(s State, err error) {
	if s == c.state && err == nil {
		return
	}
	c.state = s
	c.emit(Event{Kind: EventState, State: s, Index: c.index, Err: err})
}

func (c *Controller) stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
