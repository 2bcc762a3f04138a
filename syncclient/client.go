package syncclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/kenshaw/syncdoc/jsondiff"
	"github.com/kenshaw/syncdoc/textdiff"
)

// State is one of the client's connection states.
type State int

// Client states, message-driven per the transitions in HandleLine.
const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateIndexing
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateIndexing:
		return "indexing"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// indexPageSize bounds how many rows the client asks for per index page
// during a re-index walk.
const indexPageSize = 200

// defaultUpdateDelay is how long Update coalesces rapid local edits
// before computing and sending a change. Not specified numerically by
// the reconciliation protocol; chosen short enough that interactive
// typing feels live.
const defaultUpdateDelay = 400 * time.Millisecond

// defaultResendInterval is the sole retry cadence for unacknowledged
// outbound changes.
const defaultResendInterval = 10 * time.Second

type pendingEntityVersion struct {
	id      string
	version int
}

// Options configures a Client.
type Options struct {
	App    string
	Bucket string

	Persistence Persistence
	Transport   Transport
	UI          UI // optional

	Text         *textdiff.Config // optional, defaults to textdiff.NewDefaultConfig()
	TextDeadline time.Duration    // optional, bounds a single text-leaf diff
	Clock        Clock            // optional, defaults to the wall clock

	UpdateDelay    time.Duration // optional, defaults to defaultUpdateDelay
	ResendInterval time.Duration // optional, defaults to defaultResendInterval

	Log *log.Entry // optional
}

// Client is a per-bucket synchronization state machine: it owns a local
// entity store, the monotonic ccid counter, the last_cv cursor, and the
// outbound pending-change queue, and reconciles them against inbound
// change batches from the remote store. All exported methods are safe
// for concurrent use; internally a single mutex plays the role of the
// cooperative single-task scheduler the protocol assumes.
type Client struct {
	mu sync.Mutex

	app    string
	bucket string

	clientID string
	ccid     CCID
	lastCV   string
	username string

	state State

	store map[string]*Entity
	queue []*ChangeRecord

	persist   Persistence
	transport Transport
	ui        UI
	clock     Clock
	diff      *jsondiff.Engine
	log       *log.Entry

	updateDelay    time.Duration
	resendInterval time.Duration
	resendTimer    Timer

	initialized   bool
	reindexMark   string
	pendingEntity *pendingEntityVersion
}

// NewClient constructs a Client, loading persisted identity, ccid, and
// cursor for the given app/bucket, generating and persisting a new
// client id on first use.
func NewClient(opts Options) (*Client, error) {
	if opts.Persistence == nil {
		return nil, fmt.Errorf("syncclient: Persistence is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("syncclient: Transport is required")
	}
	if opts.App == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("syncclient: App and Bucket are required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	updateDelay := opts.UpdateDelay
	if updateDelay <= 0 {
		updateDelay = defaultUpdateDelay
	}
	resendInterval := opts.ResendInterval
	if resendInterval <= 0 {
		resendInterval = defaultResendInterval
	}
	logger := opts.Log
	if logger == nil {
		logger = log.WithFields(log.Fields{"bucket": opts.Bucket})
	}

	diff := jsondiff.New(opts.Text)
	diff.TextDeadline = opts.TextDeadline

	c := &Client{
		app:            opts.App,
		bucket:         opts.Bucket,
		state:          StateDisconnected,
		store:          map[string]*Entity{},
		persist:        opts.Persistence,
		transport:      opts.Transport,
		ui:             opts.UI,
		clock:          clock,
		diff:           diff,
		log:            logger,
		updateDelay:    updateDelay,
		resendInterval: resendInterval,
		lastCV:         "0",
	}

	if err := c.loadIdentity(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) loadIdentity() error {
	if v, ok, err := c.persist.Get(keyClientID(c.app)); err != nil {
		return fmt.Errorf("syncclient: loading client id: %w", err)
	} else if ok && v != "" {
		c.clientID = v
	} else {
		c.clientID = newClientID()
		if err := c.persist.Set(keyClientID(c.app), c.clientID); err != nil {
			return fmt.Errorf("syncclient: persisting client id: %w", err)
		}
	}

	if v, ok, err := c.persist.Get(keyCCID(c.app, c.bucket)); err == nil && ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.ccid = CCID(n)
		}
	}
	if v, ok, err := c.persist.Get(keyLastCV(c.app, c.bucket)); err == nil && ok && v != "" {
		c.lastCV = v
	}
	if v, ok, err := c.persist.Get(keyUsername(c.app, c.bucket)); err == nil && ok {
		c.username = v
	}
	return nil
}

// State reports the client's current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect transitions the client out of Disconnected. The transport
// adapter owns dialing and reconnect backoff; this only marks the
// client ready to resume its own state machine once auth arrives.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateConnecting
}

// Disconnect suspends all timers and returns the client to
// Disconnected. Reconnect re-arms the resend timer and replays the
// entire send queue.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateDisconnected
	if c.resendTimer != nil {
		c.resendTimer.Stop()
		c.resendTimer = nil
	}
}

// ---------------------------------------------------------------------
// Local edit pipeline
// ---------------------------------------------------------------------

// Update records a local edit to entity id. If disconnected or a change
// is already in flight for id, the edit simply waits in Last until the
// next opportunity. Otherwise a coalesce timer is (re)armed so rapid
// successive edits collapse into a single outbound change.
func (c *Client) Update(id string, newValue jsondiff.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[id]
	if !ok {
		e = &Entity{Object: map[string]interface{}{}}
		c.store[id] = e
	}
	e.Last = jsondiff.DeepCopy(newValue)
	e.Modified = c.clock.Now()
	c.persistEntity(id, e)

	if c.state == StateDisconnected || e.Change != nil {
		return
	}
	if e.checkTimer != nil {
		e.checkTimer.Stop()
	}
	e.checkTimer = c.clock.AfterFunc(c.updateDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.fireCoalesce(id)
	})
}

func (c *Client) fireCoalesce(id string) {
	e, ok := c.store[id]
	if !ok {
		return
	}
	e.checkTimer = nil
	cr := c.makeChange(id)
	if cr == nil {
		return
	}
	e.Change = cr
	e.Last = nil
	c.queueChange(cr)
}

// makeChange computes the outbound change record for id from whatever
// the UI reports as current (falling back to Last), or nil if there is
// nothing to send. Must be called with mu held.
func (c *Client) makeChange(id string) *ChangeRecord {
	for _, qc := range c.queue {
		if qc.ID == id {
			return nil
		}
	}
	e, ok := c.store[id]
	if !ok {
		return nil
	}

	var current jsondiff.Value
	haveSnapshot := false
	if c.ui != nil {
		if snap, ok := c.ui.GetData(id); ok {
			current = snap.Value
			haveSnapshot = true
		}
	}
	if !haveSnapshot {
		current = e.Last
	}

	if current == nil && e.Version != nil {
		cr := &ChangeRecord{ID: id, CCID: c.nextCCID(), Op: OpDelete}
		sv := *e.Version
		cr.SV = &sv
		return cr
	}

	curObj, _ := current.(map[string]interface{})
	d := c.diff.ObjectDiff(e.Object, curObj)
	if d.IsEmpty() {
		return nil
	}
	cr := &ChangeRecord{ID: id, CCID: c.nextCCID(), Op: OpModify, Diff: d}
	if e.Version != nil {
		sv := *e.Version
		cr.SV = &sv
	}
	return cr
}

func (c *Client) nextCCID() CCID {
	c.ccid++
	if err := c.persist.Set(keyCCID(c.app, c.bucket), strconv.FormatUint(uint64(c.ccid), 10)); err != nil {
		c.log.WithError(err).Warn("persisting ccid")
	}
	return c.ccid
}

// queueChange appends cr to the outbound queue, transmits it right away
// if the connection can carry it, and arms the resend timer that
// periodically retransmits the whole queue until everything in it is
// acknowledged.
func (c *Client) queueChange(cr *ChangeRecord) {
	c.queue = append(c.queue, cr)
	if c.state == StateStreaming || c.state == StateIndexing {
		c.transmit(cr)
	}
	c.armResendTimer()
}

func (c *Client) transmit(cr *ChangeRecord) {
	line, err := encodeChangeBatch(cr)
	if err != nil {
		c.log.WithError(err).Error("encoding outbound change")
		return
	}
	if err := c.transport.Send(line); err != nil {
		c.log.WithError(err).Warn("sending change over transport")
	}
}

func encodeChangeBatch(crs ...*ChangeRecord) (string, error) {
	data, err := json.Marshal(crs)
	if err != nil {
		return "", err
	}
	return "c:" + string(data), nil
}

func (c *Client) armResendTimer() {
	if c.resendTimer != nil {
		return
	}
	c.resendTimer = c.clock.AfterFunc(c.resendInterval, c.resendLoop)
}

func (c *Client) resendLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resendTimer = nil
	if len(c.queue) == 0 {
		return
	}
	if c.state != StateDisconnected {
		for _, cr := range c.queue {
			c.transmit(cr)
		}
	}
	c.armResendTimer()
}

// ---------------------------------------------------------------------
// Persistence helpers (best-effort: log and continue on failure)
// ---------------------------------------------------------------------

type persistedEntity struct {
	Object  map[string]interface{} `json:"object"`
	Version *int                   `json:"version"`
	Last    jsondiff.Value         `json:"last,omitempty"`
}

func (c *Client) persistEntity(id string, e *Entity) {
	data, err := json.Marshal(persistedEntity{Object: e.Object, Version: e.Version, Last: e.Last})
	if err != nil {
		c.log.WithError(err).WithField("id", id).Error("encoding entity for persistence")
		return
	}
	if err := c.persist.Set(keyEntity(c.app, c.bucket, id), string(data)); err != nil {
		c.log.WithError(err).WithField("id", id).Warn("persisting entity")
	}
}

func (c *Client) persistDeleteEntity(id string) {
	if err := c.persist.Delete(keyEntity(c.app, c.bucket, id)); err != nil {
		c.log.WithError(err).WithField("id", id).Warn("deleting persisted entity")
	}
}

func (c *Client) persistLastCV() {
	if err := c.persist.Set(keyLastCV(c.app, c.bucket), c.lastCV); err != nil {
		c.log.WithError(err).Warn("persisting last_cv")
	}
}

func (c *Client) persistUsername() {
	if err := c.persist.Set(keyUsername(c.app, c.bucket), c.username); err != nil {
		c.log.WithError(err).Warn("persisting username")
	}
}

// ---------------------------------------------------------------------
// Inbound message dispatch
// ---------------------------------------------------------------------

// HandleLine classifies and dispatches a single inbound transport line.
func (c *Client) HandleLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatch(line)
}

func (c *Client) dispatch(line string) error {
	switch {
	case strings.HasPrefix(line, "auth:"):
		c.handleAuth(strings.TrimPrefix(line, "auth:"))
	case strings.HasPrefix(line, "ix:"):
		c.handleIndexPage([]byte(strings.TrimPrefix(line, "ix:")))
	case strings.HasPrefix(line, "i:"):
		rest := strings.TrimPrefix(line, "i:")
		if strings.HasPrefix(rest, "{") {
			c.handleFullIndex([]byte(rest))
		}
	case strings.HasPrefix(line, "cv:"):
		if strings.TrimPrefix(line, "cv:") == "?" {
			c.beginReindex()
		}
	case strings.HasPrefix(line, "c:"):
		var records []ChangeRecord
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "c:")), &records); err != nil {
			return fmt.Errorf("syncclient: decoding change batch: %w", err)
		}
		c.handleChangeBatch(records)
	case strings.HasPrefix(line, "e:"):
		return c.handleEntityLine(strings.TrimPrefix(line, "e:"))
	case strings.HasPrefix(line, "u:"):
		c.handleBucketMeta([]byte(strings.TrimPrefix(line, "u:")))
	default:
		return fmt.Errorf("syncclient: unrecognized message: %q", line)
	}
	return nil
}

func (c *Client) handleAuth(rest string) {
	if rest == "expired" {
		c.state = StateDisconnected
		if c.resendTimer != nil {
			c.resendTimer.Stop()
			c.resendTimer = nil
		}
		c.log.Error("authentication expired")
		return
	}
	c.username = rest
	c.persistUsername()
	c.state = StateAuthenticating

	if c.lastCV == "0" || c.lastCV == "" {
		c.beginReindex()
		return
	}
	c.state = StateStreaming
	if err := c.transport.Send("cv:" + c.lastCV); err != nil {
		c.log.WithError(err).Warn("requesting changes since cursor")
	}
	for _, cr := range c.queue {
		c.transmit(cr)
	}
	c.armResendTimer()
}

// RequestEntityVersion asks the server for a specific historical version
// of an entity, delivered asynchronously via NotifyVersion.
func (c *Client) RequestEntityVersion(id string, version int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.Send(fmt.Sprintf("e:%s.%d", id, version))
}

func (c *Client) handleEntityLine(rest string) error {
	if c.pendingEntity == nil {
		id, version, ok := parseEntityHeader(rest)
		if !ok {
			return fmt.Errorf("syncclient: malformed entity version header: %q", rest)
		}
		c.pendingEntity = &pendingEntityVersion{id: id, version: version}
		return nil
	}
	pending := c.pendingEntity
	c.pendingEntity = nil
	if rest == "?" {
		return nil
	}
	var v jsondiff.Value
	if err := json.Unmarshal([]byte(rest), &v); err != nil {
		return fmt.Errorf("syncclient: decoding entity version body: %w", err)
	}
	if c.ui != nil {
		c.ui.NotifyVersion(pending.id, v, pending.version)
	}
	return nil
}

func parseEntityHeader(s string) (id string, version int, ok bool) {
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(s[dot+1:])
	if err != nil {
		return "", 0, false
	}
	return s[:dot], n, true
}

func (c *Client) handleBucketMeta(data []byte) {
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		c.log.WithError(err).Error("decoding bucket metadata")
		return
	}
	c.log.WithField("meta", meta).Info("received bucket metadata")
}

// ---------------------------------------------------------------------
// Inbound change batch reconciliation
// ---------------------------------------------------------------------

func (c *Client) findPending(id string, ccid CCID, ccids []CCID) int {
	for i, qc := range c.queue {
		if qc.ID != id {
			continue
		}
		if qc.CCID == ccid {
			return i
		}
		for _, x := range ccids {
			if qc.CCID == x {
				return i
			}
		}
	}
	return -1
}

func (c *Client) handleChangeBatch(records []ChangeRecord) {
	reloadNeeded := false
	var checkUpdates []string

	for _, rec := range records {
		local := false
		if rec.ClientID != "" && rec.ClientID == c.clientID {
			if idx := c.findPending(rec.ID, rec.CCID, rec.CCIDs); idx >= 0 {
				local = true
				c.queue = append(c.queue[:idx], c.queue[idx+1:]...)
				if e, ok := c.store[rec.ID]; ok {
					e.Change = nil
				}
				checkUpdates = append(checkUpdates, rec.ID)
			}
		}

		if rec.Error != nil {
			if *rec.Error != 409 {
				if e, ok := c.store[rec.ID]; ok {
					e.Version = nil
				}
				reloadNeeded = true
			}
			if rec.CV != "" {
				c.lastCV = rec.CV
				c.persistLastCV()
			}
			continue
		}

		switch rec.Op {
		case OpDelete:
			delete(c.store, rec.ID)
			c.persistDeleteEntity(rec.ID)
			if !local && c.ui != nil {
				c.ui.Notify(rec.ID, NotifyResult{Deleted: true})
			}

		case OpModify:
			c.applyModify(rec, local, &reloadNeeded)
		}

		if rec.CV != "" {
			c.lastCV = rec.CV
			c.persistLastCV()
		}
	}

	if reloadNeeded {
		c.beginReindex()
		return
	}
	for _, id := range checkUpdates {
		e, ok := c.store[id]
		if !ok {
			continue
		}
		if e.Last == nil {
			if c.ui == nil {
				continue
			}
			if _, ok := c.ui.GetData(id); !ok {
				continue
			}
		}
		if cr := c.makeChange(id); cr != nil {
			e.Change = cr
			e.Last = nil
			c.queueChange(cr)
		}
	}
}

func (c *Client) applyModify(rec ChangeRecord, local bool, reloadNeeded *bool) {
	e, ok := c.store[rec.ID]
	if !ok {
		e = &Entity{Object: map[string]interface{}{}}
		c.store[rec.ID] = e
	}

	svMatches := rec.SV == nil || (e.Version != nil && *rec.SV == *e.Version)
	if !svMatches {
		if rec.EV != nil && e.Version != nil && *rec.EV <= *e.Version {
			return // duplicate, already applied
		}
		e.Version = nil
		*reloadNeeded = true
		return
	}

	orig := cloneEntityObject(e.Object)
	newObj, err := c.diff.ApplyObjectDiff(e.Object, rec.Diff)
	if err != nil {
		c.log.WithError(err).WithField("id", rec.ID).Error("applying inbound structural diff")
		e.Version = nil
		*reloadNeeded = true
		return
	}
	e.Object = newObj
	if rec.EV != nil {
		ev := *rec.EV
		e.Version = &ev
	}
	c.persistEntity(rec.ID, e)

	if !local {
		c.notifyClient(rec.ID, newObj, orig, rec.Diff)
	}
}

// notifyClient delivers a remote update to the UI, rebasing it against
// the user's uncommitted local edits (if any) so neither side's work is
// silently dropped.
func (c *Client) notifyClient(id string, newVal map[string]interface{}, orig map[string]interface{}, remoteDiff jsondiff.Diff) {
	if c.ui == nil {
		return
	}
	snap, ok := c.ui.GetData(id)
	if !ok {
		c.ui.Notify(id, NotifyResult{Value: newVal})
		return
	}
	curObj, _ := snap.Value.(map[string]interface{})
	if curObj == nil {
		c.ui.Notify(id, NotifyResult{Value: newVal})
		return
	}

	oDiff := c.diff.ObjectDiff(orig, curObj)
	if oDiff.IsEmpty() {
		c.ui.Notify(id, NotifyResult{Value: newVal})
		return
	}

	tDiff, err := c.diff.TransformObjectDiff(oDiff, remoteDiff, orig)
	if err != nil {
		c.log.WithError(err).WithField("id", id).Error("transforming local edit against remote change")
		c.ui.Notify(id, NotifyResult{Value: newVal})
		return
	}

	if snap.Field != "" {
		applied, offsets, err := c.diff.ApplyObjectDiffWithOffsets(curObj, tDiff, snap.Field, snap.Offsets)
		if err != nil {
			c.log.WithError(err).WithField("id", id).Error("applying rebased diff with offsets")
			c.ui.Notify(id, NotifyResult{Value: newVal})
			return
		}
		c.ui.Notify(id, NotifyResult{Value: applied, Offsets: offsets})
		return
	}

	applied, err := c.diff.ApplyObjectDiff(curObj, tDiff)
	if err != nil {
		c.log.WithError(err).WithField("id", id).Error("applying rebased diff")
		c.ui.Notify(id, NotifyResult{Value: newVal})
		return
	}
	c.ui.Notify(id, NotifyResult{Value: applied})
}

// ---------------------------------------------------------------------
// Re-index
// ---------------------------------------------------------------------

func (c *Client) beginReindex() {
	c.state = StateIndexing
	c.reindexMark = ""
	c.requestIndexPage("")
}

func (c *Client) requestIndexPage(mark string) {
	line := fmt.Sprintf("i:%s:%s::%d", c.bucket, mark, indexPageSize)
	if err := c.transport.Send(line); err != nil {
		c.log.WithError(err).Warn("requesting index page")
	}
}

func (c *Client) handleFullIndex(data []byte) {
	var fi fullIndex
	if err := json.Unmarshal(data, &fi); err != nil {
		c.log.WithError(err).Error("decoding full index")
		return
	}
	for id, v := range fi.Index {
		c.onEntityVersion(nil, id, v)
	}
	if fi.CV != "" {
		c.lastCV = fi.CV
		c.persistLastCV()
	}
	c.finishIndexing()
}

func (c *Client) handleIndexPage(data []byte) {
	var page indexPage
	if err := json.Unmarshal(data, &page); err != nil {
		c.log.WithError(err).Error("decoding index page")
		return
	}
	for _, row := range page.Index {
		var v jsondiff.Value
		if len(row.Data) > 0 {
			if err := json.Unmarshal(row.Data, &v); err != nil {
				c.log.WithError(err).WithField("id", row.ID).Error("decoding index row")
				continue
			}
		}
		c.onEntityVersion(v, row.ID, row.Version)
	}
	if page.Mark != "" {
		c.reindexMark = page.Mark
		c.requestIndexPage(page.Mark)
		return
	}
	if page.Current != "" {
		c.lastCV = page.Current
		c.persistLastCV()
	}
	c.finishIndexing()
}

// onEntityVersion ingests a single index row: it installs a new
// snapshot when the row is newer than what's held locally, or routes it
// to the UI's version callback when it's an older row delivered for
// history purposes.
func (c *Client) onEntityVersion(v jsondiff.Value, id string, version int) {
	e, ok := c.store[id]
	if !ok {
		ver := version
		c.store[id] = &Entity{Object: cloneEntityObject(v), Version: &ver}
		c.persistEntity(id, c.store[id])
		return
	}
	if e.Version == nil || version > *e.Version {
		if v != nil {
			e.Object = cloneEntityObject(v)
		}
		ver := version
		e.Version = &ver
		c.persistEntity(id, e)
		return
	}
	if version < *e.Version && c.ui != nil {
		c.ui.NotifyVersion(id, v, version)
	}
}

func (c *Client) finishIndexing() {
	c.state = StateStreaming
	c.initialized = true
	if c.ui != nil {
		c.ui.Initialized()
	}
	for _, cr := range c.queue {
		c.transmit(cr)
	}
	c.armResendTimer()
}

// Initialized reports whether the client's first full index has landed.
func (c *Client) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}
