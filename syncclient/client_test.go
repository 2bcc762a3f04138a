package syncclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenshaw/syncdoc/jsondiff"
)

// fakeClock records scheduled work instead of running it, so tests
// decide exactly when a coalesce or resend timer fires by calling
// fire() from outside any lock the callback itself needs to acquire.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
}

type fakeTimer struct {
	stopped bool
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	wasStopped := t.stopped
	t.stopped = true
	return !wasStopped
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: f}
	c.pending = append(c.pending, t)
	return t
}

// fire runs every timer scheduled since the last fire, skipping any that
// were stopped in the meantime.
func (c *fakeClock) fire() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, t := range pending {
		if !t.stopped {
			t.fn()
		}
	}
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []string
}

func (ft *fakeTransport) Send(line string) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.sent = append(ft.sent, line)
	return nil
}

func (ft *fakeTransport) last() string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.sent) == 0 {
		return ""
	}
	return ft.sent[len(ft.sent)-1]
}

type fakeUI struct {
	notifications []NotifyResult
	versions      []int
	data          map[string]DataSnapshot
	initCount     int
}

func newFakeUI() *fakeUI {
	return &fakeUI{data: map[string]DataSnapshot{}}
}

func (u *fakeUI) Notify(id string, result NotifyResult) {
	u.notifications = append(u.notifications, result)
}

func (u *fakeUI) NotifyVersion(id string, value interface{}, version int) {
	u.versions = append(u.versions, version)
}

func (u *fakeUI) GetData(id string) (DataSnapshot, bool) {
	snap, ok := u.data[id]
	return snap, ok
}

func (u *fakeUI) Initialized() { u.initCount++ }

func newTestClient(t *testing.T, ui UI) (*Client, *fakeTransport) {
	t.Helper()
	c, transport, _ := newTestClientWithClock(t, ui)
	return c, transport
}

func newTestClientWithClock(t *testing.T, ui UI) (*Client, *fakeTransport, *fakeClock) {
	t.Helper()
	transport := &fakeTransport{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	c, err := NewClient(Options{
		App:         "app",
		Bucket:      "bucket1",
		Persistence: NewMemPersistence(),
		Transport:   transport,
		UI:          ui,
		Clock:       clock,
	})
	require.NoError(t, err)
	return c, transport, clock
}

func TestNewClientGeneratesAndPersistsClientID(t *testing.T) {
	persist := NewMemPersistence()
	transport := &fakeTransport{}
	c1, err := NewClient(Options{App: "app", Bucket: "b", Persistence: persist, Transport: transport})
	require.NoError(t, err)

	c2, err := NewClient(Options{App: "app", Bucket: "b", Persistence: persist, Transport: transport})
	require.NoError(t, err)

	assert.Equal(t, c1.clientID, c2.clientID)
	assert.Len(t, c1.clientID, 24)
}

func TestUpdateQueuesChangeWhenStreaming(t *testing.T) {
	c, transport, clock := newTestClientWithClock(t, nil)
	c.state = StateStreaming

	c.Update("doc1", map[string]interface{}{"t": "hello"})
	clock.fire()

	assert.Contains(t, transport.last(), `"id":"doc1"`)
	assert.Contains(t, transport.last(), `"o":"M"`)
	assert.Len(t, c.queue, 1)
}

func TestUpdateDoesNothingWhileDisconnected(t *testing.T) {
	c, transport := newTestClient(t, nil)
	c.state = StateDisconnected

	c.Update("doc1", map[string]interface{}{"t": "hello"})

	assert.Empty(t, transport.sent)
	assert.Empty(t, c.queue)
	// the edit still lands in Last so it can be sent once reconnected.
	assert.Equal(t, map[string]interface{}{"t": "hello"}, c.store["doc1"].Last)
}

func TestMakeChangeSkipsWhenAlreadyQueued(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.state = StateStreaming
	c.store["doc1"] = &Entity{Object: map[string]interface{}{}}
	c.queue = append(c.queue, &ChangeRecord{ID: "doc1"})

	cr := c.makeChange("doc1")
	assert.Nil(t, cr)
}

func TestMakeChangeEmitsDeleteWhenCurrentIsNilAndVersioned(t *testing.T) {
	c, _ := newTestClient(t, nil)
	v := 3
	c.store["doc1"] = &Entity{Object: map[string]interface{}{"t": "x"}, Version: &v, Last: nil}

	cr := c.makeChange("doc1")
	require.NotNil(t, cr)
	assert.Equal(t, OpDelete, cr.Op)
	require.NotNil(t, cr.SV)
	assert.Equal(t, 3, *cr.SV)
}

func TestAckedChangeClearsQueueAndSuppressesNotify(t *testing.T) {
	ui := newFakeUI()
	c, _ := newTestClient(t, ui)
	c.state = StateStreaming
	c.store["doc1"] = &Entity{Object: map[string]interface{}{"t": "hello"}}
	c.queue = append(c.queue, &ChangeRecord{ID: "doc1", CCID: 1, Op: OpModify})
	c.store["doc1"].Change = c.queue[0]

	ev := 2
	line, err := json.Marshal([]ChangeRecord{{
		ID:       "doc1",
		CCID:     1,
		ClientID: c.clientID,
		EV:       &ev,
		Op:       OpModify,
	}})
	require.NoError(t, err)

	err = c.HandleLine("c:" + string(line))
	require.NoError(t, err)

	assert.Empty(t, c.queue)
	assert.Nil(t, c.store["doc1"].Change)
	assert.Empty(t, ui.notifications)
	require.NotNil(t, c.store["doc1"].Version)
	assert.Equal(t, 2, *c.store["doc1"].Version)
}

func TestInboundModifyNotifiesUIWhenNotLocal(t *testing.T) {
	ui := newFakeUI()
	c, _ := newTestClient(t, ui)
	c.state = StateStreaming
	c.store["doc1"] = &Entity{Object: map[string]interface{}{"t": "hello"}}

	diff := c.diff.ObjectDiff(
		map[string]interface{}{"t": "hello"},
		map[string]interface{}{"t": "hello!"},
	)
	ev := 1
	rec := ChangeRecord{ID: "doc1", ClientID: "someone-else", EV: &ev, Op: OpModify, Diff: diff}
	line, err := json.Marshal([]ChangeRecord{rec})
	require.NoError(t, err)

	err = c.HandleLine("c:" + string(line))
	require.NoError(t, err)

	require.Len(t, ui.notifications, 1)
	assert.Equal(t, "hello!", ui.notifications[0].Value.(map[string]interface{})["t"])
}

func TestInboundDeleteRemovesEntity(t *testing.T) {
	ui := newFakeUI()
	c, _ := newTestClient(t, ui)
	c.state = StateStreaming
	c.store["doc1"] = &Entity{Object: map[string]interface{}{"t": "hello"}}

	rec := ChangeRecord{ID: "doc1", ClientID: "someone-else", Op: OpDelete}
	line, err := json.Marshal([]ChangeRecord{rec})
	require.NoError(t, err)

	err = c.HandleLine("c:" + string(line))
	require.NoError(t, err)

	_, ok := c.store["doc1"]
	assert.False(t, ok)
	require.Len(t, ui.notifications, 1)
	assert.True(t, ui.notifications[0].Deleted)
}

func TestDuplicateChangeErrorIsIgnored(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.state = StateStreaming
	c.store["doc1"] = &Entity{Object: map[string]interface{}{"t": "hello"}}

	errCode := 409
	rec := ChangeRecord{ID: "doc1", Op: OpModify, Error: &errCode}
	line, err := json.Marshal([]ChangeRecord{rec})
	require.NoError(t, err)

	err = c.HandleLine("c:" + string(line))
	require.NoError(t, err)

	assert.NotNil(t, c.store["doc1"])
}

func TestBadSourceVersionSchedulesReindex(t *testing.T) {
	c, transport := newTestClient(t, nil)
	c.state = StateStreaming
	v := 1
	c.store["doc1"] = &Entity{Object: map[string]interface{}{"t": "hello"}, Version: &v}

	sv := 99
	rec := ChangeRecord{ID: "doc1", SV: &sv, Op: OpModify, Diff: jsondiff.Diff{}}
	line, err := json.Marshal([]ChangeRecord{rec})
	require.NoError(t, err)

	err = c.HandleLine("c:" + string(line))
	require.NoError(t, err)

	assert.Equal(t, StateIndexing, c.state)
	assert.Contains(t, transport.last(), "i:bucket1:")
}

func TestCVRejectedTriggersReindex(t *testing.T) {
	c, transport := newTestClient(t, nil)
	c.state = StateStreaming

	err := c.HandleLine("cv:?")
	require.NoError(t, err)

	assert.Equal(t, StateIndexing, c.state)
	assert.Contains(t, transport.last(), "i:bucket1:")
}

func TestAuthTriggersReindexWhenCursorIsZero(t *testing.T) {
	c, transport := newTestClient(t, nil)

	err := c.HandleLine("auth:alice")
	require.NoError(t, err)

	assert.Equal(t, StateIndexing, c.state)
	assert.Contains(t, transport.last(), "i:bucket1:")
}

func TestAuthResumesStreamingWithKnownCursor(t *testing.T) {
	c, transport := newTestClient(t, nil)
	c.lastCV = "42"

	err := c.HandleLine("auth:alice")
	require.NoError(t, err)

	assert.Equal(t, StateStreaming, c.state)
	assert.Equal(t, "cv:42", transport.last())
}

func TestAuthExpiredDisconnects(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.state = StateStreaming

	err := c.HandleLine("auth:expired")
	require.NoError(t, err)

	assert.Equal(t, StateDisconnected, c.state)
}

func TestIndexPageIngestsRowsAndPaginates(t *testing.T) {
	c, transport := newTestClient(t, nil)
	c.state = StateIndexing

	page1 := fmt.Sprintf(`{"index":[{"id":"doc1","v":1,"d":{"t":"hello"}}],"mark":"m2"}`)
	err := c.HandleLine("ix:" + page1)
	require.NoError(t, err)
	assert.Equal(t, StateIndexing, c.state)
	assert.Contains(t, transport.last(), "i:bucket1:m2:")

	page2 := `{"index":[{"id":"doc2","v":1,"d":{"t":"world"}}],"current":"77"}`
	err = c.HandleLine("ix:" + page2)
	require.NoError(t, err)

	assert.Equal(t, StateStreaming, c.state)
	assert.Equal(t, "77", c.lastCV)
	assert.Equal(t, "hello", c.store["doc1"].Object["t"])
	assert.Equal(t, "world", c.store["doc2"].Object["t"])
	assert.True(t, c.initialized)
}

func TestEntityVersionTwoLineResponse(t *testing.T) {
	ui := newFakeUI()
	c, _ := newTestClient(t, ui)

	err := c.HandleLine("e:doc1.3")
	require.NoError(t, err)
	err = c.HandleLine(`e:{"t":"old"}`)
	require.NoError(t, err)

	require.Len(t, ui.versions, 1)
	assert.Equal(t, 3, ui.versions[0])
}

func TestResendLoopRetransmitsUnackedQueueWhileConnected(t *testing.T) {
	c, transport := newTestClient(t, nil)
	c.state = StateStreaming
	c.queue = append(c.queue, &ChangeRecord{ID: "doc1", CCID: 1, Op: OpModify})

	c.resendLoop()

	assert.Len(t, transport.sent, 1)
}

func TestFullIndexNormalizesMissingObjectToEmptyMap(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.state = StateIndexing

	err := c.HandleLine(`i:{"index":{"doc1":1},"cv":"5"}`)
	require.NoError(t, err)

	require.NotNil(t, c.store["doc1"])
	assert.NotNil(t, c.store["doc1"].Object)
	assert.Equal(t, map[string]interface{}{}, c.store["doc1"].Object)
	require.NotNil(t, c.store["doc1"].Version)
	assert.Equal(t, 1, *c.store["doc1"].Version)
}

func TestResendLoopDoesNothingWhenDisconnected(t *testing.T) {
	c, transport := newTestClient(t, nil)
	c.state = StateDisconnected
	c.queue = append(c.queue, &ChangeRecord{ID: "doc1", CCID: 1, Op: OpModify})

	c.resendLoop()

	assert.Empty(t, transport.sent)
}
