package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// recordingDirective returns a DirectiveFunc that prefixes the text and
// remembers every call.
type recordingDirective struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingDirective) fn(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, text)
	return "DIRECTIVE: " + text
}

func (r *recordingDirective) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock, *recordingDirective) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	dir := &recordingDirective{}
	s, err := NewStore(StoreOpts{
		Directive: dir.fn,
		Clock:     clock,
		TTL:       5 * time.Minute,
		Overflow:  20,
		Memory:    10,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, clock, dir
}

// fill commits n user/assistant exchanges to the channel.
func fill(t *testing.T, s *Store, channelID string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		user := Turn{Speaker: SpeakerUser, Text: fmt.Sprintf("alice: message %d", i)}
		if err := s.Commit(channelID, user, fmt.Sprintf("reply %d", i)); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
}

// --- NewStore tests ---

func TestNewStore_RequiresDirective(t *testing.T) {
	_, err := NewStore(StoreOpts{})
	if err == nil {
		t.Fatal("expected error for missing directive func")
	}
}

func TestNewStore_MemoryMustBeBelowOverflow(t *testing.T) {
	_, err := NewStore(StoreOpts{
		Directive: func(string) string { return "" },
		Overflow:  10,
		Memory:    10,
	})
	if err == nil {
		t.Fatal("expected error when memory >= overflow")
	}
}

func TestNewStore_Defaults(t *testing.T) {
	s, err := NewStore(StoreOpts{Directive: func(string) string { return "" }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ttl != DefaultTTL || s.overflow != DefaultOverflow || s.memory != DefaultMemory {
		t.Errorf("defaults = (%v, %d, %d), want (%v, %d, %d)",
			s.ttl, s.overflow, s.memory, DefaultTTL, DefaultOverflow, DefaultMemory)
	}
}

// --- GetOrRefresh tests ---

func TestGetOrRefresh_CreatesSession(t *testing.T) {
	s, clock, dir := newTestStore(t)

	sess := s.GetOrRefresh("C1", "hello")
	if len(sess.History) != 1 {
		t.Fatalf("history len = %d, want 1", len(sess.History))
	}
	if sess.History[0].Speaker != SpeakerSystem {
		t.Errorf("turn 0 speaker = %q, want %q", sess.History[0].Speaker, SpeakerSystem)
	}
	if sess.Directive() != "DIRECTIVE: hello" {
		t.Errorf("directive = %q", sess.Directive())
	}
	if !sess.LastActive.Equal(clock.Now()) {
		t.Errorf("last active = %v, want %v", sess.LastActive, clock.Now())
	}
	if dir.count() != 1 {
		t.Errorf("directive calls = %d, want 1", dir.count())
	}
}

func TestGetOrRefresh_ReusesLiveSession(t *testing.T) {
	s, clock, dir := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 2)
	clock.Advance(10 * time.Second)

	sess := s.GetOrRefresh("C1", "second")
	if len(sess.History) != 5 {
		t.Errorf("history len = %d, want 5", len(sess.History))
	}
	if sess.Directive() != "DIRECTIVE: first" {
		t.Errorf("directive = %q, want original", sess.Directive())
	}
	if dir.count() != 1 {
		t.Errorf("directive calls = %d, want 1", dir.count())
	}
}

func TestGetOrRefresh_ExpiredSessionRebuilt(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 3)
	clock.Advance(6 * time.Minute)

	sess := s.GetOrRefresh("C1", "later")
	if len(sess.History) != 1 {
		t.Fatalf("history len = %d, want 1", len(sess.History))
	}
	if sess.Directive() != "DIRECTIVE: later" {
		t.Errorf("directive = %q, want rebuilt from new text", sess.Directive())
	}
	if !sess.LastActive.Equal(clock.Now()) {
		t.Errorf("last active not reset")
	}
}

func TestGetOrRefresh_TTLBoundaryNotExpired(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 1)
	clock.Advance(5 * time.Minute)

	sess := s.GetOrRefresh("C1", "again")
	if len(sess.History) != 3 {
		t.Errorf("history len = %d, want 3 (exactly TTL is still live)", len(sess.History))
	}
}

func TestGetOrRefresh_ResetMarker(t *testing.T) {
	s, _, dir := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 4)

	sess := s.GetOrRefresh("C1", "bob: !reset! be a poet")
	if len(sess.History) != 1 {
		t.Fatalf("history len = %d, want 1", len(sess.History))
	}
	if sess.Directive() != "DIRECTIVE: bob: !reset! be a poet" {
		t.Errorf("directive = %q", sess.Directive())
	}
	if dir.count() != 2 {
		t.Errorf("directive calls = %d, want 2", dir.count())
	}
}

func TestGetOrRefresh_TrimsOverflow(t *testing.T) {
	s, _, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 10) // 1 + 20 = 21 turns

	before, ok := s.Get("C1")
	if !ok || len(before.History) != 21 {
		t.Fatalf("setup: history len = %d, want 21", len(before.History))
	}

	sess := s.GetOrRefresh("C1", "next")
	if len(sess.History) != 11 {
		t.Fatalf("history len = %d, want 11", len(sess.History))
	}
	if sess.History[0] != before.History[0] {
		t.Errorf("turn 0 changed: %+v", sess.History[0])
	}
	for i := 1; i <= 10; i++ {
		if sess.History[i] != before.History[10+i] {
			t.Errorf("turn %d = %+v, want original turn %d %+v", i, sess.History[i], 10+i, before.History[10+i])
		}
	}
}

func TestGetOrRefresh_NoTrimBelowOverflow(t *testing.T) {
	s, _, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 9) // 19 turns

	if sess := s.GetOrRefresh("C1", "next"); len(sess.History) != 19 {
		t.Errorf("history len = %d, want 19 (trim only above overflow)", len(sess.History))
	}
}

func TestGetOrRefresh_ReturnsCopy(t *testing.T) {
	s, _, _ := newTestStore(t)

	sess := s.GetOrRefresh("C1", "first")
	sess.History[0].Text = "tampered"
	sess.History = append(sess.History, Turn{Speaker: SpeakerUser, Text: "ghost"})

	got, _ := s.Get("C1")
	if got.Directive() != "DIRECTIVE: first" || len(got.History) != 1 {
		t.Errorf("store mutated through snapshot: %+v", got.History)
	}
}

// --- Commit tests ---

func TestCommit_AppendsTurnsAndTouches(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	clock.Advance(42 * time.Second)

	user := Turn{Speaker: SpeakerUser, Text: "alice: hi"}
	if err := s.Commit("C1", user, "hello alice"); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sess, _ := s.Get("C1")
	if len(sess.History) != 3 {
		t.Fatalf("history len = %d, want 3", len(sess.History))
	}
	if sess.History[1] != user {
		t.Errorf("turn 1 = %+v, want %+v", sess.History[1], user)
	}
	want := Turn{Speaker: SpeakerAssistant, Text: "hello alice"}
	if sess.History[2] != want {
		t.Errorf("turn 2 = %+v, want %+v", sess.History[2], want)
	}
	if !sess.LastActive.Equal(clock.Now()) {
		t.Errorf("last active = %v, want %v", sess.LastActive, clock.Now())
	}
}

func TestCommit_UnknownChannel(t *testing.T) {
	s, _, _ := newTestStore(t)
	err := s.Commit("nope", Turn{Speaker: SpeakerUser, Text: "x"}, "y")
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

// --- ForceTrim tests ---

func TestForceTrim_TrimsLongHistory(t *testing.T) {
	s, _, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 12) // 25 turns

	if !s.ForceTrim("C1") {
		t.Fatal("ForceTrim returned false for existing session")
	}
	sess, _ := s.Get("C1")
	if len(sess.History) != 11 {
		t.Fatalf("history len = %d, want 11", len(sess.History))
	}
	if sess.Directive() != "DIRECTIVE: first" {
		t.Errorf("directive lost: %q", sess.Directive())
	}
	if last := sess.History[10]; last.Text != "reply 12" {
		t.Errorf("last turn = %+v, want reply 12", last)
	}
}

func TestForceTrim_ShortHistoryUnchanged(t *testing.T) {
	s, _, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 3)

	s.ForceTrim("C1")
	if sess, _ := s.Get("C1"); len(sess.History) != 7 {
		t.Errorf("history len = %d, want 7", len(sess.History))
	}
}

func TestForceTrim_DoesNotTouchLastActive(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 12)
	before, _ := s.PeekLastActive("C1")
	clock.Advance(time.Minute)

	s.ForceTrim("C1")
	after, _ := s.PeekLastActive("C1")
	if !after.Equal(before) {
		t.Errorf("last active moved from %v to %v", before, after)
	}
}

func TestForceTrim_UnknownChannel(t *testing.T) {
	s, _, _ := newTestStore(t)
	if s.ForceTrim("nope") {
		t.Error("ForceTrim returned true for unknown channel")
	}
}

// --- PeekLastActive / Snapshot tests ---

func TestPeekLastActive(t *testing.T) {
	s, clock, _ := newTestStore(t)

	if _, ok := s.PeekLastActive("C1"); ok {
		t.Fatal("expected no session before first access")
	}
	s.GetOrRefresh("C1", "hi")
	ts, ok := s.PeekLastActive("C1")
	if !ok {
		t.Fatal("expected session after GetOrRefresh")
	}
	if !ts.Equal(clock.Now()) {
		t.Errorf("last active = %v, want %v", ts, clock.Now())
	}
}

func TestSnapshot_OrderedByRecency(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.GetOrRefresh("old", "a")
	clock.Advance(time.Minute)
	s.GetOrRefresh("new", "b")
	clock.Advance(30 * time.Second)

	infos := s.Snapshot()
	if len(infos) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(infos))
	}
	if infos[0].ChannelID != "new" || infos[1].ChannelID != "old" {
		t.Errorf("order = [%s %s], want [new old]", infos[0].ChannelID, infos[1].ChannelID)
	}
	if infos[0].Idle != 30*time.Second {
		t.Errorf("idle = %v, want 30s", infos[0].Idle)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestGetOrRefresh_EvictsIdleChannels(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.GetOrRefresh("C1", "a")
	s.GetOrRefresh("C2", "b")
	clock.Advance(4 * time.Minute)
	s.GetOrRefresh("C3", "c")
	clock.Advance(2 * time.Minute)

	s.GetOrRefresh("C4", "d")
	if _, ok := s.Get("C1"); ok {
		t.Error("C1 idle 6m should be evicted")
	}
	if _, ok := s.Get("C2"); ok {
		t.Error("C2 idle 6m should be evicted")
	}
	if _, ok := s.Get("C3"); !ok {
		t.Error("C3 idle 2m should be kept")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestGetOrRefresh_ExpiredChannelRebuiltNotEvicted(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.GetOrRefresh("C1", "first")
	fill(t, s, "C1", 2)
	clock.Advance(10 * time.Minute)

	sess := s.GetOrRefresh("C1", "again")
	if len(sess.History) != 1 {
		t.Errorf("history len = %d, want 1", len(sess.History))
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestGetOrRefresh_RetainKeepsPastTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dir := &recordingDirective{}
	s, err := NewStore(StoreOpts{Directive: dir.fn, Clock: clock, TTL: time.Minute, Retain: 10 * time.Minute})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	s.GetOrRefresh("C1", "a")
	clock.Advance(5 * time.Minute)
	s.GetOrRefresh("C2", "b")
	if _, ok := s.PeekLastActive("C1"); !ok {
		t.Error("C1 evicted inside retention")
	}

	clock.Advance(6 * time.Minute)
	s.GetOrRefresh("C2", "c")
	if _, ok := s.PeekLastActive("C1"); ok {
		t.Error("C1 kept past retention")
	}
}

// --- Guard tests ---

func TestGuard_SerializesSameChannel(t *testing.T) {
	s, _, _ := newTestStore(t)

	release := s.Guard("C1")
	acquired := make(chan struct{})
	go func() {
		r := s.Guard("C1")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second guard acquired while first was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second guard not acquired after release")
	}
}

func TestGuard_IndependentChannels(t *testing.T) {
	s, _, _ := newTestStore(t)

	release := s.Guard("C1")
	defer release()

	done := make(chan struct{})
	go func() {
		s.Guard("C2")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("guard on C2 blocked by C1")
	}
}

func TestGuard_ReleasedGuardsDropped(t *testing.T) {
	s, _, _ := newTestStore(t)

	for i := 0; i < 50; i++ {
		s.Guard(fmt.Sprintf("C%d", i))()
	}

	s.guardMu.Lock()
	n := len(s.guards)
	s.guardMu.Unlock()
	if n != 0 {
		t.Errorf("guards = %d after release, want 0", n)
	}
}

func TestGuard_WaiterKeepsGuardAlive(t *testing.T) {
	s, _, _ := newTestStore(t)

	release := s.Guard("C1")
	acquired := make(chan func())
	go func() { acquired <- s.Guard("C1") }()

	// Wait until the second caller has registered on the guard.
	deadline := time.Now().Add(time.Second)
	for {
		s.guardMu.Lock()
		refs := s.guards["C1"].refs
		s.guardMu.Unlock()
		if refs == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("refs = %d, want 2", refs)
		}
		time.Sleep(time.Millisecond)
	}

	release()
	release() // double release is a no-op
	second := <-acquired

	s.guardMu.Lock()
	_, ok := s.guards["C1"]
	s.guardMu.Unlock()
	if !ok {
		t.Fatal("guard dropped while still held")
	}

	second()
	s.guardMu.Lock()
	n := len(s.guards)
	s.guardMu.Unlock()
	if n != 0 {
		t.Errorf("guards = %d, want 0", n)
	}
}
