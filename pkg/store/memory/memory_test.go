package memory

import (
	"errors"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nstogner/diagrammer/pkg/domain"
)

const (
	loginSrc  = "@startuml\nstart\n:login;\nstop\n@enduml"
	logoutSrc = "@startuml\nstart\n:logout;\nstop\n@enduml"
)

func TestAppendAndPlaceholder(t *testing.T) {
	s := New()
	u := s.AppendUser("draw a login flow")
	id := s.AppendPlaceholder()

	snap := s.Snapshot()
	assert.Assert(t, is.Len(snap.Messages, 2))
	assert.Assert(t, snap.HasPlaceholder())
	assert.Equal(t, snap.Messages[0].ID, u.ID)
	assert.Assert(t, u.ID != id)

	// Only the placeholder role is removed by id.
	assert.Assert(t, !s.RemovePlaceholder(u.ID))
	assert.Assert(t, s.RemovePlaceholder(id))
	assert.Assert(t, !s.RemovePlaceholder(id))
	assert.Assert(t, is.Len(s.Snapshot().Messages, 1))
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.AppendUser("a")
	snap := s.Snapshot()
	snap.Messages[0].Text = "mutated"
	assert.Equal(t, s.Snapshot().Messages[0].Text, "a")
}

func TestEditUserMessageAndTruncate(t *testing.T) {
	s := New()
	s.AppendUser("draw a login flow")
	s.AppendBot(loginSrc, "activity", domain.EnginePlantUML)
	s.SetCurrentDiagram(loginSrc, "activity", domain.EnginePlantUML)
	s.AppendUser("add a captcha")
	s.AppendBot("@startuml\n:captcha;\n@enduml", "activity", domain.EnginePlantUML)

	err := s.EditUserMessageAndTruncate(2, "add remember me")
	assert.NilError(t, err)

	snap := s.Snapshot()
	assert.Assert(t, is.Len(snap.Messages, 3))
	assert.Equal(t, snap.Messages[2].Text, "add remember me")
	// Current diagram falls back to the last remaining bot message.
	assert.Equal(t, snap.CurrentSource, loginSrc)
	assert.Equal(t, snap.CurrentEngine, domain.EnginePlantUML)

	assert.NilError(t, s.EditUserMessageAndTruncate(0, "draw a logout flow"))
	snap = s.Snapshot()
	assert.Assert(t, is.Len(snap.Messages, 1))
	assert.Equal(t, snap.CurrentSource, "")
	assert.Equal(t, snap.CurrentKind, domain.KindUnspecified)
}

func TestEditInvalidIndex(t *testing.T) {
	s := New()
	s.AppendUser("a")
	s.AppendBot(loginSrc, "", domain.EnginePlantUML)

	for _, idx := range []int{-1, 1, 2} {
		err := s.EditUserMessageAndTruncate(idx, "x")
		assert.Assert(t, errors.Is(err, domain.ErrInvalidIndex), "index %d: %v", idx, err)
	}
	assert.Assert(t, is.Len(s.Snapshot().Messages, 2))
}

func TestClear(t *testing.T) {
	s := New()
	s.AppendUser("a")
	s.SetCurrentDiagram(loginSrc, "activity", domain.EnginePlantUML)
	s.Clear()

	snap := s.Snapshot()
	assert.Assert(t, is.Len(snap.Messages, 0))
	assert.Equal(t, snap.CurrentSource, "")
	assert.Equal(t, snap.SchemaVersion, 1)
}

func TestImportExportIdempotent(t *testing.T) {
	s := New()
	s.AppendUser("draw a login flow")
	s.AppendBot(loginSrc, "activity", domain.EnginePlantUML)
	s.SetCurrentDiagram(loginSrc, "activity", domain.EnginePlantUML)
	s.AppendUser("make it a logout flow")
	s.AppendBot(logoutSrc, "activity", domain.EnginePlantUML)
	s.SetCurrentDiagram(logoutSrc, "activity", domain.EnginePlantUML)

	data, err := s.Export()
	assert.NilError(t, err)

	other := New()
	assert.NilError(t, other.Import(data))
	assert.DeepEqual(t, other.Snapshot(), s.Snapshot())

	again, err := other.Export()
	assert.NilError(t, err)
	assert.Equal(t, string(again), string(data))
}

func TestImportInvalidLeavesSessionUntouched(t *testing.T) {
	s := New()
	s.AppendUser("keep me")
	before := s.Snapshot()

	err := s.Import([]byte(`{"schemaVersion":1,"chatHistory":[{"role":"user","text":"ok"},{"role":"bot"}],"currentPlantUML":""}`))
	assert.Assert(t, errors.Is(err, domain.ErrInvalidSessionFormat))
	assert.DeepEqual(t, s.Snapshot(), before)
}

func TestConcurrentAppends(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.AppendPlaceholder()
			s.AppendBot(loginSrc, "", domain.EnginePlantUML)
			s.RemovePlaceholder(id)
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Assert(t, is.Len(snap.Messages, 20))
	assert.Assert(t, !snap.HasPlaceholder())
}
