package stories

import "testing"

func TestTickAdvancesThroughSequence(t *testing.T) {
	c := NewCursor([]int{2, 1})

	for i := 0; i < TicksPerStory; i++ {
		c.Tick()
	}
	if a, i := c.Position(); a != 0 || i != 1 {
		t.Fatalf("expected (0,1), got (%d,%d)", a, i)
	}
	if c.Progress() != 0 {
		t.Errorf("progress should reset on advance, got %d", c.Progress())
	}

	for i := 0; i < TicksPerStory; i++ {
		c.Tick()
	}
	if a, i := c.Position(); a != 1 || i != 0 {
		t.Fatalf("expected advance to next author, got (%d,%d)", a, i)
	}

	for i := 0; i < TicksPerStory; i++ {
		c.Tick()
	}
	if !c.Closed() {
		t.Error("cursor should close past the last author")
	}
}

func TestPauseHoldsProgress(t *testing.T) {
	c := NewCursor([]int{1})

	c.Tick()
	c.Pause()
	before := c.Progress()
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	if c.Progress() != before {
		t.Errorf("paused cursor moved: %d -> %d", before, c.Progress())
	}

	c.Resume()
	c.Tick()
	if c.Progress() == before {
		t.Error("resumed cursor should move again")
	}
}

func TestPrevStepsToPreviousAuthorsLastStory(t *testing.T) {
	c := NewCursor([]int{3, 2})
	c.Jump(1, 0)

	c.Prev()
	if a, i := c.Position(); a != 0 || i != 2 {
		t.Fatalf("expected (0,2), got (%d,%d)", a, i)
	}

	// At the very beginning Prev stays put
	c.Jump(0, 0)
	c.Prev()
	if a, i := c.Position(); a != 0 || i != 0 {
		t.Fatalf("expected (0,0), got (%d,%d)", a, i)
	}
}

func TestManualNavigationResetsProgress(t *testing.T) {
	c := NewCursor([]int{2, 2})
	for i := 0; i < TicksPerStory/2; i++ {
		c.Tick()
	}
	if c.Progress() == 0 {
		t.Fatal("expected mid-story progress")
	}

	c.Next()
	if c.Progress() != 0 {
		t.Error("Next should reset progress")
	}

	c.Jump(1, 1)
	if a, i := c.Position(); a != 1 || i != 1 {
		t.Fatalf("expected (1,1), got (%d,%d)", a, i)
	}
}

func TestEmptySequencesAreSkipped(t *testing.T) {
	c := NewCursor([]int{0, 2, 0, 1})
	if a, _ := c.Position(); a != 1 {
		t.Fatalf("expected start at first non-empty author, got %d", a)
	}

	c.Next()
	c.Next()
	if a, i := c.Position(); a != 3 || i != 0 {
		t.Fatalf("expected (3,0), got (%d,%d)", a, i)
	}

	c.Prev()
	if a, i := c.Position(); a != 1 || i != 1 {
		t.Fatalf("Prev should skip empty authors, got (%d,%d)", a, i)
	}
}

func TestEmptyFeedStartsClosed(t *testing.T) {
	c := NewCursor(nil)
	if !c.Closed() {
		t.Error("empty feed should start closed")
	}
	c.Tick()
	c.Next()
	c.Prev()
	if !c.Closed() {
		t.Error("closed cursor must stay closed")
	}
}
