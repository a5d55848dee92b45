// Package stories models the viewer's progression through the story
// feed: an ordered list of authors, each with an ordered sequence of
// stories, walked by a timer that can be paused or overridden by
// manual navigation.
package stories

// TicksPerStory is how many timer ticks a story is shown for.
const TicksPerStory = 100

// Cursor points at one story inside one author's sequence.
type Cursor struct {
	lengths []int // stories per author, in feed order

	author   int
	index    int
	progress int
	paused   bool
	closed   bool
}

// NewCursor starts at the first story of the first author. Authors with
// empty sequences are skipped; a feed with no stories starts closed.
func NewCursor(lengths []int) *Cursor {
	c := &Cursor{lengths: lengths}
	for c.author < len(c.lengths) && c.lengths[c.author] == 0 {
		c.author++
	}
	if c.author >= len(c.lengths) {
		c.closed = true
	}
	return c
}

// Position returns the current (author, story) indexes.
func (c *Cursor) Position() (author, index int) {
	return c.author, c.index
}

// Progress is the current story's completion in percent.
func (c *Cursor) Progress() int {
	return c.progress * 100 / TicksPerStory
}

func (c *Cursor) Paused() bool { return c.paused }
func (c *Cursor) Closed() bool { return c.closed }

// Tick advances the progress timer by one step, moving to the next
// story on completion. Paused or closed cursors do not move.
func (c *Cursor) Tick() {
	if c.paused || c.closed {
		return
	}
	c.progress++
	if c.progress >= TicksPerStory {
		c.Next()
	}
}

// Next jumps to the following story immediately and resets progress.
// At the end of an author's sequence it moves to the next author; past
// the last author the cursor closes.
func (c *Cursor) Next() {
	if c.closed {
		return
	}
	c.progress = 0
	c.index++
	if c.index < c.lengths[c.author] {
		return
	}
	c.index = 0
	c.author++
	for c.author < len(c.lengths) && c.lengths[c.author] == 0 {
		c.author++
	}
	if c.author >= len(c.lengths) {
		c.closed = true
	}
}

// Prev jumps to the preceding story and resets progress. At a
// sequence start it steps to the previous author's last story; at the
// very beginning it stays put.
func (c *Cursor) Prev() {
	if c.closed {
		return
	}
	c.progress = 0
	if c.index > 0 {
		c.index--
		return
	}
	prev := c.author - 1
	for prev >= 0 && c.lengths[prev] == 0 {
		prev--
	}
	if prev < 0 {
		return
	}
	c.author = prev
	c.index = c.lengths[prev] - 1
}

// Jump moves directly to a story, resetting progress. Out-of-range
// targets are ignored.
func (c *Cursor) Jump(author, index int) {
	if author < 0 || author >= len(c.lengths) {
		return
	}
	if index < 0 || index >= c.lengths[author] {
		return
	}
	c.author = author
	c.index = index
	c.progress = 0
	c.closed = false
}

// Pause holds the timer (press-and-hold); Resume releases it.
func (c *Cursor) Pause()  { c.paused = true }
func (c *Cursor) Resume() { c.paused = false }
