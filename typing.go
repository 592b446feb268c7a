package easel

// typingState is the typing-mode state machine: Idle or Typing.
type typingState uint8

const (
	typingIdle typingState = iota
	typingActive
)

// typingController owns the create-text-by-typing workflow: a single
// buffer, the world-space entry position, and the Idle/Typing states.
// Only one typing session may be active at a time.
type typingController struct {
	state  typingState
	buffer []rune
	entryX float64
	entryY float64
}

// begin enters typing mode at the given world position with an empty
// buffer. No-op if a session is already active.
func (t *typingController) begin(worldX, worldY float64) {
	if t.state == typingActive {
		return
	}
	t.state = typingActive
	t.buffer = t.buffer[:0]
	t.entryX = worldX
	t.entryY = worldY
}

// typeRune appends an accepted character to the buffer.
func (t *typingController) typeRune(r rune) {
	if t.state != typingActive {
		return
	}
	t.buffer = append(t.buffer, r)
}

// backspace removes the last character, if any.
func (t *typingController) backspace() {
	if t.state != typingActive || len(t.buffer) == 0 {
		return
	}
	t.buffer = t.buffer[:len(t.buffer)-1]
}

// commit leaves typing mode and returns the buffered content plus the
// entry position. ok is false when no session was active or the buffer
// was empty, in which case no item should be constructed.
func (t *typingController) commit() (content string, x, y float64, ok bool) {
	if t.state != typingActive {
		return "", 0, 0, false
	}
	content = string(t.buffer)
	x, y = t.entryX, t.entryY
	t.state = typingIdle
	t.buffer = t.buffer[:0]
	return content, x, y, content != ""
}

// cancel discards the buffer and leaves typing mode without creating
// anything.
func (t *typingController) cancel() {
	t.state = typingIdle
	t.buffer = t.buffer[:0]
}

// active reports whether a typing session is in progress.
func (t *typingController) active() bool {
	return t.state == typingActive
}

// preview returns the current buffer contents and entry position for
// rendering the live, non-interactive preview.
func (t *typingController) preview() (content string, x, y float64) {
	return string(t.buffer), t.entryX, t.entryY
}
