package tui

import (
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/backroom/engine"
)

// typeStep is how many runes each typewriter tick reveals.
const typeStep = 2

// diceFrames is how many faces a roll shows before settling.
const diceFrames = 12

type fadePhase int

const (
	fadeNone fadePhase = iota
	fadeHide
	fadeReveal
)

type typeTickMsg struct{ id int64 }

// diceTickMsg steps roll number seq; ticks from an earlier roll are ignored.
type diceTickMsg struct {
	seq   int
	frame int
}

type fadeDoneMsg struct{ phase fadePhase }

// playCues starts every animation the engine has asked for.
func (m *Model) playCues() tea.Cmd {
	var cmds []tea.Cmd
	for _, cue := range m.engine.Cues() {
		switch cue.Kind {
		case engine.CueTypewriter:
			m.typing, m.revealed = cue.MessageID, 0
			cmds = append(cmds, m.typeTick(cue.MessageID))
		case engine.CueDice:
			m.rolling, m.diceFrame = cue.Roll, 0
			m.rollSeq++
			cmds = append(cmds, m.diceTick(1))
		case engine.CueLevelHide:
			m.fade, m.fadeLevel = fadeHide, cue.Level
			cmds = append(cmds, m.fadeTick(fadeHide))
		case engine.CueLevelReveal:
			m.fade, m.fadeLevel = fadeReveal, cue.Level
			cmds = append(cmds, m.fadeTick(fadeReveal))
		}
	}
	m.refreshViewport()
	return tea.Batch(cmds...)
}

func (m *Model) typeTick(id int64) tea.Cmd {
	if m.opts.Typewriter <= 0 {
		return func() tea.Msg { return typeTickMsg{id: id} }
	}
	return tea.Tick(m.opts.Typewriter, func(time.Time) tea.Msg { return typeTickMsg{id: id} })
}

func (m *Model) diceTick(frame int) tea.Cmd {
	seq := m.rollSeq
	d := m.opts.Dice / diceFrames
	if d <= 0 {
		return func() tea.Msg { return diceTickMsg{seq: seq, frame: diceFrames} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return diceTickMsg{seq: seq, frame: frame} })
}

func (m *Model) fadeTick(phase fadePhase) tea.Cmd {
	if m.opts.Transition <= 0 {
		return func() tea.Msg { return fadeDoneMsg{phase: phase} }
	}
	return tea.Tick(m.opts.Transition, func(time.Time) tea.Msg { return fadeDoneMsg{phase: phase} })
}

func (m *Model) advanceTyping(id int64) tea.Cmd {
	if id != m.typing {
		return nil
	}
	msg, ok := m.engine.Message(id)
	if !ok || m.opts.Typewriter <= 0 {
		return m.finishTyping()
	}
	m.revealed += typeStep
	if m.revealed >= len([]rune(msg.Text)) {
		return m.finishTyping()
	}
	m.refreshViewport()
	return m.typeTick(id)
}

func (m *Model) finishTyping() tea.Cmd {
	m.typing, m.revealed = 0, 0
	m.engine.AnimationComplete()
	return m.playCues()
}

func (m *Model) advanceDice(seq, frame int) tea.Cmd {
	if m.rolling == nil || seq != m.rollSeq {
		return nil
	}
	if frame >= diceFrames {
		return m.finishDice()
	}
	m.diceFrame = frame
	m.refreshViewport()
	return m.diceTick(frame + 1)
}

func (m *Model) finishDice() tea.Cmd {
	m.rolling, m.diceFrame = nil, 0
	m.engine.DiceAnimationComplete()
	return m.playCues()
}

func (m *Model) finishFade(phase fadePhase) tea.Cmd {
	if phase != m.fade {
		return nil
	}
	m.fade = fadeNone
	m.engine.AnimationComplete()
	return m.playCues()
}

// skipAnimation completes a running typewriter or dice roll at once.
// Level fades cannot be skipped.
func (m *Model) skipAnimation() (tea.Cmd, bool) {
	switch {
	case m.typing != 0:
		return m.finishTyping(), true
	case m.rolling != nil:
		return m.finishDice(), true
	}
	return nil, false
}

// diceFace is the value shown on a frame of the roll. The last frame shows
// the real result.
func (m *Model) diceFace() int {
	r := m.rolling
	if r == nil {
		return 0
	}
	if m.diceFrame >= diceFrames-1 {
		return r.Result
	}
	sides, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(r.Type), "d"))
	if err != nil || sides < 2 {
		return r.Result
	}
	return (r.Result*7+m.diceFrame*13)%sides + 1
}
