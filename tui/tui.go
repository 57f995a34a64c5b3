package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/nathoo/backroom/engine"
	"github.com/nathoo/backroom/engine/parser"
	"github.com/nathoo/backroom/engine/save"
	"github.com/nathoo/backroom/engine/state"
	"github.com/nathoo/backroom/types"
)

// Sender streams the response to one request. *client.Client implements it.
type Sender interface {
	Send(ctx context.Context, req types.ChatRequest, emit func(types.Chunk)) error
}

// Options tune presentation.
type Options struct {
	Typewriter    time.Duration // per revealed step; zero shows text at once
	Transition    time.Duration // each half of a level fade
	Dice          time.Duration // whole dice roll
	SaveDir       string
	MarkdownStyle string // glamour standard style; empty means "dark"
	Log           *zap.Logger
}

// note is meta-command output shown after message afterID.
type note struct {
	afterID int64
	lines   []string
	isError bool
}

// Model is the Bubble Tea model for the backroom TUI.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	engine *engine.Engine
	sender Sender
	opts   Options
	log    *zap.Logger

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	history  *History
	markdown *glamour.TermRenderer
	rendered map[int64]string // glamour output per DM message at the current width

	notes  []note
	stream <-chan tea.Msg

	// animation state
	typing    int64 // message being typed out, 0 when none
	revealed  int   // runes of typing shown so far
	rolling   *types.DiceRoll
	diceFrame int
	rollSeq   int // bumped per roll so stale ticks can be told apart
	fade      fadePhase
	fadeLevel string

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	lastCmd  string
}

// New creates a TUI model wired to the given engine and backend.
func New(ctx context.Context, eng *engine.Engine, sender Sender, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleSpinner

	if opts.SaveDir == "" {
		home, _ := os.UserHomeDir()
		opts.SaveDir = filepath.Join(home, ".backroom", "saves")
	}
	if opts.MarkdownStyle == "" {
		opts.MarkdownStyle = "dark"
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)

	return Model{
		ctx:      ctx,
		cancel:   cancel,
		engine:   eng,
		sender:   sender,
		opts:     opts,
		log:      log,
		input:    ti,
		spinner:  sp,
		history:  NewHistory(100),
		rendered: make(map[int64]string),
	}
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, eng *engine.Engine, sender Sender, opts Options) error {
	m := New(ctx, eng, sender, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	m.cancel()
	return err
}

// Init starts the cursor blink and the init request.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return startMsg{} })
}

// startMsg asks Update to send the init request once the program runs.
type startMsg struct{}

// Update handles messages (key presses, window resize, stream and
// animation events).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.resetMarkdown()
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			m.cancel()
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if line, ok := m.history.Older(m.input.Value()); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if line, ok := m.history.Newer(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case startMsg:
		cmds = append(cmds, m.send(types.GameEvent{Type: types.EventInit}, "", true))

	case chunkMsg:
		if m.trace {
			m.addNote(false, fmt.Sprintf("trace: chunk %s", msg.chunk.Type))
		}
		m.engine.Enqueue(msg.chunk)
		cmds = append(cmds, m.playCues(), waitForStream(m.stream))

	case streamDoneMsg:
		m.stream = nil
		m.engine.FinishRequest(msg.err)
		m.refreshViewport()

	case typeTickMsg:
		cmds = append(cmds, m.advanceTyping(msg.id))

	case diceTickMsg:
		cmds = append(cmds, m.advanceDice(msg.seq, msg.frame))

	case fadeDoneMsg:
		cmds = append(cmds, m.finishFade(msg.phase))

	case spinner.TickMsg:
		if m.engine.Loading {
			var spCmd tea.Cmd
			m.spinner, spCmd = m.spinner.Update(msg)
			cmds = append(cmds, spCmd)
		}
		return m, tea.Batch(cmds...)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line. An empty line skips the
// running animation, or confirms a waiting check.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	// An empty line rolls without being recorded.
	implicit := false
	if input == "" {
		if cmd, ok := m.skipAnimation(); ok {
			return m, cmd
		}
		if _, err := m.engine.Interpret(types.Intent{Verb: parser.VerbConfirm}); err != nil {
			return m, nil
		}
		input, implicit = "roll", true
	}

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m.addNote(false, "Nothing to repeat.")
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") && !implicit {
		m.lastCmd = input
	}
	if !implicit {
		m.history.Record(input)
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m.addNote(false, output...)
		if quit {
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}
		return m, nil
	}

	action, err := m.engine.Interpret(parser.Parse(input))
	if err != nil {
		m.log.Debug("input rejected", zap.String("input", input), zap.Error(err))
		m.addNote(true, upperFirst(err.Error())+".")
		return m, nil
	}

	switch action.Kind {
	case engine.ActionConfirm:
		if err := m.engine.Confirm(action.MessageID); err != nil {
			m.addNote(true, fmt.Sprintf("Cannot confirm: %v", err))
			return m, nil
		}
		return m, m.playCues()

	case engine.ActionChoose:
		if ok, err := m.engine.SelectOption(action.MessageID, action.Option); err != nil || !ok {
			m.addNote(true, "That choice is no longer open.")
			return m, nil
		}
		return m, m.send(types.GameEvent{Type: types.EventMessage}, action.Option, true)

	default:
		return m, m.send(action.Event, action.Input, false)
	}
}

// addNote shows meta output after the newest message.
func (m *Model) addNote(isError bool, lines ...string) {
	var after int64
	if n := len(m.engine.Messages); n > 0 {
		after = m.engine.Messages[n-1].ID
	}
	m.notes = append(m.notes, note{afterID: after, lines: lines, isError: isError})
	m.refreshViewport()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.fade != fadeNone {
		body = m.renderFade()
	}
	return body + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	data, err := save.Save(m.engine.SessionID, m.engine.Messages, m.engine.State, time.Now())
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	if err := os.MkdirAll(m.opts.SaveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	path := filepath.Join(m.opts.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	return []string{fmt.Sprintf("Transcript saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}
	if m.engine.Loading {
		return []string{"Load failed: a reply is still streaming."}
	}

	path := filepath.Join(m.opts.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	sd, err := save.Load(data)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	m.engine.Restore(sd.Messages, sd.State)
	m.engine.SessionID = sd.SessionID
	m.notes = nil
	m.typing, m.rolling, m.fade = 0, nil, fadeNone
	m.resetMarkdown()

	return []string{fmt.Sprintf("Transcript loaded from %s (%d messages).", name, len(sd.Messages))}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /save [name]  Save the transcript (default: quicksave)",
		"  /load [name]  Load a transcript (default: quicksave)",
		"  /quit         Exit",
		"  /help         Show this help",
		"  /state        Show the current snapshot",
		"  /trace        Toggle chunk trace output",
		"",
		"Playing:",
		"  anything else         Say or do it",
		"  1, 2, 3 ...           Pick one of the offered options",
		"  roll (r) or Enter     Roll the dice for a pending check",
		"  use/eat/drink <item>  Use an item",
		"  drop [half|all] <item>",
		"  again (g)             Repeat your last command",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history,",
		"Enter on an empty line skips the current animation",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.State
	if s == nil {
		return []string{"No snapshot yet."}
	}
	v, a := s.Vitals, s.Attributes
	output := []string{
		fmt.Sprintf("Level: %s  Time: %s", s.Level, state.FormatClock(state.Clock(s))),
		fmt.Sprintf("HP: %d/%d  Sanity: %d/%d", v.HP, v.MaxHP, v.Sanity, v.MaxSanity),
		fmt.Sprintf("STR %d  DEX %d  CON %d  INT %d  WIS %d  CHA %d", a.STR, a.DEX, a.CON, a.INT, a.WIS, a.CHA),
	}
	for _, it := range state.SortedInventory(s) {
		line := fmt.Sprintf("  %s x%d", it.Name, state.Quantity(it))
		if it.Category != "" {
			line += " (" + it.Category + ")"
		}
		output = append(output, line)
	}
	if pending := m.engine.Pending(); len(pending) > 0 {
		output = append(output, fmt.Sprintf("Queued: %v", pending))
	}
	return output
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
