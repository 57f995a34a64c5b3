// Package cli provides the plain terminal front end: line-based input,
// instant animations, and meta-command dispatch. It also drives script
// playback.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/backroom/engine"
	"github.com/nathoo/backroom/engine/parser"
	"github.com/nathoo/backroom/engine/reduce"
	"github.com/nathoo/backroom/engine/save"
	"github.com/nathoo/backroom/engine/state"
	"github.com/nathoo/backroom/types"
)

// Sender streams the response to one request. *client.Client implements it.
type Sender interface {
	Send(ctx context.Context, req types.ChatRequest, emit func(types.Chunk)) error
}

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Sender    Sender
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)
	AutoRoll  bool // confirm checks as soon as they appear
	Log       *zap.Logger

	lastCmd  string // for "again"/"g" repeat
	printed  int64  // highest message ID written out
	prompted int64  // message whose check prompt was shown
	offered  int64  // message whose options were shown
}

// New creates a CLI wired to the given engine and backend.
func New(eng *engine.Engine, sender Sender) *CLI {
	home, _ := os.UserHomeDir()
	return &CLI{
		Engine:  eng,
		Sender:  sender,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: filepath.Join(home, ".backroom", "saves"),
		Log:     zap.NewNop(),
	}
}

// Run starts the session, then loops: prompt → input → dispatch → output.
// It returns when input ends, /quit is entered, or ctx is cancelled.
func (c *CLI) Run(ctx context.Context) error {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	c.send(ctx, types.GameEvent{Type: types.EventInit}, "", true)

	scanner := bufio.NewScanner(c.In)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return nil // /quit
			}
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		c.handleInput(ctx, input)
	}
	return scanner.Err()
}

func (c *CLI) handleInput(ctx context.Context, input string) {
	action, err := c.Engine.Interpret(parser.Parse(input))
	if err != nil {
		c.Log.Debug("input rejected", zap.String("input", input), zap.Error(err))
		c.printSystem(upperFirst(err.Error()) + ".")
		return
	}

	switch action.Kind {
	case engine.ActionConfirm:
		if err := c.Engine.Confirm(action.MessageID); err != nil {
			c.printSystem(fmt.Sprintf("Cannot confirm: %v", err))
			return
		}
		c.settle()
		c.showPrompts()

	case engine.ActionChoose:
		if ok, err := c.Engine.SelectOption(action.MessageID, action.Option); err != nil || !ok {
			c.printSystem("That choice is no longer open.")
			return
		}
		c.printLine("» " + action.Option)
		c.send(ctx, types.GameEvent{Type: types.EventMessage}, action.Option, true)

	default:
		c.send(ctx, action.Event, action.Input, false)
	}
}

// send runs one request to completion, settling the engine after every
// chunk so output appears in stream order.
func (c *CLI) send(ctx context.Context, ev types.GameEvent, input string, hidden bool) {
	if c.Engine.Loading {
		c.printSystem("Still waiting for the last reply.")
		return
	}
	req, ok := c.Engine.StartRequest(ev, input, hidden)
	if !ok {
		c.printSystem("The game has not started yet.")
		return
	}
	c.markPlayerLines()

	err := c.Sender.Send(ctx, req, func(ch types.Chunk) {
		if c.Trace {
			c.printSystem(fmt.Sprintf("trace: chunk %s", ch.Type))
		}
		c.Engine.Enqueue(ch)
		c.settle()
	})
	c.Engine.FinishRequest(err)
	c.settle()
	c.showPrompts()
}

// markPlayerLines skips the player's own line, which is already on screen.
func (c *CLI) markPlayerLines() {
	for _, m := range c.Engine.Messages {
		if m.ID > c.printed && m.Sender == types.SenderPlayer {
			c.printed = m.ID
		}
	}
}

// settle completes every animation the engine starts, printing messages as
// they are released.
func (c *CLI) settle() {
	for {
		c.flush()
		if id, ok := c.Engine.Awaiting(); ok && c.AutoRoll {
			if err := c.Engine.Confirm(id); err != nil {
				c.Log.Debug("auto roll rejected", zap.Int64("message", id), zap.Error(err))
			}
		}
		cues := c.Engine.Cues()
		if len(cues) == 0 {
			return
		}
		for _, cue := range cues {
			c.playCue(cue)
		}
	}
}

func (c *CLI) playCue(cue engine.Cue) {
	switch cue.Kind {
	case engine.CueDice:
		c.flush()
		c.printDice(cue.Roll)
		c.Engine.DiceAnimationComplete()
	case engine.CueLevelHide:
		c.printLine("")
		c.printLine(fmt.Sprintf("~~ %s ~~", strings.ToUpper(cue.Level)))
		c.Engine.AnimationComplete()
	default:
		c.Engine.AnimationComplete()
	}
}

func (c *CLI) printDice(roll *types.DiceRoll) {
	if roll == nil {
		return
	}
	line := fmt.Sprintf("%s: rolled %d on %s", roll.Reason, roll.Result, roll.Type)
	if roll.Reason == "" {
		line = fmt.Sprintf("Rolled %d on %s", roll.Result, roll.Type)
	}
	if id, ok := c.Engine.Awaiting(); ok {
		if m, ok := c.Engine.Message(id); ok {
			if o, ok := reduce.FindOutcome(m.LogicEvent, roll.Result); ok {
				line += " → " + o.Content
			}
		}
	}
	c.printSystem(line)
}

// flush prints messages released since the last call.
func (c *CLI) flush() {
	for _, m := range c.Engine.Messages {
		if m.ID <= c.printed {
			continue
		}
		c.printed = m.ID
		c.printMessage(m)
	}
}

func (c *CLI) printMessage(m types.Message) {
	switch {
	case m.Sender == types.SenderPlayer:
		c.printLine("> " + m.Text)
	case m.Sender == types.SenderInit:
		c.printLine("== " + m.Text + " ==")
		c.printLine("")
	case m.Settlement != nil:
		c.printSystem(state.SettlementSummary(m.Settlement))
	case m.Sender == types.SenderSystem:
		c.printSystem(m.Text)
	default:
		c.printLine(m.Text)
	}
}

// showPrompts prints the pending check and the open options. Both can be
// patched onto a message after it was printed, so they are shown once the
// engine is idle.
func (c *CLI) showPrompts() {
	c.flush()
	if a, err := c.Engine.Interpret(types.Intent{Verb: parser.VerbConfirm}); err == nil && a.MessageID != c.prompted {
		if m, ok := c.Engine.Message(a.MessageID); ok {
			c.prompted = m.ID
			ev := m.LogicEvent
			c.printSystem(fmt.Sprintf("Check: %s (%s). Type 'roll' to roll.", ev.Name, ev.DieType))
			for _, o := range ev.Outcomes {
				c.printLine(fmt.Sprintf("  %d-%d  %s", o.Range[0], o.Range[1], o.Content))
			}
		}
	}
	if _, awaiting := c.Engine.Awaiting(); awaiting {
		return
	}
	if m := c.Engine.OpenOptions(); m != nil && m.ID != c.offered {
		c.offered = m.ID
		for i, opt := range m.Options {
			c.printLine(fmt.Sprintf("  %d. %s", i+1, opt))
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := save.Save(c.Engine.SessionID, c.Engine.Messages, c.Engine.State, time.Now())
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	path := filepath.Join(c.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("Transcript saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}
	if c.Engine.Loading {
		c.printSystem("Load failed: a reply is still streaming.")
		return
	}

	path := filepath.Join(c.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	sd, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	c.Engine.Restore(sd.Messages, sd.State)
	c.Engine.SessionID = sd.SessionID
	c.printed, c.prompted, c.offered = 0, 0, 0
	if n := len(sd.Messages); n > 0 {
		c.printed = sd.Messages[n-1].ID
	}
	c.printSystem(fmt.Sprintf("Transcript loaded from %s (%d messages).", name, len(sd.Messages)))

	// Reprint the last narration so the player knows where they are.
	for i := len(sd.Messages) - 1; i >= 0; i-- {
		if sd.Messages[i].Sender == types.SenderDM {
			c.printMessage(sd.Messages[i])
			break
		}
	}
	c.showPrompts()
}

func (c *CLI) cmdHelp() {
	help := []string{
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
		"  roll (r)              Roll the dice for a pending check",
		"  use/eat/drink <item>  Use an item",
		"  drop [half|all] <item>",
		"  again (g)             Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State
	if s == nil {
		c.printSystem("No snapshot yet.")
		return
	}
	v := s.Vitals
	a := s.Attributes
	c.printSystem(fmt.Sprintf("Level: %s  Time: %s", s.Level, state.FormatClock(state.Clock(s))))
	c.printSystem(fmt.Sprintf("HP: %d/%d  Sanity: %d/%d", v.HP, v.MaxHP, v.Sanity, v.MaxSanity))
	c.printSystem(fmt.Sprintf("STR %d  DEX %d  CON %d  INT %d  WIS %d  CHA %d", a.STR, a.DEX, a.CON, a.INT, a.WIS, a.CHA))
	items := state.SortedInventory(s)
	if len(items) == 0 {
		c.printSystem("Inventory: empty")
		return
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = fmt.Sprintf("%s x%d", it.Name, state.Quantity(it))
	}
	c.printSystem("Inventory: " + strings.Join(names, ", "))
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
