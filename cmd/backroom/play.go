package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathoo/backroom/cli"
	"github.com/nathoo/backroom/client"
	"github.com/nathoo/backroom/config"
	"github.com/nathoo/backroom/engine"
	"github.com/nathoo/backroom/logging"
	"github.com/nathoo/backroom/session"
	"github.com/nathoo/backroom/tui"
)

var playFlags struct {
	plain     bool
	script    string
	trace     bool
	autoRoll  bool
	transport string
	server    string
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play against a backend",
	Long:  `Connect to the backend and play. The full-screen UI is used when stdout is a terminal; --plain or --script switch to line mode.`,
	RunE:  runPlay,
}

func init() {
	f := playCmd.Flags()
	f.BoolVar(&playFlags.plain, "plain", false, "line mode instead of the full-screen UI")
	f.StringVar(&playFlags.script, "script", "", "read commands from a file (implies --plain)")
	f.BoolVar(&playFlags.trace, "trace", false, "print every received chunk")
	f.BoolVar(&playFlags.autoRoll, "auto-roll", false, "roll checks without waiting (line mode)")
	f.StringVar(&playFlags.transport, "transport", "", "ndjson, sse or ws (overrides BACKROOM_TRANSPORT)")
	f.StringVar(&playFlags.server, "server", "", "backend URL (overrides BACKROOM_SERVER_URL)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(dotenv)
	if err != nil {
		return err
	}
	if playFlags.transport != "" {
		cfg.Transport = playFlags.transport
	}
	if playFlags.server != "" {
		cfg.ServerURL = playFlags.server
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sessionID, err := session.Ensure(session.NewFileStore(cfg.SessionFile))
	if err != nil {
		return err
	}
	log.Info("starting client",
		zap.String("session", sessionID),
		zap.String("server", cfg.ServerURL),
		zap.String("transport", cfg.Transport))

	c, err := client.Dial(cfg.Transport, cfg.ServerURL, sessionID, log)
	if err != nil {
		return err
	}
	defer c.Close()

	eng := engine.New(sessionID, log)
	ctx := cmd.Context()

	// Script mode: open file, force plain, echo commands.
	if playFlags.script != "" {
		f, err := os.Open(playFlags.script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		line := newLineUI(eng, c, cfg, log)
		line.In = f
		line.EchoInput = true
		return line.Run(ctx)
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if playFlags.plain || !isTerminal() {
		return newLineUI(eng, c, cfg, log).Run(ctx)
	}

	return tui.Run(ctx, eng, c, tui.Options{
		Typewriter: cfg.Typewriter(),
		Transition: cfg.Transition(),
		Dice:       cfg.Dice(),
		SaveDir:    cfg.SaveDir,
		Log:        log,
	})
}

func newLineUI(eng *engine.Engine, sender cli.Sender, cfg *config.Config, log *zap.Logger) *cli.CLI {
	c := cli.New(eng, sender)
	c.SaveDir = cfg.SaveDir
	c.Trace = playFlags.trace
	c.AutoRoll = playFlags.autoRoll
	c.Log = log
	return c
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
