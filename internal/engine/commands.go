package engine

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/quillvoice/quill/internal/config"
	"github.com/quillvoice/quill/internal/fsm"
	"github.com/quillvoice/quill/internal/ipc"
)

// Commands accepted on the socket.
const (
	CmdStartRecording      = "START_RECORDING"
	CmdStopAndTranscribe   = "STOP_AND_TRANSCRIBE"
	CmdToggleRecording     = "TOGGLE_RECORDING"
	CmdToggleLanguage      = "TOGGLE_LANGUAGE"
	CmdOpenLanguageMenu    = "OPEN_LANGUAGE_MENU"
	CmdToggleEnter         = "TOGGLE_ENTER"
	CmdResetTranscription  = "RESET_TRANSCRIPTION"
	CmdToggleRealtime      = "TOGGLE_REALTIME_TRANSCRIPTION"
	CmdTranscribeStatic    = "TRANSCRIBE_STATIC"
	CmdOpenConfigDialog    = "OPEN_CONFIG_DIALOG"
	CmdOpenAudioSourceMenu = "OPEN_AUDIO_SOURCE_MENU"
	CmdStatus              = "STATUS"
	CmdQuit                = "QUIT"
)

// handleCommand executes one command and replies. The returned bool is true
// only for QUIT, telling Run to terminate.
func (e *Engine) handleCommand(ctx context.Context, env commandEnvelope) bool {
	resp, quit := e.dispatch(ctx, env.req)
	env.reply <- resp
	return quit
}

func (e *Engine) dispatch(ctx context.Context, req ipc.Request) (ipc.Response, bool) {
	switch req.Command {
	case CmdStartRecording:
		return e.cmdStartRecording(ctx), false

	case CmdStopAndTranscribe:
		return e.cmdStopAndTranscribe(), false

	case CmdToggleRecording:
		// Convenience for single-hotkey front-ends.
		if e.state == fsm.StateIdle {
			return e.cmdStartRecording(ctx), false
		}
		return e.cmdStopAndTranscribe(), false

	case CmdResetTranscription:
		if e.session == nil || !fsm.Active(e.state) {
			return e.reject("RESET_TRANSCRIPTION requires an active session"), false
		}
		e.resetSession(ctx)
		return e.ok("transcription reset"), false

	case CmdToggleLanguage:
		if len(e.cfg.ASR.Languages) == 0 {
			return e.reject("no languages configured"), false
		}
		e.languageIdx = (e.languageIdx + 1) % len(e.cfg.ASR.Languages)
		language := e.language()
		e.logger.Info("language toggled", slog.String("language", language))
		return e.ok("language=" + language), false

	case CmdToggleEnter:
		e.committer.SetAutoEnter(!e.committer.AutoEnter())
		e.logger.Info("auto enter toggled", slog.Bool("enabled", e.committer.AutoEnter()))
		if e.committer.AutoEnter() {
			return e.ok("auto_enter=on"), false
		}
		return e.ok("auto_enter=off"), false

	case CmdToggleRealtime:
		e.realtime = !e.realtime
		if e.session != nil {
			e.session.chunker.SetSplitInterval(e.splitInterval())
		}
		e.logger.Info("realtime mode toggled", slog.Bool("enabled", e.realtime))
		if e.realtime {
			return e.ok("realtime=on"), false
		}
		return e.ok("realtime=off"), false

	case CmdTranscribeStatic:
		return e.cmdTranscribeStatic(req.Arg), false

	case CmdOpenConfigDialog:
		return e.launchUI("config dialog", e.cfg.UI.ConfigCmd), false

	case CmdOpenLanguageMenu:
		return e.launchUI("language menu", e.cfg.UI.LanguageCmd), false

	case CmdOpenAudioSourceMenu:
		return e.launchUI("audio source menu", e.cfg.UI.AudioSourceCmd), false

	case CmdStatus:
		return e.ok(e.statusMessage()), false

	case CmdQuit:
		e.logger.Info("quit requested", slog.String("state", string(e.state)))
		if e.session != nil {
			e.abortSession()
		}
		return ipc.Response{OK: true, State: string(fsm.StateIdle), Message: "engine terminating"}, true

	default:
		return e.reject("unknown command %q", req.Command), false
	}
}

func (e *Engine) cmdStartRecording(ctx context.Context) ipc.Response {
	next, err := fsm.Transition(e.state, fsm.EventStart)
	if err != nil {
		return e.reject("START_RECORDING: %v", err)
	}

	if err := e.startSession(ctx); err != nil {
		e.logger.Error("session start failed", slog.String("error", err.Error()))
		return e.reject("START_RECORDING: %v", err)
	}

	e.state = next
	return e.ok("recording")
}

func (e *Engine) cmdStopAndTranscribe() ipc.Response {
	next, err := fsm.Transition(e.state, fsm.EventStop)
	if err != nil {
		return e.reject("STOP_AND_TRANSCRIBE: %v", err)
	}

	e.state = next
	// Closing capture makes the recorder drain, force-seal the open chunk,
	// and report done; maybeFinish completes the drain from there.
	_ = e.session.capture.Stop()
	return e.ok("draining")
}

func (e *Engine) cmdTranscribeStatic(path string) ipc.Response {
	if e.state != fsm.StateIdle {
		return e.reject("TRANSCRIBE_STATIC requires an idle engine")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return e.reject("TRANSCRIBE_STATIC requires an audio file path")
	}
	if _, err := os.Stat(path); err != nil {
		return e.reject("TRANSCRIBE_STATIC: %v", err)
	}

	e.runStatic(path)
	return e.ok("static transcription started")
}

// launchUI starts a configured external UI command detached.
func (e *Engine) launchUI(what, command string) ipc.Response {
	argv, err := config.ParseArgv(command)
	if err != nil {
		return e.reject("open %s: %v", what, err)
	}
	if len(argv) == 0 {
		return e.reject("open %s: no command configured", what)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return e.reject("open %s: %v", what, err)
	}
	go func() { _ = cmd.Wait() }()

	e.logger.Info("external ui launched", slog.String("ui", what), slog.String("command", argv[0]))
	return e.ok(what + " opened")
}
