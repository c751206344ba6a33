// murmur: hold a key, speak, release, and the transcript lands on your
// clipboard and in the history. A local HTTP bridge exposes the same
// pipeline to a UI shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"murmur/action"
	"murmur/audio"
	"murmur/bridge"
	"murmur/clipboard"
	"murmur/config"
	"murmur/encoder"
	"murmur/events"
	"murmur/history"
	"murmur/hotkey"
	"murmur/log"
	"murmur/session"
	"murmur/transcriber"
)

var version = "dev"

const devicePollInterval = 5 * time.Second

func main() {
	logPath := flag.String("logpath", "", "log directory (default: OS data dir)")
	setup := flag.Bool("setup", false, "pick the capture device interactively and exit")
	httpAddr := flag.String("http", "127.0.0.1:4573", "bridge listen address")
	lang := flag.String("lang", "", "transcription language hint (e.g. en, tr)")
	archive := flag.Bool("archive", true, "keep FLAC copies of recordings")
	autoCopy := flag.Bool("copy", true, "copy transcripts to the clipboard")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("murmur", version)
		return
	}

	if err := run(*logPath, *httpAddr, *lang, *setup, *archive, *autoCopy); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(logPath, httpAddr, lang string, setup, archive, autoCopy bool) error {
	dir, err := log.ResolveDir(logPath)
	if err != nil {
		return fmt.Errorf("resolving log dir: %w", err)
	}
	log.SetDir(dir)
	if err := log.EnsureDir(); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	if err := log.Init(); err != nil {
		return fmt.Errorf("opening logs: %w", err)
	}
	defer log.Close()

	settingsPath, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving settings path: %w", err)
	}
	settings, err := config.Open(settingsPath)
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer audioCtx.Close()

	if setup {
		return runSetup(audioCtx, settings)
	}

	engine := audio.NewEngine(audioCtx, audio.CaptureConfig{
		SampleRate: audio.CaptureRate,
		Channels:   audio.Channels,
	})

	st := settings.Get()
	trans := transcriber.New(st.APIKeys)
	if lang != "" {
		trans.SetLanguage(lang)
	}
	act := action.New(st.APIKeys)

	historyPath, err := history.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving history path: %w", err)
	}
	store, err := history.Open(historyPath)
	if err != nil {
		// Recording still works without history; the bridge reports 503.
		log.Warnf("history unavailable: %v", err)
	} else {
		defer store.Close()
	}
	startCount, _ := store.Count(context.Background())

	archiveDir := ""
	if archive {
		if archiveDir, err = encoder.DefaultArchiveDir(); err != nil {
			log.Warnf("archive dir unavailable: %v", err)
			archiveDir = ""
		}
	}

	bus := events.NewBus()

	sessCfg := session.Config{
		Language:   lang,
		ArchiveDir: archiveDir,
	}
	if autoCopy {
		sessCfg.Copy = clipboard.Copy
	}
	ctrl := session.NewController(engine, trans, act, store, bus, sessCfg)

	deviceID := func() string { return settings.Get().Audio.DefaultDevice }
	manager := hotkey.NewManager(
		func() {
			if _, err := ctrl.Begin(deviceID()); err != nil && !errors.Is(err, session.ErrAlreadyRecording) {
				log.Errorf("start recording: %v", err)
				bus.Publish(events.ErrorEvent, err.Error())
			}
		},
		func() { ctrl.Finalize() },
	)
	defer manager.Close()

	applyBinding := func(st config.Settings) {
		b := hotkey.Binding{
			Key:      st.Shortcuts.RecordKey,
			Modifier: st.Shortcuts.RecordModifier,
		}
		if err := manager.Rebind(b); err != nil {
			log.Warnf("hotkey %s unavailable: %v", b, err)
		} else if !b.Empty() {
			log.Infof("record shortcut: %s", b)
		}
	}
	applyBinding(st)

	// Settings mutations (bridge commands or external file edits) reach
	// subscribed UIs, re-register the shortcut and re-resolve the
	// transcription and LLM backends, so an API key added at runtime
	// takes effect on the next recording.
	settings.OnChange(func(st config.Settings) {
		bus.Publish(events.SettingsChangedEvent, st)
		applyBinding(st)
		fresh := transcriber.New(st.APIKeys)
		if lang != "" {
			fresh.SetLanguage(lang)
		}
		ctrl.SetTranscriber(fresh)
		ctrl.SetActionEngine(action.New(st.APIKeys))
	})
	if err := settings.Watch(); err != nil {
		log.Warnf("settings watch unavailable: %v", err)
	}
	defer settings.StopWatch()

	srv := bridge.NewServer(ctrl, engine, store, settings, bus, manager.Rebind)
	httpServer := &http.Server{Addr: httpAddr, Handler: srv.Router()}

	log.AppStart(trans.Name())
	log.Infof("bridge listening on %s", httpAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("bridge: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		watchDefaultDevice(ctx, engine, settings, bus)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		ctrl.Cancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	endCount, _ := store.Count(context.Background())
	log.AppEnd(endCount - startCount)
	return err
}

// watchDefaultDevice polls for the configured device going away (for
// example a Bluetooth headset powering off) and clears the preference
// so the next recording falls back to the system default.
func watchDefaultDevice(ctx context.Context, engine *audio.Engine, settings *config.Store, bus *events.Bus) {
	ticker := time.NewTicker(devicePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		want := settings.Get().Audio.DefaultDevice
		if want == "" {
			continue
		}
		if _, err := engine.Lookup(want); errors.Is(err, audio.ErrDeviceUnavailable) {
			log.Warnf("device %q disappeared, falling back to system default", want)
			bus.Publish(events.ErrorEvent, fmt.Sprintf("microphone %q disconnected", want))
			settings.Update(func(st *config.Settings) {
				st.Audio.DefaultDevice = ""
			})
		}
	}
}

func runSetup(audioCtx audio.Context, settings *config.Store) error {
	device, err := audio.SelectDevice(audioCtx)
	if err != nil {
		return err
	}
	id := ""
	name := "system default"
	if device != nil {
		id = device.ID
		name = device.Name
	}
	if err := settings.Update(func(st *config.Settings) {
		st.Audio.DefaultDevice = id
	}); err != nil {
		return err
	}
	fmt.Println("capture device:", name)
	return nil
}
