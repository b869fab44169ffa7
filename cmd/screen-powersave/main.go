// Command screen-powersave switches a mirror display off after a period of
// inactivity and back on for presence or explicit requests.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/screen-powersave/internal/callback"
	"github.com/sweeney/screen-powersave/internal/clock"
	"github.com/sweeney/screen-powersave/internal/config"
	"github.com/sweeney/screen-powersave/internal/display"
	"github.com/sweeney/screen-powersave/internal/gpio"
	"github.com/sweeney/screen-powersave/internal/logic"
	"github.com/sweeney/screen-powersave/internal/mqtt"
	"github.com/sweeney/screen-powersave/internal/presence"
	"github.com/sweeney/screen-powersave/internal/status"
	"github.com/sweeney/screen-powersave/internal/wake"
	"github.com/sweeney/screen-powersave/internal/web"
	"github.com/sweeney/screen-powersave/internal/wire"
)

// eventQueue is the capacity of the inbound event channel.
const eventQueue = 64

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "screen-powersave",
		Short:        "Idle timeout and presence control for a mirror display",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}
			return run(m)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default /etc/screen-powersave/screen-powersave.yaml or ./screen-powersave.yaml)")
	config.AddFlags(rootCmd)

	rootCmd.AddCommand(newStatusCmd(&configPath))
	rootCmd.AddCommand(newPrintConfigCmd(&configPath))
	return rootCmd
}

// loadConfig reads the config file, environment and the flags of cmd, and
// applies the log level.
func loadConfig(cmd *cobra.Command, path string) (*config.Manager, error) {
	m := config.NewManager(path)
	if err := m.BindFlags(cmd); err != nil {
		return nil, err
	}
	if err := m.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, _ := log.ParseLevel(m.Daemon().LogLevel)
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return m, nil
}

func run(m *config.Manager) error {
	d := m.Daemon()
	logger := log.WithField("component", "main")
	if used := m.ConfigFileUsed(); used != "" {
		logger.Infof("Using config file %s", used)
	}

	events := make(chan logic.Event, eventQueue)
	enqueue := func(ev logic.Event) {
		select {
		case events <- ev:
		default:
			logger.Warnf("Event queue full, dropping %s", ev.Name())
		}
	}

	// MQTT, or a log-only stand-in without a broker
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if d.Broker != "" {
		client, err := mqtt.NewRealClient(d.Broker, d.TopicPrefix, d.ClientID, log.WithField("component", "mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		err = client.Subscribe(func(name string, payload []byte) {
			ev, err := wire.Decode(name, payload)
			if err != nil {
				logger.WithError(err).Warnf("Dropping undecodable %s", name)
				return
			}
			enqueue(ev)
		})
		if err != nil {
			client.Close()
			return fmt.Errorf("subscribe: %w", err)
		}
		publisher, mqttStatus = client, client
	} else {
		lp := mqtt.NewLogPublisher(log.WithField("component", "notify"))
		publisher, mqttStatus = lp, lp
		logger.Info("No broker configured, notifications are only logged")
	}
	defer publisher.Close()

	loop := clock.NewLoop(eventQueue)
	defer loop.Close()

	runner := callback.NewRunner(d.CallbackDir, d.ScriptLimit, log.WithField("component", "callback"))
	machine := logic.NewMachine(log.WithField("component", "powersave"), display.NewExec(), runner, publisher, loop)

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:      d.Broker,
		TopicPrefix: d.TopicPrefix,
		HTTPAddr:    d.HTTPAddr,
		PresencePin: d.PresencePin,
		PollMs:      d.Poll.Milliseconds(),
		DebounceMs:  d.Debounce.Milliseconds(),
		HeartbeatMs: d.Heartbeat.Milliseconds(),
		CallbackDir: d.CallbackDir,
	})

	// Powersave section of the file: initial CONFIG and live delay reloads
	if ps := m.Powersave(); ps != nil {
		enqueue(logic.ConfigEvent{Config: ps.Logic()})
		lastDelay := ps.Delay
		m.OnPowersaveChange(func(ps *config.Powersave) {
			if ps == nil || ps.Delay == lastDelay {
				return
			}
			lastDelay = ps.Delay
			logger.Infof("Config file changed delay to %v seconds", ps.Delay)
			enqueue(logic.PowersaveEvent{Delay: ps.Delay})
		})
		m.Watch()
	} else {
		logger.Info("Waiting for CONFIG")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := loopDeps{
		machine:    machine,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        time.Now,
	}
	// Presence sensor
	var tick <-chan time.Time
	if d.PresencePin >= 0 {
		reader, err := gpio.NewRealReader(d.GPIOChip, d.PresencePin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer reader.Close()
		deps.reader = reader
		deps.detector = presence.NewDetector(d.Debounce)
		ticker := time.NewTicker(d.Poll)
		defer ticker.Stop()
		tick = ticker.C
		logger.Infof("Presence sensor on %s pin %d", d.GPIOChip, d.PresencePin)
	}

	// Resume from suspend
	if d.WakeOnResume {
		var monitor *wake.Monitor
		monitor = wake.NewMonitor(log.WithField("component", "wake"), func() {
			tracker.SetWakes(monitor.Wakes())
			enqueue(logic.PresenceEvent{Present: true})
		})
		monitor.Start(ctx)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.WithError(err).Warn("Failed to publish startup event")
	}

	// HTTP event API and status page
	if d.HTTPAddr != "" {
		srv := web.New(d.HTTPAddr, tracker, events, log.WithField("component", "web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("HTTP server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Infof("HTTP server listening on %s", d.HTTPAddr)
	}

	var beat <-chan time.Time
	if d.Heartbeat > 0 {
		hb := time.NewTicker(d.Heartbeat)
		defer hb.Stop()
		beat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.WithFields(log.Fields{
		"broker":    d.Broker,
		"prefix":    d.TopicPrefix,
		"heartbeat": d.Heartbeat,
	}).Info("Started")

	return runLoop(deps, events, loop.Calls(), tick, beat, sigCh)
}

// loopDeps is everything runLoop drives. reader and detector are nil when the
// presence sensor is disabled.
type loopDeps struct {
	machine    *logic.Machine
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	reader     gpio.Reader
	detector   *presence.Detector
	now        func() time.Time
}

// runLoop is the only goroutine that touches the machine. It handles inbound
// events, due timer callbacks, presence polls and heartbeats until a signal
// arrives.
func runLoop(d loopDeps, events <-chan logic.Event, calls <-chan func(), tick, beat <-chan time.Time, sig <-chan os.Signal) error {
	logger := log.WithField("component", "loop")

	refresh := func() {
		d.tracker.Update(d.machine.Snapshot())
		if d.mqttStatus != nil {
			d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		}
	}
	refresh()

	for {
		select {
		case s := <-sig:
			logger.Infof("Received %v, shutting down", s)
			reason := signalName(s)
			refresh()
			snap := d.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  d.now(),
				Event:      "SHUTDOWN",
				Reason:     reason,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				logger.WithError(err).Warn("Failed to publish shutdown event")
			}
			return nil

		case ev := <-events:
			logger.Debugf("Event %s", ev.Name())
			d.machine.Handle(ev)
			refresh()

		case f := <-calls:
			f()
			refresh()

		case <-tick:
			if d.reader == nil || d.detector == nil {
				continue
			}
			motion, err := d.reader.Read()
			if err != nil {
				logger.WithError(err).Warn("GPIO read error")
				continue
			}
			if d.detector.Process(motion, d.now()) {
				logger.Debug("Motion detected")
				d.machine.Handle(logic.PresenceEvent{Present: true})
				refresh()
			}
			d.tracker.SetPresence(status.Presence{
				Enabled:   true,
				Baselined: d.detector.IsBaselined(),
				Motion:    d.detector.Motion(),
				Triggers:  d.detector.Triggers(),
			})

		case <-beat:
			refresh()
			snap := d.tracker.Snapshot()
			logger.WithFields(log.Fields{
				"screen":  snap.Machine.Screen,
				"on":      snap.Machine.Counts.On,
				"off":     snap.Machine.Counts.Off,
				"profile": snap.Machine.Profile,
			}).Info("Heartbeat")
			event := mqtt.SystemEvent{
				Timestamp:  d.now(),
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				logger.WithError(err).Warn("Heartbeat publish error")
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
