// Package config loads the daemon settings and the powersave section.
//
// Daemon settings come from flags, SCREEN_POWERSAVE_* environment variables and
// the daemon section of the YAML file (through viper). The powersave section is
// decoded with yaml.v3 directly because profile order matters and viper's maps
// do not keep it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the daemon reads.
const EnvPrefix = "SCREEN_POWERSAVE"

// Daemon holds the settings of the process itself.
type Daemon struct {
	Broker       string        `mapstructure:"broker" yaml:"broker"`
	TopicPrefix  string        `mapstructure:"topic_prefix" yaml:"topic_prefix"`
	ClientID     string        `mapstructure:"client_id" yaml:"client_id"`
	HTTPAddr     string        `mapstructure:"http" yaml:"http"`
	PresencePin  int           `mapstructure:"presence_pin" yaml:"presence_pin"`
	GPIOChip     string        `mapstructure:"gpio_chip" yaml:"gpio_chip"`
	Poll         time.Duration `mapstructure:"poll" yaml:"poll"`
	Debounce     time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Heartbeat    time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`
	CallbackDir  string        `mapstructure:"callback_dir" yaml:"callback_dir"`
	ScriptLimit  int           `mapstructure:"script_limit" yaml:"script_limit"`
	WakeOnResume bool          `mapstructure:"wake_on_resume" yaml:"wake_on_resume"`
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
}

// File is the whole configuration document.
type File struct {
	Daemon    Daemon     `yaml:"daemon"`
	Powersave *Powersave `yaml:"powersave,omitempty"`
}

// defaults is applied to viper before the file is read.
var defaults = map[string]any{
	"daemon.broker":         "",
	"daemon.topic_prefix":   "magicmirror/screen",
	"daemon.client_id":      "screen-powersave",
	"daemon.http":           ":8080",
	"daemon.presence_pin":   -1,
	"daemon.gpio_chip":      "gpiochip0",
	"daemon.poll":           100 * time.Millisecond,
	"daemon.debounce":       250 * time.Millisecond,
	"daemon.heartbeat":      15 * time.Minute,
	"daemon.callback_dir":   "callbackScripts",
	"daemon.script_limit":   8,
	"daemon.wake_on_resume": false,
	"daemon.log_level":      "info",
}

// flagKeys maps command line flags to their viper keys.
var flagKeys = map[string]string{
	"broker":         "daemon.broker",
	"topic-prefix":   "daemon.topic_prefix",
	"client-id":      "daemon.client_id",
	"http":           "daemon.http",
	"presence-pin":   "daemon.presence_pin",
	"gpio-chip":      "daemon.gpio_chip",
	"poll":           "daemon.poll",
	"debounce":       "daemon.debounce",
	"heartbeat":      "daemon.heartbeat",
	"callback-dir":   "daemon.callback_dir",
	"script-limit":   "daemon.script_limit",
	"wake-on-resume": "daemon.wake_on_resume",
	"log-level":      "daemon.log_level",
}

// Manager loads and watches the configuration.
type Manager struct {
	v    *viper.Viper
	path string

	mu        sync.RWMutex
	file      File
	watching  bool
	callbacks []func(*Powersave)
}

// NewManager creates a Manager for the file at path. An empty path searches
// /etc/screen-powersave and the working directory for screen-powersave.yaml.
func NewManager(path string) *Manager {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("screen-powersave")
		v.AddConfigPath("/etc/screen-powersave")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return &Manager{v: v, path: path}
}

// AddFlags defines the daemon flags on cmd with their default values.
func AddFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("broker", "", "MQTT broker address (empty logs notifications instead)")
	f.String("topic-prefix", defaults["daemon.topic_prefix"].(string), "MQTT topic prefix")
	f.String("client-id", defaults["daemon.client_id"].(string), "MQTT client id prefix")
	f.String("http", defaults["daemon.http"].(string), "HTTP address (empty to disable)")
	f.Int("presence-pin", defaults["daemon.presence_pin"].(int), "BCM pin of the PIR sensor (-1 to disable)")
	f.String("gpio-chip", defaults["daemon.gpio_chip"].(string), "GPIO character device")
	f.Duration("poll", defaults["daemon.poll"].(time.Duration), "PIR polling interval")
	f.Duration("debounce", defaults["daemon.debounce"].(time.Duration), "PIR debounce duration")
	f.Duration("heartbeat", defaults["daemon.heartbeat"].(time.Duration), "Heartbeat interval (0 to disable)")
	f.String("callback-dir", defaults["daemon.callback_dir"].(string), "Directory holding on/ and off/ callback scripts")
	f.Int("script-limit", defaults["daemon.script_limit"].(int), "Maximum callback scripts running at once")
	f.Bool("wake-on-resume", false, "Treat resume from suspend as user presence")
	f.String("log-level", defaults["daemon.log_level"].(string), "Log level")
}

// BindFlags binds the daemon flags of cmd that are present.
func (m *Manager) BindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := m.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	// Short form for the most common override.
	if err := m.v.BindEnv("daemon.log_level", EnvPrefix+"_LOG_LEVEL", EnvPrefix+"_DAEMON_LOG_LEVEL"); err != nil {
		return fmt.Errorf("bind %s_LOG_LEVEL: %w", EnvPrefix, err)
	}
	return nil
}

// Load reads the file, if any, and decodes both sections. A missing file is
// only an error when an explicit path was given.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	}

	// Unmarshal goes through AllSettings, so defaults, environment and flags
	// are merged for every key, not only those present in the file.
	var s struct {
		Daemon Daemon `mapstructure:"daemon"`
	}
	if err := m.v.Unmarshal(&s); err != nil {
		return fmt.Errorf("decode daemon settings: %w", err)
	}
	d := s.Daemon
	if err := validateDaemon(d); err != nil {
		return fmt.Errorf("invalid daemon settings: %w", err)
	}

	ps, err := m.readPowersave()
	if err != nil {
		return err
	}

	m.file = File{Daemon: d, Powersave: ps}
	return nil
}

// readPowersave decodes the powersave section of the file in use.
func (m *Manager) readPowersave() (*Powersave, error) {
	used := m.v.ConfigFileUsed()
	if used == "" {
		return nil, nil
	}
	data, err := os.ReadFile(used)
	if err != nil {
		if os.IsNotExist(err) && m.path == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", used, err)
	}
	return ParsePowersaveYAML(data)
}

// ParsePowersaveYAML decodes the powersave section of a config document on top
// of DefaultPowersave. It returns nil if the section is absent.
func ParsePowersaveYAML(data []byte) (*Powersave, error) {
	var doc struct {
		Powersave yaml.Node `yaml:"powersave"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if doc.Powersave.Kind == 0 {
		return nil, nil
	}
	ps := DefaultPowersave()
	if err := doc.Powersave.Decode(&ps); err != nil {
		return nil, fmt.Errorf("parse powersave section: %w", err)
	}
	return &ps, nil
}

func validateDaemon(d Daemon) error {
	if d.Poll <= 0 {
		return fmt.Errorf("poll must be positive, got %v", d.Poll)
	}
	if d.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %v", d.Debounce)
	}
	if d.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative, got %v", d.Heartbeat)
	}
	if _, err := log.ParseLevel(d.LogLevel); err != nil {
		return err
	}
	return nil
}

// Daemon returns the loaded daemon settings.
func (m *Manager) Daemon() Daemon {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.file.Daemon
}

// Powersave returns the powersave section, or nil if the file has none.
func (m *Manager) Powersave() *Powersave {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.file.Powersave
}

// File returns the whole loaded document.
func (m *Manager) File() File {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.file
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// OnPowersaveChange registers a callback for reloads of the powersave section.
func (m *Manager) OnPowersaveChange(callback func(*Powersave)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// Watch reloads the powersave section whenever the file changes. Daemon
// settings are not reloaded; they need a restart.
func (m *Manager) Watch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watching || m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		log.WithFields(log.Fields{"op": e.Op.String(), "file": e.Name}).Debug("Config file changed")
		m.reload()
	})
	m.v.WatchConfig()
	m.watching = true
}

func (m *Manager) reload() {
	m.mu.Lock()
	ps, err := m.readPowersave()
	if err != nil {
		m.mu.Unlock()
		log.WithError(err).Warn("Failed to reload config")
		return
	}
	m.file.Powersave = ps
	callbacks := make([]func(*Powersave), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(ps)
	}
}

// Marshal renders the document as YAML.
func (f File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}
