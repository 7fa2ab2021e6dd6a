// Package config loads the teleop configuration from flags, an optional
// config file and TELEOP_ environment variables.
package config

import (
	"io"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/soar/freightteleop/backend/internal/binding"
	"github.com/soar/freightteleop/backend/internal/server"
	"github.com/soar/freightteleop/backend/internal/sink"
)

const envPrefix = "TELEOP"

// Config is the complete configuration.
type Config struct {
	Bindings binding.Config `mapstructure:"bindings" yaml:"bindings"`
	Input    InputConfig    `mapstructure:"input" yaml:"input"`
	Sink     SinkConfig     `mapstructure:"sink" yaml:"sink"`
	Monitor  server.Config  `mapstructure:"monitor" yaml:"monitor"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Tray     TrayConfig     `mapstructure:"tray" yaml:"tray"`
}

// InputConfig tunes the joystick reader.
type InputConfig struct {
	Deadzone       float64       `mapstructure:"deadzone" yaml:"deadzone"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	RepeatInterval time.Duration `mapstructure:"repeat_interval" yaml:"repeat_interval"`
}

// SinkConfig selects where commands go.
type SinkConfig struct {
	UDP         sink.UDPConfig    `mapstructure:"udp" yaml:"udp"`
	CAN         sink.CANConfig    `mapstructure:"can" yaml:"can"`
	Serial      sink.SerialConfig `mapstructure:"serial" yaml:"serial"`
	SendRetries int               `mapstructure:"send_retries" yaml:"send_retries"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type TrayConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Options are command line switches that are not part of Config.
type Options struct {
	ConfigFile  string
	PrintConfig bool
	WatchURL    string
	Help        bool
}

func setDefaults(v *viper.Viper) {
	b := binding.DefaultConfig()
	v.SetDefault("bindings.enable_button", b.EnableButton)
	v.SetDefault("bindings.enable_horiz_button", b.EnableHorizButton)
	v.SetDefault("bindings.enable_twist_button", b.EnableTwistButton)
	v.SetDefault("bindings.axis_adjust_front", b.AxisAdjustFront)
	v.SetDefault("bindings.axis_adjust_back", b.AxisAdjustBack)
	v.SetDefault("bindings.axis_adjust_steering", b.AxisAdjustSteering)

	v.SetDefault("input.deadzone", 0.05)
	v.SetDefault("input.poll_interval", 16*time.Millisecond)
	v.SetDefault("input.repeat_interval", 100*time.Millisecond)

	v.SetDefault("sink.udp.cmd_vel_addr", "127.0.0.1:9870")
	v.SetDefault("sink.udp.adjust_steering_addr", "127.0.0.1:9871")
	v.SetDefault("sink.can.enabled", false)
	v.SetDefault("sink.can.interface", "can0")
	v.SetDefault("sink.can.base_id", 0x300)
	v.SetDefault("sink.serial.enabled", false)
	v.SetDefault("sink.serial.port", "/dev/ttyUSB0")
	v.SetDefault("sink.serial.baud_rate", 115200)
	v.SetDefault("sink.send_retries", 3)

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.addr", ":8080")
	v.SetDefault("monitor.qr_code", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("tray.enabled", true)
}

// newFlagSet declares the command line. Flags that mirror a config key are
// bound to it.
func newFlagSet(opts *Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("freightteleop", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.StringVarP(&opts.ConfigFile, "config", "c", "", "config file (yaml, json or toml)")
	fs.BoolVar(&opts.PrintConfig, "print-config", false, "print the effective configuration as YAML and exit")
	fs.StringVar(&opts.WatchURL, "watch", "", "print batches from a running monitor at ws://host:port/ws and exit")
	fs.BoolVarP(&opts.Help, "help", "h", false, "show help")

	fs.String("monitor-addr", "", "monitor listen address")
	fs.Bool("qr", false, "print a QR code of the monitor URL")
	fs.String("cmd-vel-addr", "", "UDP destination of velocity commands")
	fs.String("steering-addr", "", "UDP destination of steering adjustments")
	fs.String("can-interface", "", "send commands on this SocketCAN interface")
	fs.String("serial-port", "", "send commands to a motor controller on this serial port")
	fs.String("log-level", "", "debug or info")
	fs.Bool("no-tray", false, "disable the system tray")
	return fs
}

var flagKeys = map[string]string{
	"monitor-addr":  "monitor.addr",
	"qr":            "monitor.qr_code",
	"cmd-vel-addr":  "sink.udp.cmd_vel_addr",
	"steering-addr": "sink.udp.adjust_steering_addr",
	"can-interface": "sink.can.interface",
	"serial-port":   "sink.serial.port",
	"log-level":     "log.level",
}

// Load parses args and returns the effective configuration. Precedence is
// flags, then environment, then the config file, then defaults.
func Load(args []string) (*Config, *Options, error) {
	opts := &Options{}
	fs := newFlagSet(opts)
	if err := fs.Parse(args); err != nil {
		return nil, nil, errors.Wrap(err, "parse flags")
	}
	if opts.Help {
		return nil, opts, nil
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, nil, errors.Wrapf(err, "bind flag %s", name)
		}
	}
	if fs.Changed("can-interface") {
		v.Set("sink.can.enabled", true)
	}
	if fs.Changed("serial-port") {
		v.Set("sink.serial.enabled", true)
	}
	if noTray, _ := fs.GetBool("no-tray"); noTray {
		v.Set("tray.enabled", false)
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, errors.Wrapf(err, "read config %s", opts.ConfigFile)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return cfg, opts, nil
}

// Usage writes the flag help to w.
func Usage(w io.Writer) {
	fs := newFlagSet(&Options{})
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info":
	default:
		return errors.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	if c.Input.Deadzone < 0 || c.Input.Deadzone >= 1 {
		return errors.Errorf("input.deadzone: %v not in [0, 1)", c.Input.Deadzone)
	}
	if c.Input.PollInterval <= 0 {
		return errors.Errorf("input.poll_interval: must be positive, got %s", c.Input.PollInterval)
	}
	if c.Sink.SendRetries < 0 {
		return errors.Errorf("sink.send_retries: must not be negative, got %d", c.Sink.SendRetries)
	}
	if c.Sink.CAN.Enabled && c.Sink.CAN.Interface == "" {
		return errors.New("sink.can.interface: required when the CAN sink is enabled")
	}
	if c.Sink.Serial.Enabled && (c.Sink.Serial.Port == "" || c.Sink.Serial.BaudRate <= 0) {
		return errors.New("sink.serial: port and a positive baud_rate are required when the serial sink is enabled")
	}
	return nil
}

// Dump writes c as YAML.
func Dump(w io.Writer, c *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return enc.Close()
}

// NewLogger returns the process logger for the configured level.
func (c *Config) NewLogger(name string) golog.Logger {
	if c.Log.Level == "debug" {
		return golog.NewDevelopmentLogger(name)
	}
	return golog.NewLogger(name)
}
