package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/lonewatch/internal/application"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFlag = "config"
	envPrefix  = "LONEWATCH"
	configName = "lonewatch"

	// legacySection is the section the original bot config keeps its keys in.
	legacySection = "default"

	keyAPIToken       = "api_token"
	keyNotifyInterval = "notify_interval"
	keyRepeatInterval = "repeat_interval"
	keyAlertCount     = "alert_count"
	keySaveFilename   = "save_filename"
	keyTickInterval   = "tick_interval"
	keySendTimeout    = "send_timeout"
	keySendPace       = "send_pace"
)

const (
	defaultNotifyMinutes = 30
	defaultRepeatMinutes = 3
	defaultAlertCount    = 3
	defaultSaveFilename  = "/tmp/riban_loan_working.json"
	defaultTickInterval  = time.Minute
	defaultSendTimeout   = 10 * time.Second
	defaultSendPace      = time.Second
)

type config struct {
	APIToken       string
	NotifyInterval time.Duration
	RepeatInterval time.Duration
	AlertCount     int
	SaveFilename   string
	TickInterval   time.Duration
	SendTimeout    time.Duration
	SendPace       time.Duration
	// File is the config file that was read, if any.
	File string
}

func (c config) settings() application.Settings {
	return application.Settings{
		NotifyInterval: c.NotifyInterval,
		RepeatInterval: c.RepeatInterval,
		AlertThreshold: uint(max(c.AlertCount, 0)),
		SendTimeout:    c.SendTimeout,
	}
}

func (c config) validate() error {
	var errs []error
	if c.NotifyInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyNotifyInterval))
	}
	if c.RepeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyRepeatInterval))
	}
	if c.AlertCount < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", keyAlertCount, c.AlertCount))
	}
	if strings.TrimSpace(c.SaveFilename) == "" {
		errs = append(errs, fmt.Errorf("%s is empty", keySaveFilename))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyTickInterval))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keySendTimeout))
	}
	if c.SendPace < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", keySendPace))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// loadConfig resolves every key from, in order: the flags named in
// flagKeys, LONEWATCH_* environment variables, the config file, defaults.
func loadConfig(cmd *cobra.Command, flagKeys map[string]string) (config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for flagName, key := range flagKeys {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return config{}, fmt.Errorf("bind flag %s: %w", flagName, err)
		}
	}

	configPath, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return config{}, err
	}
	if err := readConfigFile(v, configPath); err != nil {
		return config{}, err
	}

	r := resolver{v: v}
	cfg := config{
		APIToken:       strings.TrimSpace(r.text(keyAPIToken, "")),
		NotifyInterval: r.minutes(keyNotifyInterval, defaultNotifyMinutes),
		RepeatInterval: r.minutes(keyRepeatInterval, defaultRepeatMinutes),
		AlertCount:     r.number(keyAlertCount, defaultAlertCount),
		SaveFilename:   r.text(keySaveFilename, defaultSaveFilename),
		TickInterval:   r.duration(keyTickInterval, defaultTickInterval),
		SendTimeout:    r.duration(keySendTimeout, defaultSendTimeout),
		SendPace:       r.duration(keySendPace, defaultSendPace),
		File:           v.ConfigFileUsed(),
	}

	return cfg, cfg.validate()
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.AddConfigPath(filepath.Join(string(os.PathSeparator), "etc", configName))
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".config", configName))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return nil
}

// resolver reads a key at the top level first, then inside the legacy
// section.
type resolver struct {
	v *viper.Viper
}

func (r resolver) lookup(key string) (string, bool) {
	if r.v.IsSet(key) {
		return key, true
	}
	if sectionKey := legacySection + "." + key; r.v.IsSet(sectionKey) {
		return sectionKey, true
	}

	return "", false
}

func (r resolver) text(key, fallback string) string {
	if found, ok := r.lookup(key); ok {
		return r.v.GetString(found)
	}
	return fallback
}

func (r resolver) number(key string, fallback int) int {
	if found, ok := r.lookup(key); ok {
		return r.v.GetInt(found)
	}
	return fallback
}

// minutes reads a possibly fractional number of minutes.
func (r resolver) minutes(key string, fallback float64) time.Duration {
	value := fallback
	if found, ok := r.lookup(key); ok {
		value = r.v.GetFloat64(found)
	}
	return time.Duration(value * float64(time.Minute))
}

func (r resolver) duration(key string, fallback time.Duration) time.Duration {
	if found, ok := r.lookup(key); ok {
		return r.v.GetDuration(found)
	}
	return fallback
}
