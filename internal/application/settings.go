package application

import (
	"errors"
	"fmt"
	"time"
)

type Settings struct {
	// NotifyInterval is the silence allowed after an acknowledgement before
	// the first prompt.
	NotifyInterval time.Duration
	// RepeatInterval separates consecutive prompts while unacknowledged.
	RepeatInterval time.Duration
	// AlertThreshold is the missed count at which supervisors are alerted.
	AlertThreshold uint
	SendTimeout    time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		NotifyInterval: 30 * time.Minute,
		RepeatInterval: 3 * time.Minute,
		AlertThreshold: 3,
		SendTimeout:    10 * time.Second,
	}
}

func (s Settings) Validate() error {
	var errs []error
	if s.NotifyInterval <= 0 {
		errs = append(errs, fmt.Errorf("notify interval must be positive, got %s", s.NotifyInterval))
	}
	if s.RepeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("repeat interval must be positive, got %s", s.RepeatInterval))
	}
	if s.AlertThreshold == 0 {
		errs = append(errs, errors.New("alert threshold must be at least 1"))
	}
	if s.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("send timeout must be positive, got %s", s.SendTimeout))
	}

	return errors.Join(errs...)
}
