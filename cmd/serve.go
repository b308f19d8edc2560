package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/lonewatch/internal/adapters/outbox"
	"github.com/bnema/lonewatch/internal/adapters/transport/console"
	"github.com/bnema/lonewatch/internal/adapters/transport/telegram"
	"github.com/bnema/lonewatch/internal/application"
	"github.com/bnema/lonewatch/internal/ports"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

var errAlreadyRunning = errors.New("another lonewatch instance holds the state file")

// transport is what serve needs from a chat backend.
type transport struct {
	notifier ports.Notifier
	source   ports.InboundSource
	resetter ports.OffsetResetter
	// run is started next to the runner when non-nil.
	run func(context.Context) error
}

func newServeCmd() *cobra.Command {
	var consoleMode bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring bot",
		Long:  "serve restores the saved state, then answers chat commands and prompts silent workers until interrupted. With --console it reads commands from stdin as \"<id> <text>\" lines and prints replies to stdout instead of using Telegram.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, map[string]string{
				"token":           keyAPIToken,
				"file":            keySaveFilename,
				"notify-interval": keyNotifyInterval,
				"repeat-interval": keyRepeatInterval,
				"alert-count":     keyAlertCount,
				"tick-interval":   keyTickInterval,
			})
			if err != nil {
				return err
			}
			if !consoleMode && cfg.APIToken == "" {
				return fmt.Errorf("%s is required; set it in the config file, LONEWATCH_API_TOKEN or --token", keyAPIToken)
			}

			app, err := wireApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			lock := flock.New(cfg.SaveFilename + ".lock")
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("lock state file: %w", err)
			}
			if !locked {
				return fmt.Errorf("%w: %s", errAlreadyRunning, lock.Path())
			}
			defer func() {
				_ = lock.Unlock()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var tr transport
			if consoleMode {
				tr = consoleTransport(cmd, app)
			} else {
				tr, err = telegramTransport(ctx, cmd, app)
				if err != nil {
					return err
				}
			}

			return serve(ctx, app, tr)
		},
	}

	cmd.Flags().BoolVar(&consoleMode, "console", false, "use stdin and stdout instead of Telegram")
	cmd.Flags().String("token", "", "Telegram bot API token")
	cmd.Flags().String("file", "", "state file (.json or .toml)")
	cmd.Flags().Float64("notify-interval", 0, "minutes of silence before the first prompt")
	cmd.Flags().Float64("repeat-interval", 0, "minutes between escalation steps")
	cmd.Flags().Int("alert-count", 0, "prompts a worker may miss before supervisors are alerted")
	cmd.Flags().Duration("tick-interval", 0, "how often sessions are checked")

	return cmd
}

func serve(ctx context.Context, app *app, tr transport) error {
	settings := app.config.settings()
	if err := settings.Validate(); err != nil {
		return err
	}

	coord := application.NewCoordinator(nil)
	persistence := application.NewPersistence(app.repo, coord, app.logger)
	if _, err := persistence.Restore(ctx); err != nil {
		app.logger.Printf("Continuing with an empty state: %v", err)
	}

	clock := ports.SystemClock{}
	runner := application.NewRunner(application.RunnerConfig{
		Scheduler:    application.NewScheduler(coord, tr.notifier, clock, settings, app.logger),
		Dispatcher:   application.NewDispatcher(coord, tr.notifier, clock, settings, app.logger),
		Persistence:  persistence,
		Source:       tr.source,
		Resetter:     tr.resetter,
		TickInterval: app.config.TickInterval,
		Logger:       app.logger,
	})

	app.logger.Printf("Monitoring with notify interval %s, repeat interval %s, alert after %d missed, state in %s",
		settings.NotifyInterval, settings.RepeatInterval, settings.AlertThreshold, app.config.SaveFilename)

	if tr.run == nil {
		return runner.Run(ctx)
	}

	sideCtx, cancelSide := context.WithCancel(ctx)
	sideDone := make(chan error, 1)
	go func() {
		sideDone <- tr.run(sideCtx)
	}()

	runErr := runner.Run(ctx)
	cancelSide()
	if err := <-sideDone; err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Printf("Outbox: %v", err)
	}

	return runErr
}

func consoleTransport(cmd *cobra.Command, app *app) transport {
	return transport{
		notifier: console.NewNotifier(cmd.OutOrStdout()),
		source:   console.NewSource(cmd.InOrStdin(), app.logger),
	}
}

// telegramTransport connects the bot and queues its outbound messages so
// the one-second pacing between sends never blocks a command.
func telegramTransport(ctx context.Context, cmd *cobra.Command, app *app) (transport, error) {
	var bot *telegram.Bot
	err := runSpinner(ctx, cmd.ErrOrStderr(), "Connecting to Telegram...", func(context.Context) error {
		var err error
		bot, err = telegram.New(app.config.APIToken, telegram.Options{Logger: app.logger})
		return err
	})
	if err != nil {
		return transport{}, err
	}

	box := outbox.New(bot, outbox.Options{
		SendTimeout: app.config.SendTimeout,
		Pace:        app.config.SendPace,
		OnFailure:   func(error) { bot.ResetOffset() },
		Logger:      app.logger,
	})

	return transport{
		notifier: box,
		source:   bot,
		resetter: bot,
		run:      box.Run,
	}, nil
}
