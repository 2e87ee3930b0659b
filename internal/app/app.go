package app

import (
	"context"
	"os/signal"
	"syscall"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// App holds attributes for the bootline application
type App struct {
	// Viper loads configuration parameters.
	v *viper.Viper
	// Bootline configuration.
	Config *Configuration
	// Logger is the app logger
	Logger *logrus.Logger
}

// New returns returns a new instance of the bootline app
func New(appKind model.AppKind, cfgFile string, loglevel int) (*App, error) {
	app := &App{
		v:      viper.New(),
		Config: &Configuration{AppKind: appKind},
		Logger: logrus.New(),
	}

	if err := app.LoadConfiguration(cfgFile); err != nil {
		return nil, err
	}

	// the CLI flag takes precedence over the configured level
	switch {
	case loglevel == model.LogLevelDebug:
		app.Logger.Level = logrus.DebugLevel
	case loglevel == model.LogLevelTrace:
		app.Logger.Level = logrus.TraceLevel
	case app.Config.LogLevel == "debug":
		app.Logger.Level = logrus.DebugLevel
	case app.Config.LogLevel == "trace":
		app.Logger.Level = logrus.TraceLevel
	default:
		app.Logger.Level = logrus.InfoLevel
	}

	app.Logger.SetFormatter(
		&runtime.Formatter{ChildFormatter: &logrus.JSONFormatter{}},
	)

	return app, nil
}

// SignalContext returns a context canceled on SIGINT, SIGTERM.
func (a *App) SignalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
