package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"nsdotgo/lib/configutil"
	"nsdotgo/lib/restyutil"
	"nsdotgo/lib/scrapers/nationstates/core"
	"nsdotgo/lib/userinput"
)

// errTemplateWritten stops a command when the config only just got created.
var errTemplateWritten = errors.New("wrote a config template, fill it in and run again")

func loadConfig() (Config, error) {
	config, created, err := configutil.ReadOrTemplate(configPath, configTemplate)
	if err != nil {
		return Config{}, err
	}
	if created {
		slog.Info("created config template", "path", configPath)
		return Config{}, errTemplateWritten
	}
	return config, nil
}

// terminalInput waits for the configured keybind on stdin.
func terminalInput(config Config) (userinput.Signal, error) {
	return userinput.NewTerminal(os.Stdin, config.Keybind)
}

// noInput is for commands that only touch the data api, any html request
// they make fails.
var noInput = userinput.Func(func(ctx context.Context) (userinput.Event, error) {
	return userinput.Event{}, userinput.ErrUnavailable
})

func openSession(ctx context.Context, config Config, input userinput.Signal) (*core.Session, error) {
	opts := core.Options{
		Identity: config.identity(),
		Input:    input,
	}
	if config.ErrorPageDir != "" {
		out, err := restyutil.NewFilesystemOutput(config.ErrorPageDir)
		if err != nil {
			return nil, err
		}
		opts.ErrorPages = out
	}
	if verbose && config.InstrumentDir != "" {
		out, err := restyutil.NewFilesystemOutput(config.InstrumentDir)
		if err != nil {
			return nil, err
		}
		opts.InstrumentOutput = out
	}

	session, err := core.New(opts)
	if err != nil {
		return nil, err
	}
	if err := session.VerifyIdentity(ctx); err != nil {
		return nil, err
	}
	slog.Info("identified", "user_agent", config.identity().UserAgent())
	return session, nil
}
