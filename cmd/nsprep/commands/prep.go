package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"nsdotgo/lib/scrapers/nationstates/actions"
	"nsdotgo/lib/scrapers/nationstates/core"
	"nsdotgo/lib/userinput"
	"nsdotgo/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var skipWA bool

type prepResult struct {
	nation   string
	login    string
	flag     string
	settings string
	apply    string
	move     string
}

func outcome(ok bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case ok:
		return "ok"
	default:
		return "failed"
	}
}

// shouldStop reports whether the remaining nations should be skipped. The
// terminal is in raw mode while waiting for a key press, so Ctrl+C arrives as
// ErrInterrupted rather than as a signal.
func shouldStop(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, userinput.ErrInterrupted) ||
		errors.Is(err, userinput.ErrUnavailable) ||
		errors.Is(err, core.ErrConfiguration)
}

func prepNation(ctx context.Context, session *core.Session, client actions.Client, config Config, nation, password string) (prepResult, error) {
	result := prepResult{nation: nation, flag: "-", settings: "-", apply: "-", move: "-"}

	ok, err := session.Login(ctx, nation, password)
	result.login = outcome(ok, err)
	if err != nil || !ok {
		return result, err
	}
	defer func() {
		if err := session.Logout(); err != nil {
			slog.Warn("failed to log out", "nation", nation, "err", err)
		}
	}()

	if config.FlagFile != "" {
		f, err := os.Open(config.FlagFile)
		if err != nil {
			return result, err
		}
		ok, err = client.ChangeNationFlag(ctx, filepath.Base(config.FlagFile), f)
		f.Close()
		result.flag = outcome(ok, err)
		if err != nil {
			return result, err
		}
	}

	if !config.Settings.empty() {
		ok, err = client.ChangeNationSettings(ctx, config.Settings.settings())
		result.settings = outcome(ok, err)
		if err != nil {
			return result, err
		}
	}

	if !skipWA {
		ok, err = client.ApplyWA(ctx, true)
		result.apply = outcome(ok, err)
		if err != nil {
			return result, err
		}
	}

	ok, err = client.MoveToRegion(ctx, config.JumpPoint, "")
	result.move = outcome(ok, err)
	return result, err
}

var prepCmd = &cobra.Command{
	Use:   "prep",
	Short: "Log in to every configured nation, apply to the world assembly and move it to the jump point.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := loadConfig()
		if errors.Is(err, errTemplateWritten) {
			fmt.Println(err)
			return
		}
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		input, err := terminalInput(config)
		if err != nil {
			serviceutil.Fatal("prep needs an interactive terminal", err)
		}
		session, err := openSession(ctx, config, input)
		if err != nil {
			serviceutil.Fatal("failed to start session", err)
		}
		client := actions.NewClient(session)

		nations := make([]string, 0, len(config.Nations))
		for nation := range config.Nations {
			nations = append(nations, nation)
		}
		sort.Strings(nations)

		t := newTable()
		t.AppendHeader(table.Row{"Nation", "Login", "Flag", "Settings", "WA application", "Move"})
		for i, nation := range nations {
			slog.Info("prepping", "nation", nation, "progress", fmt.Sprintf("%d/%d", i+1, len(nations)))
			result, err := prepNation(ctx, session, client, config, nation, config.Nations[nation])
			t.AppendRow(table.Row{result.nation, result.login, result.flag, result.settings, result.apply, result.move})
			if err == nil {
				continue
			}
			slog.Error("prep failed", "nation", nation, "err", err)
			if shouldStop(err) {
				break
			}
		}
		t.Render()
	},
}

func init() {
	prepCmd.Flags().BoolVar(&skipWA, "skip-wa", false, "Do not apply to the world assembly.")
	rootCmd.AddCommand(prepCmd)
}
