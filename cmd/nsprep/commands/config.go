package commands

import (
	"errors"
	"strings"

	"nsdotgo/lib/scrapers/nationstates/actions"
	"nsdotgo/lib/scrapers/nationstates/core"
	"nsdotgo/lib/userinput"
)

type scriptConfig struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Author  string `json:"author"`
	Source  string `json:"source,omitempty"`
}

type settingsConfig struct {
	Email            string `json:"email,omitempty"`
	Pretitle         string `json:"pretitle,omitempty"`
	Slogan           string `json:"slogan,omitempty"`
	Currency         string `json:"currency,omitempty"`
	Animal           string `json:"animal,omitempty"`
	DemonymNoun      string `json:"demonym_noun,omitempty"`
	DemonymAdjective string `json:"demonym_adjective,omitempty"`
	DemonymPlural    string `json:"demonym_plural,omitempty"`
}

func (s settingsConfig) settings() actions.Settings {
	return actions.Settings{
		Email:            s.Email,
		Pretitle:         s.Pretitle,
		Slogan:           s.Slogan,
		Currency:         s.Currency,
		Animal:           s.Animal,
		DemonymNoun:      s.DemonymNoun,
		DemonymAdjective: s.DemonymAdjective,
		DemonymPlural:    s.DemonymPlural,
	}
}

func (s settingsConfig) empty() bool {
	return s == settingsConfig{}
}

type Config struct {
	Script scriptConfig `json:"script"`
	// MainNation is the nation operating the script, it goes in the user
	// agent.
	MainNation string `json:"main_nation"`
	JumpPoint  string `json:"jump_point"`
	// Nations maps puppet names to their passwords.
	Nations  map[string]string `json:"nations"`
	Keybind  string            `json:"keybind"`
	FlagFile string            `json:"flag_file,omitempty"`
	Settings settingsConfig    `json:"settings"`

	ErrorPageDir  string `json:"error_page_dir,omitempty"`
	InstrumentDir string `json:"instrument_dir,omitempty"`
}

func (c Config) identity() core.ScriptIdentity {
	return core.ScriptIdentity{
		Name:    c.Script.Name,
		Version: c.Script.Version,
		Author:  c.Script.Author,
		User:    c.MainNation,
		Source:  c.Script.Source,
	}
}

func (c Config) Validate() error {
	if err := c.identity().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.JumpPoint) == "" {
		return errors.New("jump_point is required")
	}
	if _, err := userinput.ParseKey(c.Keybind); err != nil {
		return err
	}
	return c.Settings.settings().Validate()
}

var configTemplate = Config{
	Script: scriptConfig{
		Name:    "nsprep",
		Version: "1.0.0",
		Author:  "",
	},
	MainNation: "",
	JumpPoint:  "artificial_solar_system",
	Nations: map[string]string{
		"puppet one": "password",
	},
	Keybind:       "space",
	ErrorPageDir:  ".nsprep/errors",
	InstrumentDir: ".nsprep/resty",
}
