package actions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"nsdotgo/lib/scrapers/nationstates/core"
	"nsdotgo/lib/textutil"
)

// MoveToRegion moves the logged in nation, `password` is only needed for
// passworded regions.
func (c Client) MoveToRegion(ctx context.Context, region, password string) (bool, error) {
	if strings.TrimSpace(region) == "" {
		return false, fmt.Errorf("%w: empty region", ErrInvalidArgument)
	}
	form := url.Values{
		"region_name": {region},
		"move_region": {"1"},
	}
	if password != "" {
		form.Set("password", password)
	}
	slog.InfoContext(ctx, "moving region", "nation", c.session.State().Nation, "region", region)
	ok, err := c.do(ctx, "MoveToRegion", "/template-overall=none/page=change_region", form, contains("Success!"))
	if ok {
		c.session.RecordRegion(region)
	}
	return ok, err
}

func (c Client) endorse(ctx context.Context, nation, action string) (bool, error) {
	canon := textutil.Canonicalize(nation)
	if canon == "" {
		return false, fmt.Errorf("%w: empty nation", ErrInvalidArgument)
	}
	return c.do(ctx, action, "/cgi-bin/endorse.cgi", url.Values{
		"nation": {canon},
		"action": {action},
	}, redirectsTo("nation="+canon))
}

func (c Client) Endorse(ctx context.Context, nation string) (bool, error) {
	return c.endorse(ctx, nation, "endorse")
}

func (c Client) Unendorse(ctx context.Context, nation string) (bool, error) {
	return c.endorse(ctx, nation, "unendorse")
}

// Vote answers a poll, options count from 0.
func (c Client) Vote(ctx context.Context, pollId, option string) (bool, error) {
	if pollId == "" || option == "" {
		return false, fmt.Errorf("%w: poll and option are required", ErrInvalidArgument)
	}
	return c.do(ctx, "Vote", "/template-overall=none/page=poll/p="+url.PathEscape(pollId), url.Values{
		"pollid":      {pollId},
		"q1":          {option},
		"poll_submit": {"1"},
	}, contains("Your vote has been lodged."))
}

// Settings are the customizable fields of a nation, empty fields are left
// unchanged.
type Settings struct {
	Email            string
	Pretitle         string
	Slogan           string
	Currency         string
	Animal           string
	DemonymNoun      string
	DemonymAdjective string
	DemonymPlural    string
	NewPassword      string
}

type settingsField struct {
	name      string
	form      string
	value     string
	max       int
	min       int
	alnumOnly bool
}

func (s Settings) fields() []settingsField {
	return []settingsField{
		{name: "pretitle", form: "type", value: s.Pretitle, max: 28, min: 2, alnumOnly: true},
		{name: "slogan", form: "slogan", value: s.Slogan, max: 55},
		{name: "currency", form: "currency", value: s.Currency, max: 40, min: 2},
		{name: "animal", form: "animal", value: s.Animal, max: 40, min: 2},
		{name: "demonym noun", form: "demonym2", value: s.DemonymNoun, max: 44, min: 2},
		{name: "demonym adjective", form: "demonym", value: s.DemonymAdjective, max: 44, min: 2},
		{name: "demonym plural", form: "demonym2pl", value: s.DemonymPlural, max: 44, min: 2},
	}
}

// Validate checks the site's length and character limits.
func (s Settings) Validate() error {
	for _, f := range s.fields() {
		if f.value == "" {
			continue
		}
		length := utf8.RuneCountInString(f.value)
		if length > f.max {
			return fmt.Errorf("%w: %s is too long, max length is %d", ErrInvalidArgument, f.name, f.max)
		}
		if length < f.min {
			return fmt.Errorf("%w: %s should be at least %d characters", ErrInvalidArgument, f.name, f.min)
		}
		if f.alnumOnly && !textutil.IsAlnumSpace(f.value) {
			return fmt.Errorf("%w: %s may only contain letters, digits and spaces", ErrInvalidArgument, f.name)
		}
	}
	return nil
}

func (s Settings) form() url.Values {
	form := url.Values{}
	for _, f := range s.fields() {
		if f.value != "" {
			form.Set(f.form, f.value)
		}
	}
	if s.Email != "" {
		form.Set("email", s.Email)
	}
	if s.NewPassword != "" {
		form.Set("password", s.NewPassword)
		form.Set("confirm_password", s.NewPassword)
	}
	return form
}

func (c Client) ChangeNationSettings(ctx context.Context, settings Settings) (bool, error) {
	if err := settings.Validate(); err != nil {
		return false, err
	}
	form := settings.form()
	if len(form) == 0 {
		return false, fmt.Errorf("%w: no settings to change", ErrInvalidArgument)
	}
	form.Set("update", " Update ")
	return c.do(ctx, "ChangeNationSettings", "/template-overall=none/page=settings", form, contains("Your settings have been successfully updated."))
}

// ChangeNationFlag uploads `content` as the nation's flag. The site answers
// with a redirect, so tokens are refreshed afterwards.
func (c Client) ChangeNationFlag(ctx context.Context, filename string, content io.Reader) (bool, error) {
	nation := c.session.State().Nation
	ok, res, err := c.post(ctx, "ChangeNationFlag", "/cgi-bin/upload.cgi", url.Values{
		"nationname": {nation},
	}, redirectsTo("page=settings"), core.File{
		Field:   "file",
		Name:    filename,
		Content: content,
	})
	if err != nil {
		return false, err
	}
	if !ok {
		if res.Contains("Just a moment...") {
			slog.WarnContext(ctx, "flag upload was stopped by a browser check", "nation", nation)
		}
		return false, nil
	}
	return true, c.session.RefreshAuthValues(ctx)
}

func (c Client) ClearDossier(ctx context.Context) (bool, error) {
	return c.do(ctx, "ClearDossier", "/template-overall=none/page=dossier", url.Values{
		"clear_dossier": {"1"},
	}, contains("Dossier cleared of nations."))
}

// AddToDossier appends nations to the dossier as an uploaded dossier file.
func (c Client) AddToDossier(ctx context.Context, nations ...string) (bool, error) {
	if len(nations) == 0 {
		return false, fmt.Errorf("%w: no nations to add", ErrInvalidArgument)
	}
	ok, _, err := c.post(ctx, "AddToDossier", "/dossier.cgi", url.Values{
		"currentnation": {c.session.State().Nation},
		"action_append": {"Upload Nation Dossier File"},
	}, redirectsTo("appended="), core.File{
		Field:       "file",
		Name:        "dossier.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader(strings.TrimSpace(strings.Join(nations, "\n"))),
	})
	if err != nil {
		return false, err
	}
	if err := c.session.RefreshAuthValues(ctx); err != nil {
		return false, err
	}
	return ok, nil
}

// RefoundNation restores a dead nation, the session ends up logged in as it.
func (c Client) RefoundNation(ctx context.Context, nation, password string) (bool, error) {
	return c.session.Refound(ctx, nation, password)
}

// CanNationBeFounded looks `name` up in the boneyard.
func (c Client) CanNationBeFounded(ctx context.Context, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("%w: empty nation name", ErrInvalidArgument)
	}
	return c.do(ctx, "CanNationBeFounded", "/template-overall=none/page=boneyard", url.Values{
		"nation": {name},
		"submit": {"1"},
	}, contains("Available! This name may be used to found a new nation."))
}

func (c Client) JoinNDayFaction(ctx context.Context, factionId string) (bool, error) {
	return c.do(ctx, "JoinNDayFaction", "/template-overall=none/page=faction/fid="+url.PathEscape(factionId), url.Values{
		"join_faction": {"1"},
	}, contains(" has joined "))
}

func (c Client) LeaveNDayFaction(ctx context.Context, factionId string) (bool, error) {
	return c.do(ctx, "LeaveNDayFaction", "/template-overall=none/page=faction/fid="+url.PathEscape(factionId), url.Values{
		"leave_faction": {"1"},
	}, contains(" has left "))
}
