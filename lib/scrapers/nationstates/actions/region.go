package actions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"nsdotgo/lib/scrapers/nationstates/core"
	"nsdotgo/lib/textutil"
)

const regionControlPage = "/template-overall=none/page=region_control/"

type NewRegion struct {
	Name string
	// WFE is the region's world factbook entry.
	WFE      string
	Password string
	Frontier bool
	// ExecutiveDelegacy is ignored for frontiers.
	ExecutiveDelegacy bool
}

func (c Client) CreateRegion(ctx context.Context, region NewRegion) (bool, error) {
	name := strings.TrimSpace(region.Name)
	if name == "" {
		return false, fmt.Errorf("%w: empty region name", ErrInvalidArgument)
	}
	form := url.Values{
		"page":          {"create_region"},
		"region_name":   {name},
		"desc":          {strings.TrimSpace(region.WFE)},
		"create_region": {"1"},
	}
	if region.Password != "" {
		form.Set("pw", "1")
		form.Set("rpassword", region.Password)
	}
	if region.Frontier {
		form.Set("is_frontier", "1")
	} else if region.ExecutiveDelegacy {
		form.Set("delegate_control", "1")
	}
	return c.do(ctx, "CreateRegion", "/template-overall=none/page=create_region", form, contains("Success! You have founded "))
}

type UploadKind string

const (
	UploadFlag   UploadKind = "flag"
	UploadBanner UploadKind = "banner"
)

// UploadToRegion uploads a flag or banner image for the current region and
// returns the id to pass to SetFlagAndBanner, "" when the upload failed.
func (c Client) UploadToRegion(ctx context.Context, kind UploadKind, filename string, content io.Reader) (string, error) {
	if kind != UploadFlag && kind != UploadBanner {
		return "", fmt.Errorf("%w: upload kind must be %q or %q", ErrInvalidArgument, UploadFlag, UploadBanner)
	}
	region := c.session.State().Region
	if region == "" {
		return "", fmt.Errorf("%w: the session's region is unknown", ErrInvalidArgument)
	}

	slog.InfoContext(ctx, "uploading to region", "region", region, "kind", string(kind), "file", filename)
	_, res, err := c.post(ctx, "UploadToRegion", "/cgi-bin/upload.cgi", url.Values{
		"uploadtype": {"r" + string(kind)},
		"page":       {"region_control"},
		"region":     {region},
		"expect":     {"json"},
	}, func(*core.Response) bool { return true }, core.File{
		Field:   "file_upload_r" + string(kind),
		Name:    filename,
		Content: content,
	})
	if err != nil {
		return "", err
	}

	var body map[string]any
	if err := res.JSON(&body); err != nil {
		slog.WarnContext(ctx, "upload response was not json", "region", region, "err", err)
		return "", nil
	}
	switch id := body["id"].(type) {
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	}
	return "", nil
}

type FlagMode string

const (
	FlagModeUnchanged FlagMode = ""
	// FlagModeFlag draws the flag with a shadow.
	FlagModeFlag FlagMode = "flag"
	FlagModeLogo FlagMode = "logo"
)

// SetFlagAndBanner applies uploaded images, empty ids leave the current
// image in place.
func (c Client) SetFlagAndBanner(ctx context.Context, flagId, bannerId string, mode FlagMode) (bool, error) {
	if mode != FlagModeUnchanged && mode != FlagModeFlag && mode != FlagModeLogo {
		return false, fmt.Errorf("%w: flag mode must be %q, %q or empty", ErrInvalidArgument, FlagModeFlag, FlagModeLogo)
	}
	form := url.Values{"saveflagandbannerchanges": {"1"}}
	if flagId != "" {
		form.Set("newflag", flagId)
	}
	if bannerId != "" {
		form.Set("newbanner", bannerId)
	}
	if mode != FlagModeUnchanged {
		form.Set("flagmode", string(mode))
	}
	return c.do(ctx, "SetFlagAndBanner", regionControlPage, form, contains("Regional banner/flag updated!"))
}

// ChangeWFE replaces the region's world factbook entry. Characters outside
// of latin-1 are sent as character references, which is how the site
// stores them.
func (c Client) ChangeWFE(ctx context.Context, wfe string) (bool, error) {
	wfe = strings.TrimSpace(wfe)
	if wfe == "" {
		return false, fmt.Errorf("%w: empty world factbook entry", ErrInvalidArgument)
	}
	return c.do(ctx, "ChangeWFE", regionControlPage, url.Values{
		"message":      {textutil.EncodeLatin1(wfe)},
		"setwfebutton": {"1"},
	}, contains("World Factbook Entry updated!"))
}

func (c Client) RequestEmbassy(ctx context.Context, region string) (bool, error) {
	return c.do(ctx, "RequestEmbassy", regionControlPage, url.Values{
		"requestembassyregion": {region},
		"requestembassy":       {"1"},
	}, contains("Your proposal for the construction of embassies with"))
}

func (c Client) CloseEmbassy(ctx context.Context, region string) (bool, error) {
	return c.do(ctx, "CloseEmbassy", regionControlPage, url.Values{
		"cancelembassyregion": {region},
	}, contains(" has been scheduled for demolition."))
}

func (c Client) AbortEmbassy(ctx context.Context, region string) (bool, error) {
	return c.do(ctx, "AbortEmbassy", regionControlPage, url.Values{
		"abortembassyregion": {region},
	}, contains(" aborted."))
}

// CancelEmbassy cancels a scheduled embassy closure.
func (c Client) CancelEmbassy(ctx context.Context, region string) (bool, error) {
	return c.do(ctx, "CancelEmbassy", regionControlPage, url.Values{
		"cancelembassyclosureregion": {region},
	}, contains("Embassy closure order cancelled."))
}

type TagAction string

const (
	AddTag    TagAction = "add"
	RemoveTag TagAction = "remove"
)

func (c Client) Tag(ctx context.Context, action TagAction, tag string) (bool, error) {
	if action != AddTag && action != RemoveTag {
		return false, fmt.Errorf("%w: tag action must be %q or %q", ErrInvalidArgument, AddTag, RemoveTag)
	}
	canon, err := ValidateTag(tag)
	if err != nil {
		return false, err
	}
	return c.do(ctx, "Tag", regionControlPage, url.Values{
		string(action) + "_tag": {canon},
		"updatetagsbutton":      {"1"},
	}, contains("Region Tags updated!"))
}

// Eject removes `nation` from the current region. The site wants a second
// between ejections.
func (c Client) Eject(ctx context.Context, nation string) (bool, error) {
	return c.do(ctx, "Eject", regionControlPage, url.Values{
		"nation_name": {nation},
		"eject":       {"1"},
	}, contains("has been ejected from "))
}

// Banject ejects `nation` and bans it from returning.
func (c Client) Banject(ctx context.Context, nation string) (bool, error) {
	return c.do(ctx, "Banject", regionControlPage, url.Values{
		"nation_name": {nation},
		"ban":         {"1"},
	}, contains("has been ejected and banned from "))
}
