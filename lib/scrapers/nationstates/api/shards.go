package api

import (
	"fmt"
	"slices"

	"nsdotgo/lib/textutil"
)

type Kind string

const (
	Nation Kind = "nation"
	Region Kind = "region"
	World  Kind = "world"
	WA     Kind = "wa"
)

var nationShards = []string{
	"admirable", "admirables", "animal", "animaltrait", "answered", "banner",
	"banners", "capital", "category", "census", "crime", "currency",
	"customcapital", "customleader", "customreligion", "dbid", "deaths",
	"demonym", "demonym2", "demonym2plural", "dispatches", "dispatchlist",
	"endorsements", "factbooks", "factbooklist", "firstlogin", "flag",
	"founded", "foundedtime", "freedom", "fullname", "gavote", "gdp", "govt",
	"govtdesc", "govtpriority", "happenings", "income", "industrydesc",
	"influence", "lastactivity", "lastlogin", "leader", "legislation",
	"majorindustry", "motto", "name", "notable", "notables", "policies",
	"poorest", "population", "publicsector", "rcensus", "region", "religion",
	"richest", "scvote", "sectors", "sensibilities", "tax", "tgcanrecruit",
	"tgcancampaign", "type", "wa", "wabadges", "wcensus", "zombie",
}

// privateNationShards need the nation's password or pin.
var privateNationShards = []string{
	"dossier", "issues", "issuesummary", "nextissue", "nextissuetime",
	"notices", "packs", "ping", "rdossier", "unread",
}

var regionShards = []string{
	"banlist", "banner", "bannerby", "bannerurl", "census", "censusranks",
	"dbid", "delegate", "delegateauth", "delegatevotes", "dispatches",
	"embassies", "embassyrmb", "factbook", "flag", "founded", "foundedtime",
	"founder", "frontier", "gavote", "governor", "governortitle",
	"happenings", "history", "lastmajorupdate", "lastminorupdate",
	"lastupdate", "messages", "name", "nations", "numnations",
	"numwanations", "officers", "poll", "power", "scvote", "tags",
	"wabadges", "wanations", "zombie",
}

var worldShards = []string{
	"banner", "census", "censusdesc", "censusid", "censusname",
	"censusranks", "censusscale", "censustitle", "dispatch", "dispatchlist",
	"faction", "factions", "featuredregion", "happenings", "lasteventid",
	"nations", "newnationdetails", "newnations", "numnations", "numregions",
	"poll", "regions", "regionsbytag", "tgqueue",
}

var waShards = []string{
	"delegates", "dellog", "delvotes", "happenings", "lastresolution",
	"members", "numdelegates", "numnations", "proposals", "resolution",
	"voters",
}

func shardsFor(kind Kind) ([]string, error) {
	switch kind {
	case Nation:
		return slices.Concat(nationShards, privateNationShards), nil
	case Region:
		return regionShards, nil
	case World:
		return worldShards, nil
	case WA:
		return waShards, nil
	}
	return nil, fmt.Errorf("%w: unknown api %q", ErrInvalidQuery, kind)
}

// IsPrivateShard reports whether a nation shard needs authentication.
func IsPrivateShard(shard string) bool {
	return slices.Contains(privateNationShards, shard)
}

// ValidateShards checks every shard against the ones `kind` offers,
// suggesting the closest one for typos.
func ValidateShards(kind Kind, shards []string) error {
	valid, err := shardsFor(kind)
	if err != nil {
		return err
	}
	for _, shard := range shards {
		if slices.Contains(valid, shard) {
			continue
		}
		if suggestion := textutil.Closest(shard, valid); suggestion != "" {
			return fmt.Errorf("%w: %q is not a %s shard, did you mean %q?", ErrInvalidQuery, shard, kind, suggestion)
		}
		return fmt.Errorf("%w: %q is not a %s shard", ErrInvalidQuery, shard, kind)
	}
	return nil
}
