package actions

import (
	"fmt"
	"slices"

	"nsdotgo/lib/textutil"
)

// RegionTags are the tags a region's officers may set themselves.
var RegionTags = []string{
	"anarchist",
	"anime",
	"anti-capitalist",
	"anti-communist",
	"anti-fascist",
	"anti-general_assembly",
	"anti-security_council",
	"anti-world_assembly",
	"capitalist",
	"casual",
	"cyberpunk",
	"conservative",
	"defender",
	"democratic",
	"eco-friendly",
	"egalitarian",
	"embassy_collector",
	"fandom",
	"fantasy_tech",
	"fascist",
	"feminist",
	"free_trade",
	"future_tech",
	"game_player",
	"general_assembly",
	"generalite",
	"human-only",
	"imperialist",
	"independent",
	"industrial",
	"international_federalist",
	"invader",
	"isolationist",
	"issues_player",
	"jump_point",
	"lgbt",
	"liberal",
	"libertarian",
	"magical",
	"map",
	"mercenary",
	"modern_tech",
	"monarchist",
	"multi-species",
	"national_sovereigntist",
	"neutral",
	"non-english",
	"offsite_chat",
	"offsite_forums",
	"outer_space",
	"p2tm",
	"pacifist",
	"parody",
	"past_tech",
	"patriarchal",
	"post_apocalyptic",
	"post-modern_tech",
	"puppet_storage",
	"regional_government",
	"religious",
	"role_player",
	"security_council",
	"serious",
	"silly",
	"snarky",
	"social",
	"socialist",
	"sports",
	"steampunk",
	"surreal",
	"theocratic",
	"totalitarian",
	"trading_cards",
	"video_game",
	"world_assembly",
}

// ValidateTag returns the canonical form of `tag`, or an error suggesting
// the closest real tag.
func ValidateTag(tag string) (string, error) {
	canon := textutil.Canonicalize(tag)
	if slices.Contains(RegionTags, canon) {
		return canon, nil
	}
	if suggestion := textutil.Closest(canon, RegionTags); suggestion != "" {
		return "", fmt.Errorf("%w: %q is not a region tag, did you mean %q?", ErrInvalidArgument, tag, suggestion)
	}
	return "", fmt.Errorf("%w: %q is not a region tag", ErrInvalidArgument, tag)
}
