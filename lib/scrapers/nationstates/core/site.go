package core

// Version is reported in the User-Agent of every request.
const Version = "1.0.0"

const DefaultBaseUrl = "https://www.nationstates.net"

const (
	apiPath = "/cgi-bin/api.cgi"
	// APIVersion is the data API version every query is pinned to.
	APIVersion = "12"

	// any page works for logging in, this one is small
	loginPage   = "/page=display_region/region=rwby"
	refoundPage = "/template-overall=none/"

	chkField      = "chk"
	localIdField  = "localid"
	pinCookie     = "pin"
	loggedInAttr  = "data-nname"
	loggingInName = "logging_in"

	pinHeader      = "X-Pin"
	passwordHeader = "X-Password"
)

// pages scripts are not allowed to touch under the site's script rules
var forbiddenPages = []string{
	"page=telegrams",
	"page=dilemmas",
	"page=compose_telegram",
	"page=store",
	"page=help",
}
