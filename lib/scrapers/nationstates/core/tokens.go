package core

import (
	"bytes"
	"fmt"
	"strings"

	"nsdotgo/lib/htmlutil"
	"nsdotgo/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// TokenSet holds the per-page values an authenticated form post needs.
type TokenSet struct {
	Chk     string
	LocalID string
	// Nation is the canonical name the page says is logged in.
	Nation string
	// Region is the canonical name of that nation's region, when shown.
	Region string
}

// ExtractTokens reads the logged in nation and form tokens from a page. It
// returns false, with an empty TokenSet, when the page does not carry the
// logged in marker. A page without the marker must never be treated as
// authenticated.
func ExtractTokens(body []byte) (TokenSet, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return TokenSet{}, false
	}
	return tokensFromDocument(doc)
}

func tokensFromDocument(doc *goquery.Document) (TokenSet, bool) {
	nation := strings.TrimSpace(doc.Find("body").AttrOr(loggedInAttr, ""))
	if nation == "" {
		return TokenSet{}, false
	}

	set := TokenSet{
		Nation: textutil.Canonicalize(nation),
		Region: regionFromDocument(doc),
	}
	set.Chk, _ = htmlutil.InputValue(doc, chkField)
	set.LocalID, _ = htmlutil.InputValue(doc, localIdField)
	return set, true
}

// the banner links the nation first, then its region
func regionFromDocument(doc *goquery.Document) string {
	anchors := htmlutil.GetAnchors(doc.Find("a.STANDOUT"))
	if len(anchors) < 2 {
		return ""
	}
	return textutil.Canonicalize(anchors[1].Param("region"))
}

// IsLoginPage reports whether the page explicitly shows the visitor as
// logged out, i.e. it offers the login form instead of the marker.
func IsLoginPage(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return isLoginDocument(doc)
}

func isLoginDocument(doc *goquery.Document) bool {
	if strings.TrimSpace(doc.Find("body").AttrOr(loggedInAttr, "")) != "" {
		return false
	}
	return doc.Find(fmt.Sprintf(`form input[name="%s"]`, loggingInName)).Length() > 0
}
