// Package botdetect classifies User-Agent strings of known crawlers.
package botdetect

import (
	"regexp"
	"strings"
)

// signatures is the list of crawler User-Agent patterns. Entries are regular
// expressions and are matched case-insensitively anywhere in the header.
var signatures = []string{
	"Prerender", "Googlebot", `Google\+`, "bingbot", "Googlebot-Mobile",
	"seochat", "SemrushBot", "SemrushBot-SA", "Bot", "SEOChat", "Baiduspider",
	"Yahoo", "YahooSeeker", "DoCoMo", "Twitterbot", "TweetmemeBot", "Twikle",
	"Netseer", "Daumoa", "SeznamBot", "Ezooms", "MSNBot", "Exabot", "MJ12bot",
	`sogou\sspider`, "YandexBot", "bitlybot", "ia_archiver", "proximic", "spbot",
	"ChangeDetection", "NaverBot", "MetaJobBot", "magpie-crawler", `Genieo\sWeb\sfilter`,
	`Qualidator.com\sBot`, "Woko", "Vagabondo", "360Spider", `ExB\sLanguage\sCrawler`,
	"AddThis.com", "aiHitBot", "Spinn3r", "BingPreview", "GrapeshotCrawler", "CareerBot",
	"ZumBot", "ShopWiki", "bixocrawler", "uMBot", "sistrix", "linkdexbot", "AhrefsBot",
	"archive.org_bot", "SeoCheckBot", "TurnitinBot", "VoilaBot", "SearchmetricsBot",
	"Butterfly", `Yahoo!`, "Plukkie", "yacybot", "trendictionbot", "UASlinkChecker",
	"Blekkobot", "Wotbox", "YioopBot", "meanpathbot", "TinEye", "LuminateBot", "FyberSpider",
	"Infohelfer", "linkdex.com", `Curious\sGeorge`, "Fetch-Guess", "ichiro", "MojeekBot",
	"SBSearch", "WebThumbnail", "socialbm_bot", "Vedma", `alexa\ssite\saudit`,
	"SEOkicks-Robot", "Browsershots", "BLEXBot", "woriobot", "AMZNKAssocBot", "Speedy", "oBot",
	"HostTracker", "OpenWebSpider", "WBSearchBot", "FacebookExternalHit", "Google-Structured-Data-Testing-Tool",
	"rogerbot", "linkedinbot", "embedly",
	`quora\slink\spreview`, "showyoubot", "outbrain", "pinterest", "slackbot", "vkShare",
	"W3C_Validator",
}

var pattern = regexp.MustCompile("(?i)(?:" + strings.Join(signatures, "|") + ")")

// IsBot reports whether userAgent matches a known crawler signature.
// An empty User-Agent is not classified as a bot.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return pattern.MatchString(userAgent)
}

// Signatures returns a copy of the configured crawler patterns.
func Signatures() []string {
	out := make([]string, len(signatures))
	copy(out, signatures)
	return out
}
