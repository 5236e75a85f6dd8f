package ingestion

import (
	"net/url"
	"strings"

	"github.com/origin-steward/steward/core"
)

// socialHosts routes URL drops to the social connector. Hosts are matched
// after stripping a leading "www.".
var socialHosts = map[string]bool{
	"twitter.com":        true,
	"mobile.twitter.com": true,
	"x.com":              true,
	"bsky.app":           true,
	"threads.net":        true,
	"mastodon.social":    true,
}

// Classify routes a drop to its connector. It is a pure function: the same
// drop always yields the same classification.
//
// Ambiguous cases degrade to text rather than failing: a capture that lands
// somewhere searchable beats a capture that is lost.
func Classify(drop *core.Drop) core.ClassifiedType {
	switch drop.Kind {
	case core.KindText:
		return core.ClassifiedText
	case core.KindImage:
		return core.ClassifiedImage
	case core.KindURL:
		// The wire alias "tweet" is an explicit social routing hint
		if drop.WireType == "tweet" {
			return core.ClassifiedSocialURL
		}
		return classifyURL(drop.Payload)
	default:
		return core.ClassifiedText
	}
}

func classifyURL(payload string) core.ClassifiedType {
	u, err := url.Parse(strings.TrimSpace(payload))
	if err != nil || u.Host == "" {
		// Unparseable URL payloads fall back to text
		return core.ClassifiedText
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	if socialHosts[host] {
		return core.ClassifiedSocialURL
	}
	return core.ClassifiedWebURL
}
