package posting

import (
	"net/url"
	"strings"
)

// trackingParams are dropped from posting URLs before fetching.
var trackingParams = map[string]bool{
	"gclid":      true,
	"fbclid":     true,
	"msclkid":    true,
	"mc_cid":     true,
	"mc_eid":     true,
	"mkt_tok":    true,
	"trk":        true,
	"refid":      true,
	"trackingid": true,
}

// Canonicalize lowercases scheme and host, strips the fragment and
// marketing parameters, and sorts what is left of the query. LinkedIn
// links keep only currentJobId.
func Canonicalize(u *url.URL) *url.URL {
	out := *u
	out.Scheme = strings.ToLower(out.Scheme)
	out.Host = strings.ToLower(out.Host)
	out.Fragment = ""
	out.RawFragment = ""

	q := out.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(k)
		}
	}
	if strings.HasSuffix(out.Host, "linkedin.com") {
		keep := url.Values{}
		if v := q.Get("currentJobId"); v != "" {
			keep.Set("currentJobId", v)
		}
		q = keep
	}
	// Encode sorts by key
	out.RawQuery = q.Encode()
	return &out
}
