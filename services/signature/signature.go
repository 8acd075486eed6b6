// Package signature computes the X-PP-AUTHORIZATION header used for calls
// made on behalf of a user who granted permissions.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderName = "X-PP-AUTHORIZATION"

	method          = "POST"
	version         = "1.0"
	signatureMethod = "HMAC-SHA1"
)

type Signer struct {
	login    string
	password string
	now      func() time.Time
}

func New(login, password string) *Signer {
	return &Signer{
		login:    login,
		password: password,
		now:      time.Now,
	}
}

// WithClock returns a copy of the signer reading timestamps from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	c := *s
	c.now = now
	return &c
}

// AuthorizationHeader returns the header value for a POST to u.
func (s *Signer) AuthorizationHeader(u, accessToken, verifier string) string {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	sig := s.Signature(u, ts, accessToken, verifier, nil)
	return fmt.Sprintf("token=%v,signature=%v,timestamp=%v", accessToken, sig, ts)
}

// Signature signs a POST to u. The HMAC digest is hex encoded and the hex
// text is base64 encoded, as the provider expects.
func (s *Signer) Signature(u, timestamp, accessToken, verifier string, params map[string]string) string {
	key := escape(s.password) + "&" + escape(verifier)

	p := make(map[string]string, len(params)+5)
	for k, v := range params {
		p[k] = v
	}
	p["oauth_consumer_key"] = s.login
	p["oauth_version"] = version
	p["oauth_signature_method"] = signatureMethod
	p["oauth_token"] = accessToken
	p["oauth_timestamp"] = timestamp

	base := strings.Join([]string{
		method,
		escape(u),
		escape(sortedQuery(p)),
	}, "&")

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	digest := hex.EncodeToString(mac.Sum(nil))
	return base64.StdEncoding.EncodeToString([]byte(digest))
}

func sortedQuery(p map[string]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(p[k]))
	}
	return strings.Join(pairs, "&")
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes everything except unreserved and reserved URI
// characters, so separators like ':', '/', '&' and '=' pass unchanged.
func escape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keep(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}

func keep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'();/?:@&=+$,[]", c) >= 0
}
