package nvp

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	ErrorLanguage = "en_US"

	errorLanguagePair = "requestEnvelope.errorLanguage=" + ErrorLanguage
)

// PersonalDataSchemas lists the attributes requested from the personal data
// endpoints, in request order.
var PersonalDataSchemas = []string{
	SchemaFirstName,
	SchemaLastName,
	SchemaEmail,
	SchemaFullName,
	SchemaCompanyName,
	SchemaCountry,
	SchemaPayerID,
}

// EncodeRequestPermissions builds the RequestPermissions query string.
// Scope may be a comma separated string or a []string, anything else
// produces no scope entries.
func EncodeRequestPermissions(callback string, scope any) string {
	parts := []string{errorLanguagePair}
	for _, s := range scopes(scope) {
		parts = append(parts, "scope="+url.QueryEscape(strings.ToUpper(strings.TrimSpace(s))))
	}
	parts = append(parts, "callback="+url.QueryEscape(callback))
	return strings.Join(parts, "&")
}

func scopes(scope any) []string {
	switch v := scope.(type) {
	case string:
		ss := strings.Split(v, ",")
		// trailing empty elements are not scopes
		for len(ss) > 0 && ss[len(ss)-1] == "" {
			ss = ss[:len(ss)-1]
		}
		return ss
	case []string:
		return v
	default:
		return nil
	}
}

// EncodeGetAccessToken builds the GetAccessToken query string. Token and
// verifier are passed through as received from the provider.
func EncodeGetAccessToken(token, verifier string) string {
	return fmt.Sprintf("%v&token=%v&verifier=%v", errorLanguagePair, token, verifier)
}

// EncodePersonalData builds the request body shared by the basic and advanced
// personal data calls. The access token travels in the signed header.
func EncodePersonalData() string {
	var sb strings.Builder
	for i, s := range PersonalDataSchemas {
		fmt.Fprintf(&sb, "attributeList.attribute(%d)=%v&", i, s)
	}
	sb.WriteString(errorLanguagePair)
	return sb.String()
}
