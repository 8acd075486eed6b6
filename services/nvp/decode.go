package nvp

import (
	"strings"
)

// MaxIndex bounds error, parameter and personal data indices. Keys with
// larger indices are ignored so a hostile payload can't force huge slices.
const MaxIndex = 1000

type fieldKind int

const (
	fieldUnknown fieldKind = iota
	fieldTimestamp
	fieldAck
	fieldCorrelationID
	fieldBuild
	fieldToken
	fieldTokenSecret
	fieldError
	fieldErrorID
	fieldErrorDomain
	fieldErrorSubdomain
	fieldErrorSeverity
	fieldErrorCategory
	fieldErrorMessage
	fieldErrorParameter
	fieldPersonalDataKey
	fieldPersonalDataValue
)

type field struct {
	kind  fieldKind
	index int
	sub   int
}

var fixedFields = map[string]fieldKind{
	"responseEnvelope.timestamp":     fieldTimestamp,
	"responseEnvelope.ack":           fieldAck,
	"responseEnvelope.correlationId": fieldCorrelationID,
	"responseEnvelope.build":         fieldBuild,
	"token":                          fieldToken,
	"tokenSecret":                    fieldTokenSecret,
}

var errorFields = map[string]fieldKind{
	".errorId":   fieldErrorID,
	".domain":    fieldErrorDomain,
	".subdomain": fieldErrorSubdomain,
	".severity":  fieldErrorSeverity,
	".category":  fieldErrorCategory,
	".message":   fieldErrorMessage,
}

// classify maps a decoded key to the field it addresses.
func classify(key string) field {
	if k, ok := fixedFields[key]; ok {
		return field{kind: k}
	}
	if idx, rest, ok := cutIndex(key, "error"); ok {
		if k, ok := errorFields[rest]; ok {
			return field{kind: k, index: idx}
		}
		if p, ok := strings.CutPrefix(rest, "."); ok {
			if sub, tail, ok := cutIndex(p, "parameter"); ok && tail == "" {
				return field{kind: fieldErrorParameter, index: idx, sub: sub}
			}
		}
		return field{kind: fieldError, index: idx}
	}
	if idx, rest, ok := cutIndex(key, "response.personalData"); ok {
		switch rest {
		case ".personalDataKey":
			return field{kind: fieldPersonalDataKey, index: idx}
		case ".personalDataValue":
			return field{kind: fieldPersonalDataValue, index: idx}
		}
	}
	return field{kind: fieldUnknown}
}

// cutIndex parses a "<name>(N)" prefix of s and returns N with the remainder.
func cutIndex(s, name string) (int, string, bool) {
	rest, ok := strings.CutPrefix(s, name+"(")
	if !ok {
		return 0, "", false
	}
	end := strings.IndexByte(rest, ')')
	if end <= 0 {
		return 0, "", false
	}
	n := 0
	for _, c := range rest[:end] {
		if c < '0' || c > '9' {
			return 0, "", false
		}
		n = n*10 + int(c-'0')
		if n > MaxIndex {
			return 0, "", false
		}
	}
	return n, rest[end+1:], true
}

type kind int

const (
	kindRequestPermissions kind = iota
	kindGetAccessToken
	kindPersonalData
)

// DecodeRequestPermissions decodes a RequestPermissions response.
func DecodeRequestPermissions(s string) *Response {
	return decode(s, kindRequestPermissions)
}

// DecodeGetAccessToken decodes a GetAccessToken response.
func DecodeGetAccessToken(s string) *Response {
	return decode(s, kindGetAccessToken)
}

// DecodePersonalData decodes a GetBasicPersonalData or
// GetAdvancedPersonalData response.
func DecodePersonalData(s string) *Response {
	return decode(s, kindPersonalData)
}

type decoder struct {
	kind kind
	r    *Response

	// last personal data key seen
	pdIndex int
	pdAttr  PersonalDataAttribute
	pdKnown bool
}

func decode(s string, k kind) *Response {
	d := &decoder{
		kind:    k,
		r:       &Response{Errors: []Error{}},
		pdIndex: -1,
	}
	if k == kindPersonalData {
		d.r.PersonalData = PersonalData{}
	}
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		n, v, _ := strings.Cut(pair, "=")
		d.set(classify(unescape(n)), unescape(v))
	}
	return d.r
}

// unescape decodes '+' and valid %XX sequences. Malformed sequences are
// kept as they are.
func unescape(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			sb.WriteByte(' ')
		case c == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]):
			sb.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func ishex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}

func (d *decoder) set(f field, v string) {
	r := d.r
	switch f.kind {
	case fieldTimestamp:
		r.Timestamp = v
	case fieldAck:
		r.Ack = Ack(v)
	case fieldCorrelationID:
		r.CorrelationID = v
	case fieldToken:
		if d.kind != kindPersonalData {
			r.Token = v
		}
	case fieldTokenSecret:
		if d.kind == kindGetAccessToken {
			r.TokenSecret = v
		}
	case fieldError:
		d.errorAt(f.index)
	case fieldErrorID:
		d.errorAt(f.index).ErrorID = v
	case fieldErrorDomain:
		d.errorAt(f.index).Domain = v
	case fieldErrorSubdomain:
		d.errorAt(f.index).Subdomain = v
	case fieldErrorSeverity:
		d.errorAt(f.index).Severity = v
	case fieldErrorCategory:
		d.errorAt(f.index).Category = v
	case fieldErrorMessage:
		d.errorAt(f.index).Message = v
	case fieldErrorParameter:
		e := d.errorAt(f.index)
		if len(e.Parameters) <= f.sub {
			e.Parameters = append(e.Parameters, make([]string, f.sub+1-len(e.Parameters))...)
		}
		e.Parameters[f.sub] = v
	case fieldPersonalDataKey:
		if d.kind == kindPersonalData {
			d.pdIndex = f.index
			d.pdAttr, d.pdKnown = AttributeForSchema(v)
		}
	case fieldPersonalDataValue:
		// values out of step with the last key are dropped
		if d.kind == kindPersonalData && f.index == d.pdIndex && d.pdKnown {
			r.PersonalData[d.pdAttr] = v
		}
	}
}

// errorAt returns the error slot at idx, growing Errors as needed. idx never
// exceeds MaxIndex, cutIndex rejects larger indices.
func (d *decoder) errorAt(idx int) *Error {
	r := d.r
	for len(r.Errors) <= idx {
		r.Errors = append(r.Errors, Error{Parameters: []string{}})
	}
	return &r.Errors[idx]
}
