package nvp

import (
	"fmt"
	"strings"
)

// Ack is the acknowledgement status reported in the response envelope.
// Values are passed through verbatim, unknown ones included.
type Ack string

const (
	AckSuccess            Ack = "Success"
	AckFailure            Ack = "Failure"
	AckWarning            Ack = "Warning"
	AckSuccessWithWarning Ack = "SuccessWithWarning"
	AckFailureWithWarning Ack = "FailureWithWarning"
)

func (a Ack) String() string {
	return string(a)
}

func (a Ack) IsSuccess() bool {
	return a == AckSuccess || a == AckSuccessWithWarning || a == AckWarning
}

func (a Ack) IsFailure() bool {
	return a == AckFailure || a == AckFailureWithWarning
}

// Error is a single error reported by the API.
type Error struct {
	ErrorID    string   `json:"error_id"`
	Domain     string   `json:"domain"`
	Subdomain  string   `json:"subdomain"`
	Severity   string   `json:"severity"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	Parameters []string `json:"parameters"`
}

// PersonalDataAttribute names a profile attribute in the decoded result.
type PersonalDataAttribute string

const (
	AttributeFirstName PersonalDataAttribute = "first_name"
	AttributeLastName  PersonalDataAttribute = "last_name"
	AttributeEmail     PersonalDataAttribute = "email"
	AttributeFullName  PersonalDataAttribute = "full_name"
	AttributeCountry   PersonalDataAttribute = "country"
	AttributePayerID   PersonalDataAttribute = "payer_id"
)

const (
	SchemaFirstName   = "http://axschema.org/namePerson/first"
	SchemaLastName    = "http://axschema.org/namePerson/last"
	SchemaEmail       = "http://axschema.org/contact/email"
	SchemaFullName    = "http://schema.openid.net/contact/fullname"
	SchemaCompanyName = "http://openid.net/schema/company/name"
	SchemaCountry     = "http://axschema.org/contact/country/home"
	SchemaPayerID     = "https://www.paypal.com/webapps/auth/schema/payerID"
)

// company name is requested but has no target attribute
var schemaAttributes = map[string]PersonalDataAttribute{
	SchemaFirstName: AttributeFirstName,
	SchemaLastName:  AttributeLastName,
	SchemaEmail:     AttributeEmail,
	SchemaFullName:  AttributeFullName,
	SchemaCountry:   AttributeCountry,
	SchemaPayerID:   AttributePayerID,
}

// AttributeForSchema maps a personal data key URL to its attribute name.
func AttributeForSchema(schema string) (PersonalDataAttribute, bool) {
	a, ok := schemaAttributes[schema]
	return a, ok
}

type PersonalData map[PersonalDataAttribute]string

func (p PersonalData) Get(a PersonalDataAttribute) string {
	return p[a]
}

// Response is a decoded API response. Token, TokenSecret and PersonalData
// are only filled by the decoders of the calls that return them.
type Response struct {
	Timestamp     string       `json:"timestamp"`
	Ack           Ack          `json:"ack"`
	CorrelationID string       `json:"correlation_id"`
	Errors        []Error      `json:"errors"`
	Token         string       `json:"token,omitempty"`
	TokenSecret   string       `json:"token_secret,omitempty"`
	PersonalData  PersonalData `json:"personal_data,omitempty"`
}

// Err returns an *APIError if the API reported a failure, nil otherwise.
func (r *Response) Err() error {
	if r.Ack.IsFailure() || (r.Ack == "" && len(r.Errors) > 0) {
		return &APIError{
			Ack:           r.Ack,
			CorrelationID: r.CorrelationID,
			Errors:        r.Errors,
		}
	}
	return nil
}

// APIError wraps errors reported by the API in a failed response.
type APIError struct {
	Ack           Ack
	CorrelationID string
	Errors        []Error
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("api ack %v (correlation id %v)", e.Ack, e.CorrelationID)
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, er := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%v: %v", er.ErrorID, er.Message))
	}
	return fmt.Sprintf("api ack %v (correlation id %v): %v", e.Ack, e.CorrelationID, strings.Join(msgs, "; "))
}

// HasErrorID reports whether any of the errors carries the given id.
func (e *APIError) HasErrorID(id string) bool {
	for _, er := range e.Errors {
		if er.ErrorID == id {
			return true
		}
	}
	return false
}
