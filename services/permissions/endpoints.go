package permissions

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Environment int

const (
	Sandbox Environment = iota
	Production
)

func (e Environment) String() string {
	switch e {
	case Sandbox:
		return "sandbox"
	case Production:
		return "production"
	default:
		return fmt.Sprintf("environment(%d)", int(e))
	}
}

func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sandbox", "test":
		return Sandbox, nil
	case "production", "live":
		return Production, nil
	}
	return 0, errors.Errorf("unknown paypal environment %q", s)
}

// Endpoints holds the resolved URLs of the Permissions service.
type Endpoints struct {
	RequestPermissions      string
	RedirectUser            string
	GetAccessToken          string
	GetPermissions          string
	GetBasicPersonalData    string
	GetAdvancedPersonalData string
}

var endpoints = map[Environment]Endpoints{
	Sandbox: {
		RequestPermissions:      "https://svcs.sandbox.paypal.com/Permissions/RequestPermissions",
		RedirectUser:            "https://www.sandbox.paypal.com/cgi-bin/webscr?cmd=_grant-permission&request_token=%s",
		GetAccessToken:          "https://svcs.sandbox.paypal.com/Permissions/GetAccessToken",
		GetPermissions:          "https://svcs.sandbox.paypal.com/Permissions/GetPermissions",
		GetBasicPersonalData:    "https://svcs.sandbox.paypal.com/Permissions/GetBasicPersonalData",
		GetAdvancedPersonalData: "https://svcs.sandbox.paypal.com/Permissions/GetAdvancedPersonalData",
	},
	Production: {
		RequestPermissions:      "https://svcs.paypal.com/Permissions/RequestPermissions",
		RedirectUser:            "https://www.paypal.com/cgi-bin/webscr?cmd=_grant-permission&request_token=%s",
		GetAccessToken:          "https://svcs.paypal.com/Permissions/GetAccessToken",
		GetPermissions:          "https://www.paypal.com/Permissions/GetPermissions",
		GetBasicPersonalData:    "https://www.paypal.com/Permissions/GetBasicPersonalData",
		GetAdvancedPersonalData: "https://www.paypal.com/Permissions/GetAdvancedPersonalData",
	},
}

func EndpointsFor(e Environment) Endpoints {
	return endpoints[e]
}
