package common

import (
	"strings"

	"github.com/urfave/cli"
)

var (
	DomainFlag = "domain"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	f = append(f,
		cli.StringFlag{
			Name:   DomainFlag,
			Usage:  "domain",
			Value:  "http://localhost:8080",
			EnvVar: "DOMAIN",
		},
	)

	return f
}

const (
	CallbackPath     = "/permissions/callback"
	RequestTokenName = "request_token"
	VerifierName     = "verification_code"
)

// AbsURL joins domain and path with exactly one slash between them.
func AbsURL(domain, path string) string {
	return strings.TrimSuffix(domain, "/") + "/" + strings.TrimPrefix(path, "/")
}
