package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/webtor-io/paypal-permissions/services/permissions"
	"github.com/webtor-io/paypal-permissions/services/signature"
)

const (
	signURLFlag       = "url"
	signTokenFlag     = "token"
	signVerifierFlag  = "verifier"
	signTimestampFlag = "timestamp"
)

func makeSignCMD() cli.Command {
	signCMD := cli.Command{
		Name:   "sign",
		Usage:  "Prints the authorization header for a call on behalf of a user",
		Action: sign,
	}
	configureSign(&signCMD)
	return signCMD
}

func configureSign(c *cli.Command) {
	c.Flags = permissions.RegisterFlags(c.Flags)
	c.Flags = append(c.Flags,
		cli.StringFlag{
			Name:  signURLFlag,
			Usage: "target url (defaults to GetBasicPersonalData endpoint)",
		},
		cli.StringFlag{
			Name:  signTokenFlag,
			Usage: "access token",
		},
		cli.StringFlag{
			Name:  signVerifierFlag,
			Usage: "access token secret",
		},
		cli.Int64Flag{
			Name:  signTimestampFlag,
			Usage: "unix timestamp to sign with (defaults to now)",
		},
	)
}

func sign(c *cli.Context) error {
	papi, err := permissions.New(c, http.DefaultClient)
	if err != nil {
		return err
	}
	if papi == nil {
		return errors.New("paypal login is not configured")
	}
	token := c.String(signTokenFlag)
	verifier := c.String(signVerifierFlag)
	if token == "" || verifier == "" {
		return errors.New("token and verifier are required")
	}
	u := c.String(signURLFlag)
	if u == "" {
		u = papi.Endpoints().GetBasicPersonalData
	}
	s := papi.Signer()
	if ts := c.Int64(signTimestampFlag); ts != 0 {
		s = s.WithClock(func() time.Time { return time.Unix(ts, 0) })
	}
	fmt.Printf("%v: %v\n", signature.HeaderName, s.AuthorizationHeader(u, token, verifier))
	return nil
}
