package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/webtor-io/paypal-permissions/services/nvp"
)

const decodeKindFlag = "kind"

var decoders = map[string]func(string) *nvp.Response{
	"request":       nvp.DecodeRequestPermissions,
	"token":         nvp.DecodeGetAccessToken,
	"personal-data": nvp.DecodePersonalData,
}

func makeDecodeCMD() cli.Command {
	decodeCMD := cli.Command{
		Name:    "decode",
		Aliases: []string{"d"},
		Usage:   "Decodes an NVP response read from stdin into JSON",
		Action:  decode,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  decodeKindFlag,
				Usage: "response kind (request, token or personal-data)",
				Value: "request",
			},
		},
	}
	return decodeCMD
}

func decode(c *cli.Context) error {
	return decodeTo(os.Stdin, os.Stdout, c.String(decodeKindFlag))
}

func decodeTo(in io.Reader, out io.Writer, kind string) error {
	d, ok := decoders[kind]
	if !ok {
		return errors.Errorf("unknown response kind %q", kind)
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "failed to read input")
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(d(strings.TrimSpace(string(b))))
}
