package main

import (
	"github.com/urfave/cli"
)

func configure(app *cli.App) {
	serveCMD := makeServeCMD()
	migrationCMD := makePGMigrationCMD()
	signCMD := makeSignCMD()
	decodeCMD := makeDecodeCMD()
	app.Commands = []cli.Command{serveCMD, migrationCMD, signCMD, decodeCMD}
}
