package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"
	wp "github.com/webtor-io/paypal-permissions/handlers/permissions"
	"github.com/webtor-io/paypal-permissions/services/common"
	"github.com/webtor-io/paypal-permissions/services/grant"
	"github.com/webtor-io/paypal-permissions/services/permissions"
	w "github.com/webtor-io/paypal-permissions/services/web"
)

func makeServeCMD() cli.Command {
	serveCMD := cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Serves web server",
		Action:  serve,
	}
	configureServe(&serveCMD)
	return serveCMD
}

func configureServe(c *cli.Command) {
	c.Flags = cs.RegisterPGFlags(c.Flags)
	c.Flags = cs.RegisterProbeFlags(c.Flags)
	c.Flags = cs.RegisterRedisClientFlags(c.Flags)
	c.Flags = cs.RegisterPprofFlags(c.Flags)
	c.Flags = w.RegisterFlags(c.Flags)
	c.Flags = common.RegisterFlags(c.Flags)
	c.Flags = permissions.RegisterFlags(c.Flags)
	c.Flags = grant.RegisterFlags(c.Flags)
}

func serve(c *cli.Context) error {
	// Setting HTTP Client
	cl := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Setting PayPal Permissions Api
	papi, err := permissions.New(c, cl)
	if err != nil {
		return err
	}
	if papi == nil {
		return errors.New("paypal permissions api is not configured (missing PAYPAL_LOGIN)")
	}

	// Setting DB
	pg := cs.NewPG(c)
	defer pg.Close()

	// Setting Migrations
	err = pgMigrate(c)
	if err != nil {
		return err
	}

	// Setting Redis
	redis := cs.NewRedisClient(c)
	defer redis.Close()

	var servers []cs.Servable
	// Setting Probe
	probe := cs.NewProbe(c)
	if probe != nil {
		servers = append(servers, probe)
		defer probe.Close()
	}

	// Setting Pprof
	pprof := cs.NewPprof(c)
	if pprof != nil {
		servers = append(servers, pprof)
		defer pprof.Close()
	}

	// Setting Gin
	r := gin.Default()
	r.RedirectTrailingSlash = false

	// Setting Web
	web, err := w.New(c, r)
	if err != nil {
		return err
	}
	servers = append(servers, web)
	defer web.Close()

	// Setting Grants
	gs := grant.New(c, papi,
		grant.NewRedisPendingStore(redis.Get()),
		grant.NewPGGrantStore(pg),
	)

	// Setting PermissionsHandler
	wp.RegisterHandler(r, gs)

	// Setting Serve
	serve := cs.NewServe(servers...)

	// And SERVE!
	err = serve.Serve()
	if err != nil {
		log.WithError(err).Error("got server error")
	}
	return err
}
