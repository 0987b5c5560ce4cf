package main

import (
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"

	"github.com/kjanat/gpg-signing-service/internal/config"
	"github.com/kjanat/gpg-signing-service/internal/handler"
	"github.com/kjanat/gpg-signing-service/internal/middleware"
	"github.com/kjanat/gpg-signing-service/internal/svc"
)

var configFile = flag.String("f", "etc/gpgsigner.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c, conf.UseEnv())

	opts := []rest.RunOption{}
	if origins := c.Cors.Origins(); len(origins) > 0 {
		opts = append(opts, rest.WithCustomCors(nil, nil, origins...))
	}

	server := rest.MustNewServer(c.RestConf, opts...)
	defer server.Stop()

	ctx := svc.NewServiceContext(c)
	defer ctx.Close()

	server.Use(middleware.RequestIDMiddleware)
	server.Use(middleware.SecurityHeadersMiddleware)

	handler.RegisterHandlers(server, ctx)

	fmt.Printf("Starting server at %s:%d...\n", c.Host, c.Port)
	server.Start()
}
