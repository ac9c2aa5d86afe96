// Package httpserver runs the trial service HTTP endpoints with configurable
// timeouts and graceful shutdown.
//
// Run blocks until its context is cancelled or the process receives SIGINT
// or SIGTERM, then drains in-flight requests within the shutdown timeout:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("http server stopped", logger.Error(err))
//	}
//
// Liveness and Readiness build probe handlers; readiness runs named
// dependency checks such as pg.Healthcheck and redis.Healthcheck.
package httpserver
