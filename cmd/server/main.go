// Package main is the entry point for the module host process.
package main

import (
	"time"

	"go.uber.org/fx"

	fxmodule "github.com/iruldev/modhost/internal/infra/fx"
	httpserver "github.com/iruldev/modhost/internal/infra/httpserver"
)

func main() {
	app := fx.New(
		fxmodule.Module,
		httpserver.Module,
		fx.StartTimeout(30*time.Second),
		fx.StopTimeout(30*time.Second),
	)

	app.Run()
}
