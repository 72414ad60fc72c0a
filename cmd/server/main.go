package main

import (
	"github.com/wikigraph/backend/internal/server"
	"github.com/wikigraph/backend/internal/util"
	"github.com/wikigraph/backend/pkg/logger"
	"github.com/wikigraph/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
