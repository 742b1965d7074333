package main

import (
	"github.com/OFFIS-RIT/tabula-web/backend/internal/server"
	"github.com/OFFIS-RIT/tabula-web/backend/internal/util"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
		JSON:  util.GetEnvString("LOG_FORMAT", "text") == "json",
	})
	logger.Init(consoleLogger)

	server.Init()
}
