package main

import (
	"os"

	"zk-identity/cmd/zkid/zkidcmd"
	"zk-identity/pkg/logger"
)

func main() {
	logger.InitDefaultLogger(logger.GlobalLoggerConfig{
		Args: []logger.LoggerArg{{Key: "app", Value: "zkid"}},
	})

	if err := zkidcmd.NewRootCmd().Execute(); err != nil {
		logger.Default().WithOutput(os.Stderr).Fatal(err, "zkid failed")
	}
}
