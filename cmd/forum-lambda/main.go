// Command forum-lambda serves the ledger behind API Gateway on a DynamoDB table.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/forumledger/api"
	"github.com/jacentio/forumledger/forum"
	"github.com/jacentio/forumledger/internal/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("FORUM_CONFIG"), func(c *config.Config) {
		c.Backend = config.BackendDynamoDB
	})
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	store, err := cfg.OpenStore(context.Background())
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(forum.New(store, logger), logger)
	lambda.Start(server.HandleAPIGateway)
}
