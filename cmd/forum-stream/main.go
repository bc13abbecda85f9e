// Command forum-stream logs ledger activity from the table's DynamoDB stream.
package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/forumledger/internal/config"
	"github.com/jacentio/forumledger/stream"
)

func main() {
	cfg, err := config.Load(os.Getenv("FORUM_CONFIG"))
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	handler := stream.NewHandler(stream.LogSink(logger), logger)
	lambda.Start(handler.HandleActivity)
}
