package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/forumledger/kv"
	"github.com/jacentio/forumledger/kv/dynamo"
	"github.com/jacentio/forumledger/kv/memory"
	"github.com/jacentio/forumledger/kv/pebblekv"
	"github.com/jacentio/forumledger/kv/sqlitekv"
)

// OpenStore opens the kv backend selected by c. The caller closes it.
func (c Config) OpenStore(ctx context.Context) (kv.Store, error) {
	switch c.Backend {
	case BackendMemory:
		return memory.New(), nil
	case BackendPebble:
		s, err := pebblekv.Open(pebblekv.DefaultConfig(c.DataPath))
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := sqlitekv.Open(c.DataPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendDynamoDB:
		client, err := c.Dynamo.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		cfg := dynamo.DefaultConfig()
		cfg.Table = c.Dynamo.Table
		return dynamo.New(client, cfg), nil
	default:
		return nil, fmt.Errorf("%w: backend %q", ErrInvalid, c.Backend)
	}
}

// NewClient creates a DynamoDB client from the default AWS credential chain.
func (c DynamoConfig) NewClient(ctx context.Context) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(c.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}
