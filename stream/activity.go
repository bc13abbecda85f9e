// Package stream provides DynamoDB Streams handlers for ledger activity.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/forumledger/forum"
	"github.com/jacentio/forumledger/internal/keys"
)

// Activity is one thread or element creation observed on the stream.
type Activity struct {
	Kind      keys.Kind
	ThreadID  uint64
	ElementID uint64
	Author    forum.Principal
	Title     string
}

// Sink receives activity decoded from the stream. A returned error fails the
// batch so Lambda redelivers it.
type Sink func(ctx context.Context, a Activity) error

// Handler turns DynamoDB stream records of the ledger table into activity.
type Handler struct {
	sink   Sink
	logger *slog.Logger
}

// LogSink returns a Sink that writes each activity to logger.
func LogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, a Activity) error {
		switch a.Kind {
		case keys.KindThread:
			logger.InfoContext(ctx, "thread created",
				"threadID", a.ThreadID,
				"author", a.Author,
				"title", a.Title,
			)
		case keys.KindThreadElement:
			logger.InfoContext(ctx, "thread element created",
				"threadID", a.ThreadID,
				"elementID", a.ElementID,
				"author", a.Author,
			)
		}
		return nil
	}
}

// NewHandler creates a new stream handler. A nil sink defaults to LogSink.
func NewHandler(sink Sink, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = LogSink(logger)
	}
	return &Handler{
		sink:   sink,
		logger: logger,
	}
}

// HandleActivity processes a batch of stream records.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleActivity(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord handles one stream record. Records are written once, so only
// INSERT events carry new activity; counter bumps arrive as MODIFY.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "INSERT" {
		return nil
	}

	key, err := ConvertStreamKey(record.Change.Keys)
	if err != nil {
		// Not a ledger key; redelivery would not help.
		h.logger.Warn("skipping unrecognized key", "eventID", record.EventID, "error", err)
		return nil
	}

	a := Activity{
		Kind:      key.Kind,
		ThreadID:  key.ThreadID,
		ElementID: key.ElementID,
	}
	val := getBinaryAttr(record.Change.NewImage, "val")

	switch key.Kind {
	case keys.KindThread:
		var t forum.Thread
		if err := json.Unmarshal(val, &t); err != nil {
			h.logger.Warn("skipping undecodable thread", "threadID", key.ThreadID, "error", err)
			return nil
		}
		a.Author, a.Title = t.Author, t.Title
	case keys.KindThreadElement:
		var e forum.ThreadElement
		if err := json.Unmarshal(val, &e); err != nil {
			h.logger.Warn("skipping undecodable element",
				"threadID", key.ThreadID,
				"elementID", key.ElementID,
				"error", err,
			)
			return nil
		}
		a.Author = e.Author
	default:
		// First write of a counter.
		return nil
	}

	if err := h.sink(ctx, a); err != nil {
		return fmt.Errorf("deliver %s: %w", key, err)
	}
	return nil
}

// errNoKey is returned when a stream key carries no binary pk attribute.
var errNoKey = errors.New("stream: record has no binary pk")

// ConvertStreamKey decodes the binary pk of a stream record into a ledger key.
func ConvertStreamKey(streamKey map[string]events.DynamoDBAttributeValue) (keys.Parsed, error) {
	pk := getBinaryAttr(streamKey, "pk")
	if pk == nil {
		return keys.Parsed{}, errNoKey
	}
	return keys.Parse(pk)
}

// getBinaryAttr extracts a binary attribute from a DynamoDB stream image.
func getBinaryAttr(image map[string]events.DynamoDBAttributeValue, key string) []byte {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeBinary {
			return v.Binary()
		}
	}
	return nil
}
