package stream

import (
	"bytes"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

// --- getBinaryAttr Tests ---

func TestGetBinaryAttr_Existing(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"pk": events.NewBinaryAttribute([]byte{0x01, 0xff}),
	}

	result := getBinaryAttr(image, "pk")
	if !bytes.Equal(result, []byte{0x01, 0xff}) {
		t.Errorf("expected 01ff, got %x", result)
	}
}

func TestGetBinaryAttr_MissingKey(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"other": events.NewBinaryAttribute([]byte("x")),
	}

	if result := getBinaryAttr(image, "pk"); result != nil {
		t.Errorf("expected nil for missing key, got %x", result)
	}
}

func TestGetBinaryAttr_NilImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue

	if result := getBinaryAttr(image, "pk"); result != nil {
		t.Errorf("expected nil for nil image, got %x", result)
	}
}

func TestGetBinaryAttr_StringAttribute(t *testing.T) {
	// String-typed pk belongs to some other table layout.
	image := map[string]events.DynamoDBAttributeValue{
		"pk": events.NewStringAttribute("threads:1"),
	}

	if result := getBinaryAttr(image, "pk"); result != nil {
		t.Errorf("expected nil for string attribute, got %x", result)
	}
}

func BenchmarkGetBinaryAttr(b *testing.B) {
	image := map[string]events.DynamoDBAttributeValue{
		"pk": events.NewBinaryAttribute([]byte("threads:12345678")),
	}

	for i := 0; i < b.N; i++ {
		getBinaryAttr(image, "pk")
	}
}
