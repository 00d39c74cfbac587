package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestWithRequestIDPrefixesLines(t *testing.T) {
	var buf bytes.Buffer
	base := log.New(&buf, "bountyhooks/webhook ", 0)

	WithRequestID(base, "delivery-1").Printf("hello")
	if got := buf.String(); !strings.HasPrefix(got, "bountyhooks/webhook request_id=delivery-1 hello") {
		t.Fatalf("unexpected line %q", got)
	}

	if WithRequestID(base, "") != base {
		t.Fatalf("expected empty request id to reuse logger")
	}
}
