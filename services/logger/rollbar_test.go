package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/audit"
	"github.com/darasahq/darasa/core/user"
)

func TestRollbarLoggerArgs(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Debug: true})

	usr := user.User{ID: "u1", Username: "jim.morrison", Email: "jim@test.cd"}
	entry := audit.NewEntry(audit.EventRetryAttempt, map[string]interface{}{"attempt": 1})

	args := l.prepare("confirming payment", []interface{}{usr, entry, "extra"})
	if len(args) != 3 {
		t.Fatalf("len(args) = %d; want msg, audit data and the extra arg", len(args))
	}
	data, ok := args[1].(map[string]interface{})
	if !ok {
		t.Fatalf("args[1] type = %T; want map[string]interface{}", args[1])
	}
	if data["audit_event"] != audit.EventRetryAttempt {
		t.Errorf("audit_event = %v; want %v", data["audit_event"], audit.EventRetryAttempt)
	}
	if payload, _ := data["audit_payload"].(string); !strings.Contains(payload, "attempt") {
		t.Errorf("audit_payload = %q; want the entry payload", payload)
	}

	l.Info("confirming payment", entry)
	if out := buf.String(); !strings.Contains(out, audit.EventRetryAttempt) {
		t.Errorf("output %q missing the audit event line", out)
	}
}
