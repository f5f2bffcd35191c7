package history

import (
	"context"
	"testing"
)

func TestKey(t *testing.T) {
	if got := Key("telegram", "42"); got != "oliva:history:telegram:42" {
		t.Fatalf("Key = %q", got)
	}
}

func TestNopStore(t *testing.T) {
	var s Store = Nop{}
	if err := s.Save(context.Background(), "telegram", "1", Message{Role: RoleUser, Content: "hola"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	msgs, err := s.Recent(context.Background(), "telegram", "1", 10)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("Recent = %v, %v", msgs, err)
	}
}

func TestDecodeSkipsGarbage(t *testing.T) {
	msgs := decode([]string{
		`{"role":"user","content":"hola","intent":"saludo","timestamp":"2025-07-15T10:00:00Z"}`,
		`not json`,
		`{"role":"assistant","content":"¡Hola!","timestamp":"2025-07-15T10:00:01Z"}`,
	})
	if len(msgs) != 2 {
		t.Fatalf("len = %d", len(msgs))
	}
	if msgs[0].Intent != "saludo" || msgs[1].Role != RoleAssistant {
		t.Fatalf("msgs = %+v", msgs)
	}
}
