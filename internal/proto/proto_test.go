package proto

import (
	"bytes"
	"testing"

	"erraid/internal/common"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	payload := []byte(`{"status":"OK"}`)
	buf, err := Pack(common.MsgPong, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, err := ReadMessage(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != common.MsgPong {
		t.Errorf("got type 0x%02X, want 0x%02X", msg.Type, common.MsgPong)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Errorf("got payload %q, want %q", msg.Payload, payload)
	}
}

func TestPackRejectsOversizePayload(t *testing.T) {
	payload := make([]byte, common.MaxPayloadLen)
	if _, err := Pack(common.MsgPing, payload); err == nil {
		t.Fatal("expected error for payload at max length")
	}
}

func TestPackAllowsMaxMinusOnePayload(t *testing.T) {
	payload := make([]byte, common.MaxPayloadLen-1)
	if _, err := Pack(common.MsgPing, payload); err != nil {
		t.Fatalf("unexpected error for payload one below max: %v", err)
	}
}

func TestReadMessageEmptyPayload(t *testing.T) {
	buf, err := Pack(common.MsgPing, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, err := ReadMessage(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Payload) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(msg.Payload))
	}
}

func TestReadMessageRejectsBadMagic(t *testing.T) {
	buf, _ := Pack(common.MsgPing, nil)
	buf[0] ^= 0xFF
	if _, err := ReadMessage(bytes.NewReader(buf)); err == nil {
		t.Fatal("expected error for corrupted magic")
	}
}

func TestReadMessageRejectsBadVersion(t *testing.T) {
	buf, _ := Pack(common.MsgPing, nil)
	buf[4] = 0x02
	if _, err := ReadMessage(bytes.NewReader(buf)); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestReadMessageShortStreamIsError(t *testing.T) {
	buf, _ := Pack(common.MsgPing, []byte("x"))
	truncated := buf[:len(buf)-1]
	if _, err := ReadMessage(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected error for truncated record")
	}
}

func TestReadMessageEmptyStreamIsError(t *testing.T) {
	if _, err := ReadMessage(bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error reading an empty stream")
	}
}

func TestWriteMessageThenReadMessage(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"task_id":7}`)
	if err := WriteMessage(&buf, common.MsgReqRemove, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != common.MsgReqRemove || !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("unexpected round-tripped message: %+v", msg)
	}
}
