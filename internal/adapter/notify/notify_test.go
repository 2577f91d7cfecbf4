package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx/fxtest"

	"github.com/polkiloo/storepay/internal/config"
)

type writerStub struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *writerStub) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *writerStub) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSenderPublishesKeyedMessage(t *testing.T) {
	w := &writerStub{}
	sender := &KafkaSender{writer: w}

	msg := Message{To: "jane@example.com", Subject: "Order PKABC", HTML: "<p>hi</p>"}
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(w.messages))
	}
	if string(w.messages[0].Key) != "jane@example.com" {
		t.Fatalf("unexpected key %q", w.messages[0].Key)
	}
	var got Message
	if err := json.Unmarshal(w.messages[0].Value, &got); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if got != msg {
		t.Fatalf("unexpected payload %+v", got)
	}

	if err := sender.Close(); err != nil || !w.closed {
		t.Fatalf("expected writer to be closed, err=%v", err)
	}
}

func TestKafkaSenderWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	sender := &KafkaSender{writer: &writerStub{err: boom}}
	err := sender.Send(context.Background(), Message{To: "a@b.c"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestNewKafkaSenderConfiguresWriter(t *testing.T) {
	sender := NewKafkaSender([]string{"localhost:9092"}, "notifications")
	w, ok := sender.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("expected *kafka.Writer, got %T", sender.writer)
	}
	if w.Topic != "notifications" {
		t.Fatalf("unexpected topic %q", w.Topic)
	}
	_ = sender.Close()
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))
	if err := sender.Send(context.Background(), Message{To: "ops@example.com", Subject: "Alert", HTML: "<b>x</b>"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "ops@example.com") || !strings.Contains(buf.String(), "Alert") {
		t.Fatalf("expected message to be logged, got %s", buf.String())
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestNewSenderSelectsTransport(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	if _, ok := newSender(senderParams{Config: &config.Config{}, Logger: logger}).(*LogSender); !ok {
		t.Fatal("expected log sender without brokers")
	}

	s := newSender(senderParams{Config: &config.Config{KafkaBrokers: []string{"localhost:9092"}, NotificationTopic: "n"}, Logger: logger})
	if _, ok := s.(*KafkaSender); !ok {
		t.Fatalf("expected kafka sender, got %T", s)
	}
	_ = s.Close()
}

func TestRegisterLifecycleClosesSender(t *testing.T) {
	w := &writerStub{}
	lc := fxtest.NewLifecycle(t)
	registerLifecycle(lc, &KafkaSender{writer: w})
	lc.RequireStart()
	lc.RequireStop()
	if !w.closed {
		t.Fatal("expected sender to be closed on stop")
	}
}
