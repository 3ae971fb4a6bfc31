package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"
)

type stubSender struct {
	sent []*gomail.Message
	err  error
}

func (s *stubSender) DialAndSend(msgs ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msgs...)
	return nil
}

func TestSendComposesMessage(t *testing.T) {
	stub := &stubSender{}
	m := &Mailer{dialer: stub, fromAddress: "orders@tecbunny.com", fromName: "TecBunny"}

	err := m.Send(context.Background(), Message{
		To:       []string{"customer@example.com"},
		CC:       []string{"admin@tecbunny.com"},
		Subject:  "Order TB-ORD-1 confirmed",
		TextBody: "Your order is confirmed.",
		HTMLBody: "<p>Your order is confirmed.</p>",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(stub.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(stub.sent))
	}

	gm := stub.sent[0]
	if got := gm.GetHeader("To"); len(got) != 1 || got[0] != "customer@example.com" {
		t.Fatalf("unexpected To header %v", got)
	}
	if got := gm.GetHeader("Cc"); len(got) != 1 || got[0] != "admin@tecbunny.com" {
		t.Fatalf("unexpected Cc header %v", got)
	}
	if got := gm.GetHeader("Subject"); len(got) != 1 || got[0] != "Order TB-ORD-1 confirmed" {
		t.Fatalf("unexpected Subject header %v", got)
	}
	if got := gm.GetHeader("From"); len(got) != 1 || !strings.Contains(got[0], "orders@tecbunny.com") {
		t.Fatalf("unexpected From header %v", got)
	}

	var buf bytes.Buffer
	if _, err := gm.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	rendered := buf.String()
	if !strings.Contains(rendered, "text/plain") || !strings.Contains(rendered, "text/html") {
		t.Fatalf("expected multipart body, got:\n%s", rendered)
	}
}

func TestSendValidation(t *testing.T) {
	m := &Mailer{dialer: &stubSender{}, fromAddress: "orders@tecbunny.com"}

	if err := m.Send(context.Background(), Message{Subject: "s", TextBody: "b"}); err == nil {
		t.Fatal("expected error for missing recipient")
	}
	if err := m.Send(context.Background(), Message{To: []string{"a@b.c"}, TextBody: "b"}); err == nil {
		t.Fatal("expected error for missing subject")
	}
	if err := m.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s"}); err == nil {
		t.Fatal("expected error for missing body")
	}
}

func TestSendPropagatesDialError(t *testing.T) {
	m := &Mailer{dialer: &stubSender{err: errors.New("connection refused")}, fromAddress: "orders@tecbunny.com"}

	err := m.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "b"})
	if err == nil {
		t.Fatal("expected error from dialer")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped dial error, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Port: 587, FromAddress: "a@b.c"}); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := New(Config{Host: "smtp.test", FromAddress: "a@b.c"}); err == nil {
		t.Fatal("expected error for missing port")
	}
	if _, err := New(Config{Host: "smtp.test", Port: 587}); err == nil {
		t.Fatal("expected error for missing from address")
	}
	if _, err := New(Config{Host: "smtp.test", Port: 587, FromAddress: "a@b.c"}); err != nil {
		t.Fatalf("new mailer: %v", err)
	}
}
