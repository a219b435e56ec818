package emailsvc

import (
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/trezcool/trainings/core"
	logsvc "github.com/trezcool/trainings/services/logger"
)

func newMock() *ConsoleServiceMock {
	conf := core.NewConfig()
	return NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))
}

func TestConsoleServiceMock_SentMessages(t *testing.T) {
	to := []mail.Address{{Address: "emp1@example.com"}}

	tests := []struct {
		name     string
		messages []*core.EmailMessage
		wantSent int
	}{
		{name: "no recipients", messages: []*core.EmailMessage{{BodyStr: "hi"}}},
		{name: "no content", messages: []*core.EmailMessage{{To: to}}},
		{
			name: "sent",
			messages: []*core.EmailMessage{
				{To: to, Subject: "one", BodyStr: "hi"},
				{To: to, Subject: "two", BodyStr: "hi"},
			},
			wantSent: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMock()
			svc.SendMessages(tt.messages...)
			if got := len(svc.SentMessages()); got != tt.wantSent {
				t.Errorf("len(SentMessages()) = %d; want %d", got, tt.wantSent)
			}
		})
	}
}

func TestConsoleServiceMock_isolated(t *testing.T) {
	first, second := newMock(), newMock()
	first.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "emp1@example.com"}}, BodyStr: "hi"})

	if got := len(second.SentMessages()); got != 0 {
		t.Errorf("second.SentMessages() has %d messages; want 0", got)
	}
	if got := len(first.SentMessages()); got != 1 {
		t.Fatalf("first.SentMessages() has %d messages; want 1", got)
	}

	first.Reset()
	if got := len(first.SentMessages()); got != 0 {
		t.Errorf("after Reset(), SentMessages() has %d messages; want 0", got)
	}
}
