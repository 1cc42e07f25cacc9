package workers

import (
	"context"
	"log"
)

// Message is one outbound notification email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message. utils.SMTPSender is the production
// implementation; tests inject fakes.
type Sender interface {
	Send(to, subject, body string) error
}

// Mailer decouples notification sends from the request path. Enqueue
// never blocks and Run swallows send failures, so a core operation's
// outcome can never depend on the mail provider.
type Mailer struct {
	sender Sender
	queue  chan Message
}

func NewMailer(sender Sender, buffer int) *Mailer {
	if buffer <= 0 {
		buffer = 64
	}
	return &Mailer{
		sender: sender,
		queue:  make(chan Message, buffer),
	}
}

// Enqueue hands a message to the worker. If the queue is full the
// message is dropped with a log line; notifications are best-effort.
func (m *Mailer) Enqueue(msg Message) {
	select {
	case m.queue <- msg:
	default:
		log.Printf("[MAILER] queue full, dropping %q to %s", msg.Subject, msg.To)
	}
}

// Run consumes the queue until ctx is cancelled.
func (m *Mailer) Run(ctx context.Context) {
	log.Println("Starting mail worker...")
	for {
		select {
		case <-ctx.Done():
			log.Println("Mail worker stopped.")
			return
		case msg := <-m.queue:
			if msg.To == "" {
				continue
			}
			if err := m.sender.Send(msg.To, msg.Subject, msg.Body); err != nil {
				log.Printf("[MAILER] failed to send %q to %s: %v", msg.Subject, msg.To, err)
			}
		}
	}
}
