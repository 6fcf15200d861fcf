// Package notify delivers best-effort notifications to registrants' Telegram
// chats. Delivery is fire-and-forget: the core flow (publishing results)
// commits first, then hands the fan-out to a background dispatcher. A failed
// delivery is logged and dropped — it never rolls back or delays the action
// that triggered it.
package notify

import "log"

// Sender delivers one message to one chat. Implemented by TelegramSender in
// production and by fakes in tests.
type Sender interface {
	Send(chatID int64, text string) error
}

// NopSender discards every message. Used when no bot token is configured.
type NopSender struct{}

func (NopSender) Send(int64, string) error { return nil }

// Intent is one queued notification: the same text fanned out to a set of
// recipient chat ids.
type Intent struct {
	ChatIDs []int64
	Text    string
}

// Dispatcher drains a buffered queue of notification intents on its own
// goroutine, keeping all outbound Telegram calls off the request path.
type Dispatcher struct {
	sender Sender
	queue  chan Intent
	done   chan struct{}
}

// NewDispatcher creates a Dispatcher around the given sender. The queue
// buffer absorbs bursts (one publish can fan out to hundreds of
// registrants) so Enqueue rarely has to drop.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		queue:  make(chan Intent, 256),
		done:   make(chan struct{}),
	}
}

// Enqueue queues an intent without blocking. If the queue is full the intent
// is dropped and logged — notifications are best-effort and must never stall
// a request handler.
func (d *Dispatcher) Enqueue(chatIDs []int64, text string) {
	if len(chatIDs) == 0 {
		return
	}
	select {
	case d.queue <- Intent{ChatIDs: chatIDs, Text: text}:
	default:
		log.Printf("notify: queue full, dropping notification for %d recipients", len(chatIDs))
	}
}

// Run is the dispatcher's main loop. Call it in a goroutine ("go d.Run()").
// It exits after Close is called and the queue has drained.
func (d *Dispatcher) Run() {
	for {
		select {
		case intent := <-d.queue:
			d.deliver(intent)
		case <-d.done:
			// Drain anything still queued before exiting.
			for {
				select {
				case intent := <-d.queue:
					d.deliver(intent)
				default:
					return
				}
			}
		}
	}
}

// Close signals Run to drain and stop.
func (d *Dispatcher) Close() {
	close(d.done)
}

func (d *Dispatcher) deliver(intent Intent) {
	for _, chatID := range intent.ChatIDs {
		// Per-recipient failures are logged and skipped; one blocked chat
		// must not stop the rest of the fan-out.
		if err := d.sender.Send(chatID, intent.Text); err != nil {
			log.Printf("notify: send to chat %d failed: %v", chatID, err)
		}
	}
}
