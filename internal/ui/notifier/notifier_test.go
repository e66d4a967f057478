package notifier

import "testing"

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	n := New()
	a := n.Subscribe()
	b := n.Subscribe()
	defer n.Unsubscribe(a)
	defer n.Unsubscribe(b)

	n.Broadcast()

	select {
	case <-a:
	default:
		t.Error("first subscriber missed the ping")
	}
	select {
	case <-b:
	default:
		t.Error("second subscriber missed the ping")
	}
}

func TestBroadcastDoesNotBlockOnSlowListener(t *testing.T) {
	n := New()
	slow := n.Subscribe()
	defer n.Unsubscribe(slow)

	// Two broadcasts with nobody draining: the second must not block.
	n.Broadcast()
	n.Broadcast()

	select {
	case <-slow:
	default:
		t.Error("listener never got a ping")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	n.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	// A broadcast after unsubscribe must not panic on the closed channel.
	n.Broadcast()
}
