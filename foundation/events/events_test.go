package events_test

import (
	"testing"

	"github.com/ardanlabs/powchain/foundation/events"
)

const (
	success = "✓"
	failed  = "✗"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan out chain events.")
	{
		evts := events.New()

		ch1 := evts.Acquire("one")
		ch2 := evts.Acquire("two")
		if same := evts.Acquire("one"); same != ch1 {
			t.Fatalf("\t%s\tShould get back the same channel for the same id.", failed)
		}
		t.Logf("\t%s\tShould get back the same channel for the same id.", success)

		evts.Send("block 1")
		if msg := <-ch1; msg != "block 1" {
			t.Fatalf("\t%s\tShould receive the event on the first listener, got %q.", failed, msg)
		}
		if msg := <-ch2; msg != "block 1" {
			t.Fatalf("\t%s\tShould receive the event on the second listener, got %q.", failed, msg)
		}
		t.Logf("\t%s\tShould receive the event on every listener.", success)

		if err := evts.Release("one"); err != nil {
			t.Fatalf("\t%s\tShould be able to release a listener: %s", failed, err)
		}
		if _, open := <-ch1; open {
			t.Fatalf("\t%s\tShould close a released channel.", failed)
		}
		if err := evts.Release("one"); err == nil {
			t.Fatalf("\t%s\tShould not release an unknown listener.", failed)
		}
		t.Logf("\t%s\tShould be able to release a listener.", success)

		// Send must not block when a listener is not draining.
		for i := 0; i < 150; i++ {
			evts.Send("flood")
		}
		t.Logf("\t%s\tShould not block on a full listener.", success)

		if len(ch2) != 100 {
			t.Logf("got: %d", len(ch2))
			t.Logf("exp: %d", 100)
			t.Fatalf("\t%s\tShould buffer messages up to the listener capacity.", failed)
		}
		t.Logf("\t%s\tShould buffer messages up to the listener capacity.", success)

		evts.Shutdown()
		if evts.Len() != 0 {
			t.Fatalf("\t%s\tShould remove every listener on shutdown.", failed)
		}
		t.Logf("\t%s\tShould remove every listener on shutdown.", success)
	}
}
