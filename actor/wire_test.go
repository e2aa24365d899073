package actor

import (
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestMarshalReminderBody covers spec.md §8 scenario 2: registering a
// reminder with a 1s due time and period produces the exact wire body the
// sidecar expects, including the base64-encoded state payload.
func TestMarshalReminderBody(t *testing.T) {
	t.Parallel()

	body, err := marshalReminderBody(
		"test_reminder", []byte("reminder_message"),
		time.Second, time.Second, fn.None[time.Duration](),
	)
	require.NoError(t, err)

	const want = `{"reminderName":"test_reminder","dueTime":"0h0m1s0ms0μs","period":"0h0m1s0ms0μs","data":"cmVtaW5kZXJfbWVzc2FnZQ=="}`
	require.JSONEq(t, want, string(body))
	require.Equal(t, want, string(body))
}

func TestMarshalReminderBodyWithTTL(t *testing.T) {
	t.Parallel()

	body, err := marshalReminderBody(
		"r", []byte("x"), time.Minute, time.Minute, fn.Some(time.Hour),
	)
	require.NoError(t, err)
	require.Contains(t, string(body), `"ttl":"1h0m0s0ms0μs"`)
}

func TestMarshalTimerBody(t *testing.T) {
	t.Parallel()

	td := TimerData{
		CallbackName: "cb",
		State:        []byte("state"),
		DueTime:      time.Second,
		Period:       2 * time.Second,
	}
	body, err := marshalTimerBody(td)
	require.NoError(t, err)

	const want = `{"callback":"cb","data":"c3RhdGU=","dueTime":"0h0m1s0ms0μs","period":"0h0m2s0ms0μs"}`
	require.JSONEq(t, want, string(body))
}
