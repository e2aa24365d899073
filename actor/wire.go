package actor

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/daprkit/actorhost/actor/config"
)

// reminderBody mirrors the sidecar's registerReminder wire body (spec.md
// §6/§8 scenario 2). Field order matches the declaration order here, which
// is what the scenario's exact-JSON expectation depends on.
type reminderBody struct {
	ReminderName string `json:"reminderName"`
	DueTime      string `json:"dueTime"`
	Period       string `json:"period"`
	Data         string `json:"data"`
	TTL          string `json:"ttl,omitempty"`
}

func marshalReminderBody(name string, stateBytes []byte, dueTime, period time.Duration, ttl fn.Option[time.Duration]) ([]byte, error) {
	body := reminderBody{
		ReminderName: name,
		DueTime:      config.FormatDuration(dueTime),
		Period:       config.FormatDuration(period),
		Data:         base64.StdEncoding.EncodeToString(stateBytes),
	}
	ttl.WhenSome(func(d time.Duration) { body.TTL = config.FormatDuration(d) })

	return json.Marshal(body)
}

// timerBody mirrors the sidecar's registerTimer wire body (spec.md §6):
// {callback, data, dueTime, period, ttl?}.
type timerBody struct {
	Callback string `json:"callback"`
	Data     string `json:"data"`
	DueTime  string `json:"dueTime"`
	Period   string `json:"period"`
	TTL      string `json:"ttl,omitempty"`
}

func marshalTimerBody(td TimerData) ([]byte, error) {
	body := timerBody{
		Callback: td.CallbackName,
		Data:     base64.StdEncoding.EncodeToString(td.State),
		DueTime:  config.FormatDuration(td.DueTime),
		Period:   config.FormatDuration(td.Period),
	}
	td.TTL.WhenSome(func(d time.Duration) { body.TTL = config.FormatDuration(d) })

	return json.Marshal(body)
}

// timerFireBody is the JSON object the sidecar sends on a fireTimer
// callback: {callback, data}. ActorManager.FireTimer does not decode it; it
// resolves the timer by the timer name it is called with.
type timerFireBody struct {
	Callback string          `json:"callback"`
	Data     json.RawMessage `json:"data"`
}
