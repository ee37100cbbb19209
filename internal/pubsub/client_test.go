package pubsub

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDecodePush(t *testing.T) {
	payload, err := msgpack.Marshal(StandingsUpdated{Week: 3, UploadID: "u-1"})
	require.NoError(t, err)

	body := fmt.Sprintf(`{"message":{"data":%q,"messageId":"42"},"subscription":"projects/p/subscriptions/s"}`,
		base64.StdEncoding.EncodeToString(payload))
	raw, err := DecodePush(strings.NewReader(body))
	require.NoError(t, err)

	var event StandingsUpdated
	require.NoError(t, NewNoop().ProcessMessage(raw, &event))
	assert.Equal(t, StandingsUpdated{Week: 3, UploadID: "u-1"}, event)
}

func TestDecodePush_Errors(t *testing.T) {
	_, err := DecodePush(strings.NewReader("not json"))
	assert.ErrorContains(t, err, "invalid push envelope")

	_, err = DecodePush(strings.NewReader(`{"message":{"data":"***"}}`))
	assert.ErrorContains(t, err, "invalid base64 data")
}

func TestNoop_SendMessage(t *testing.T) {
	assert.NoError(t, NewNoop().SendMessage(EventStandingsUpdated, StandingsUpdated{Week: 1}))
	assert.Error(t, NewNoop().SendMessage(EventStandingsUpdated, make(chan int)), "payloads must be encodable")
}

func TestMock_ProcessMessageDecodes(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.SendMessage(EventStandingsUpdated, StandingsUpdated{Week: 2}))
	require.Len(t, m.SendMessageCalls, 1)
	assert.Equal(t, EventStandingsUpdated, m.SendMessageCalls[0].Topic)

	raw, err := msgpack.Marshal(StandingsUpdated{Week: 2, DryRun: true})
	require.NoError(t, err)
	var event StandingsUpdated
	require.NoError(t, m.ProcessMessage(raw, &event))
	assert.True(t, event.DryRun)
}
