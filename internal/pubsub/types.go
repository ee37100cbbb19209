package pubsub

import (
	"sync"

	"cloud.google.com/go/pubsub"
)

type client struct {
	client *pubsub.Client
	mu     sync.Mutex
	topics map[EventType]*pubsub.Topic
}

// EventType represents the type of event/message sent via pubsub. It doubles as the
// topic ID.
type EventType string

const (
	EventStandingsUpdated EventType = "standings-updated"
)

// StandingsUpdated is published once per week recomputed after an upload.
type StandingsUpdated struct {
	Week     int    `msgpack:"week" json:"week"`
	UploadID string `msgpack:"upload_id" json:"upload_id"`
	DryRun   bool   `msgpack:"dry_run" json:"dry_run"`
}

// PushEnvelope is the JSON body Pub/Sub POSTs to a push subscription endpoint.
type PushEnvelope struct {
	Message struct {
		Data       string            `json:"data"` // base64-encoded message payload
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}
