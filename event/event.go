package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fielder/attribute"
)

// Actions recorded in the audit stream.
const (
	ActionAttributeCreated = "attribute.created"
	ActionAttributeUpdated = "attribute.updated"
	ActionAttributeDeleted = "attribute.deleted"
	ActionValuesUpdated    = "values.updated"
)

const insertSQL = "INSERT INTO attribute_events " +
	"(event_id, occurred_at, project_id, kind, action, subject_id, actor, payload) " +
	"VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

// ChangeEvent is one audit record describing a custom-attribute mutation.
// It travels through the outbox queues and lands in the analytics sink.
type ChangeEvent struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	ProjectID  int64     `json:"project_id"`
	Kind       string    `json:"kind"`
	Action     string    `json:"action"`
	SubjectID  int64     `json:"subject_id"`
	Actor      string    `json:"actor"`
	Payload    string    `json:"payload"`
}

// New builds a ChangeEvent for a mutation. The payload carries the mutated
// entity as JSON; marshal failures degrade to an empty payload rather than
// losing the event.
func New(action string, projectID int64, kind attribute.Kind, subjectID int64, actor string, payload interface{}) *ChangeEvent {
	var body string
	if payload != nil {
		if bs, err := json.Marshal(payload); err == nil {
			body = string(bs)
		}
	}
	return &ChangeEvent{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		ProjectID:  projectID,
		Kind:       string(kind),
		Action:     action,
		SubjectID:  subjectID,
		Actor:      actor,
		Payload:    body,
	}
}

func (e ChangeEvent) MarshalBinary() (data []byte, err error) {
	return json.Marshal(e)
}

func (e *ChangeEvent) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

func (e *ChangeEvent) SQL() string {
	return insertSQL
}

func (e *ChangeEvent) ToExec() []interface{} {
	return []interface{}{
		e.EventID,
		e.OccurredAt,
		e.ProjectID,
		e.Kind,
		e.Action,
		e.SubjectID,
		e.Actor,
		e.Payload,
	}
}
