package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType categorizes what a notification is about.
type NotificationType string

const (
	NotificationInjury       NotificationType = "injury"
	NotificationConfirmation NotificationType = "confirmation"
)

// Notification is an actionable message for the user. Injury notifications
// carry the payload of a proposed handleInjuryResponse invocation; responding
// to one dispatches that invocation through the mutation engine.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Title     string             `bson:"title" json:"title"`
	Body      string             `bson:"body" json:"body"`
	Type      NotificationType   `bson:"type" json:"type"`
	Payload   map[string]any     `bson:"payload,omitempty" json:"payload,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	Responded bool               `bson:"responded" json:"responded"`
	Response  map[string]any     `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
