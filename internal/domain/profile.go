package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal is the training goal the plan works toward.
type Goal string

const (
	GoalHabit    Goal = "BUILD_HABIT"
	Goal5K       Goal = "TARGET_5K"
	Goal10K      Goal = "TARGET_10K"
	GoalDistance Goal = "INCREASE_DISTANCE"
)

// ExperienceLevel roughly buckets how seasoned the runner is.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "BEGINNER"
	ExperienceIntermediate ExperienceLevel = "INTERMEDIATE"
	ExperienceAdvanced     ExperienceLevel = "ADVANCED"
)

// Profile holds the runner's onboarding data. It provides context for plan
// generation and for the coaching agent's system prompt.
type Profile struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"` // same as the user's ID
	Goal            Goal               `bson:"goal" json:"goal"`
	ExperienceLevel ExperienceLevel    `bson:"experienceLevel" json:"experienceLevel"`
	DaysAvailable   []string           `bson:"daysAvailable,omitempty" json:"daysAvailable,omitempty"` // weekday names
	InjuryHistory   string             `bson:"injuryHistory,omitempty" json:"injuryHistory,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
