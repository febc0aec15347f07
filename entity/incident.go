package entity

import "time"

// Severity grades an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight is the raid-risk scoring weight of a severity. Unknown severities
// count as low.
func (s Severity) Weight() int {
	switch s {
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 4
	case SeverityCritical:
		return 7
	default:
		return 1
	}
}

// Incident is the canonical immutable security event record.
type Incident struct {
	GuildID   int64          `json:"guild_id" bson:"guild_id"`
	Type      string         `json:"incident_type" bson:"incident_type"`
	Severity  Severity       `json:"severity" bson:"severity"`
	ActorID   int64          `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Message   string         `json:"message" bson:"message"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// FraudFlag is an immutable scored record suggesting a member or join is
// inauthentic. Score is in [0, 1].
type FraudFlag struct {
	GuildID   int64          `json:"guild_id" bson:"guild_id"`
	MemberID  int64          `json:"member_id" bson:"member_id"`
	Reason    string         `json:"reason" bson:"reason"`
	Score     float64        `json:"score" bson:"score"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// FraudScore is the per-member aggregate used by premium fraud scoring.
type FraudScore struct {
	MemberID int64   `json:"member_id" bson:"_id"`
	AvgScore float64 `json:"avg_score" bson:"avg_score"`
	Flags    int64   `json:"flags" bson:"flags"`
}

// WindowStats is the premium 24-hour security aggregate.
type WindowStats struct {
	Incidents24h     int64   `json:"incidents_24h"`
	FraudFlags24h    int64   `json:"fraud_flags_24h"`
	AvgFraudScore24h float64 `json:"avg_fraud_score_24h"`
}

// RaidForecast buckets the severity-weighted incident sum of the trailing
// hour into a risk level.
type RaidForecast struct {
	Risk              string `json:"risk"`
	Score             int    `json:"score"`
	IncidentsLastHour int    `json:"incidents_last_hour"`
}
