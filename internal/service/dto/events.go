// Package dto holds the bus-side payload shapes consumed by the AMQP
// ingress. They mirror what the platform's CRUD services publish; the
// delivery layer forwards them opaquely, so only routing-relevant fields
// are named here.
package dto

// ParticipantV1 is the payload of participant.joined.v1.
type ParticipantV1 struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	TeamID    string `json:"teamId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SubmissionV1 is the payload of submission.created.v1.
type SubmissionV1 struct {
	SubmissionID string `json:"submissionId"`
	TeamID       string `json:"teamId"`
	Title        string `json:"title"`
	TrackID      string `json:"trackId,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// JudgeActivityV1 is the payload of judge.activity.v1.
type JudgeActivityV1 struct {
	JudgeID      string `json:"judgeId"`
	SubmissionID string `json:"submissionId"`
	Action       string `json:"action"` // "scored", "commented", "assigned"
	Timestamp    string `json:"timestamp"`
}

// AnalyticsV1 is the payload of analytics.updated.v1.
type AnalyticsV1 struct {
	Registrations int    `json:"registrations"`
	Submissions   int    `json:"submissions"`
	ActiveTeams   int    `json:"activeTeams"`
	Timestamp     string `json:"timestamp"`
}

// EventUpdateV1 is the payload of event.updated.v1, fanned out to every
// subscriber of the event rather than organizers only.
type EventUpdateV1 struct {
	Title     string `json:"title,omitempty"`
	Phase     string `json:"phase,omitempty"` // "registration", "hacking", "judging", "closed"
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}
