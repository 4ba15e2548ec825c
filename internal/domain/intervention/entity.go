package intervention

import "time"

// Execution is a logged intervention action taken in response to a
// prediction. Written by the external intervention-execution system; the
// pipeline only reads it, to tell "recovered via intervention" apart from
// "false alarm" during outcome verification.
type Execution struct {
	ID             int64     `db:"id"`
	MemberID       int64     `db:"member_id"`
	PredictionDate time.Time `db:"prediction_date"`
	Channel        string    `db:"channel"`
	Step           string    `db:"step"`
	Operator       string    `db:"operator"`
	ExecutedAt     time.Time `db:"executed_at"`
}
