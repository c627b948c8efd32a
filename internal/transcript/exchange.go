// Package transcript keeps an audit log of the exchanges parley has
// handled. Rows are written by the dispatch worker and read by the CLI;
// sessions are never rebuilt from them.
package transcript

import "time"

// Exchange outcomes.
const (
	OutcomeReplied    = "replied"
	OutcomeFailed     = "failed"
	OutcomeSendFailed = "send_failed"
)

// Exchange is one processed message and what came of it.
type Exchange struct {
	ID            uint   `gorm:"primaryKey"`
	CorrelationID string `gorm:"size:36;index"`
	MessageID     string `gorm:"size:64"`
	ChannelID     string `gorm:"size:64;index"`
	AuthorName    string `gorm:"size:128"`
	FromBot       bool
	Content       string `gorm:"type:text"`
	Reply         string `gorm:"type:text"`
	Persona       string `gorm:"size:64"`
	Sentiment     float64
	Reason        string `gorm:"size:16"`
	Outcome       string `gorm:"size:16;index"`
	Error         string `gorm:"type:text"`
	LatencyMS     int64
	ReceivedAt    time.Time
	CreatedAt     time.Time `gorm:"index"`
}
