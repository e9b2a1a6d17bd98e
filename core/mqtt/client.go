package mqtt

import (
	"encoding/json"

	"github.com/kilianp07/resident-scheduler/core/metrics"
)

// Publisher announces solve progress and outcomes to subscribers outside
// the process.
type Publisher interface {
	// PublishState announces one state machine transition of a run.
	PublishState(ev metrics.StateEvent) error
	// PublishResult publishes the report of the latest run for a block.
	PublishResult(block int, report any) error
	// PublishReply answers a Request.
	PublishReply(requestID string, report any) error
}

// Request asks the service to solve the roster document it carries.
type Request struct {
	ID string `json:"request_id"`
	// Roster is a roster file in JSON form.
	Roster           json.RawMessage `json:"roster"`
	AllowShortBlocks bool            `json:"allow_short_blocks"`
}

// RequestSource yields solve requests as they arrive.
type RequestSource interface {
	Requests() <-chan Request
}
