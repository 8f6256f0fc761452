package report

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported report stages.
const (
	StageWarning         Stage = "WARNING"
	StageMissingLink     Stage = "MISSING_LINK"
	StageCitationWarning Stage = "CITATION_WARNING"
	StageProcessed       Stage = "PROCESSED"
	StageIndexed         Stage = "INDEXED"
	StageSuccess         Stage = "SUCCESS"
)

// Event is one report milestone fanned out to sinks.
type Event struct {
	Stage          Stage
	Message        string
	URL            string
	DocumentNumber string
}

// Sink consumes report events. The run is single-threaded, so sinks are
// never invoked concurrently.
type Sink interface {
	Consume(evt Event)
}
