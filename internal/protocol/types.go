package protocol

// Command names one of the two operations.
type Command string

const (
	CommandTrain Command = "train"
	CommandQuery Command = "query"
)

// Request is a decoded train or query, independent of wire dialect.
type Request interface {
	Command() Command
	isRequest()
}

// TrainRequest carries the three vocabularies for a full model rebuild.
type TrainRequest struct {
	Keywords  []string `json:"keywords"`
	Types     []string `json:"types"`
	Locations []string `json:"locations"`
}

func (TrainRequest) Command() Command { return CommandTrain }
func (TrainRequest) isRequest()       {}

type QueryRequest struct {
	Text string
}

func (QueryRequest) Command() Command { return CommandQuery }
func (QueryRequest) isRequest()       {}

// Mode is the wire dialect of one connection, fixed after detection.
type Mode int

const (
	ModeFramed Mode = iota
	ModeLegacy
)

// DetectLen is the number of leading bytes Detect inspects.
const DetectLen = 2

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	default:
		return "framed"
	}
}

// Detect reports ModeLegacy exactly when prefix is "t:" or "q:".
// Any other prefix is the start of a framed length header.
func Detect(prefix [DetectLen]byte) Mode {
	if prefix[1] == ':' && (prefix[0] == 't' || prefix[0] == 'q') {
		return ModeLegacy
	}
	return ModeFramed
}
