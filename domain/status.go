package domain

type Status int

const (
	StatusReceiving Status = iota
	StatusProcessing
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReceiving:
		return "Receiving"
	case StatusProcessing:
		return "Processing"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}
