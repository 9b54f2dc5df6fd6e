package reveal

type Stage int

const (
	Loading Stage = iota
	NotFound
	Arriving
	Closed
	Opening
	CardVisible
	MessageRevealing
	ButtonsVisible
	Responded
)

var stageNames = map[Stage]string{
	Loading:          "loading",
	NotFound:         "not-found",
	Arriving:         "arriving",
	Closed:           "closed",
	Opening:          "opening",
	CardVisible:      "card-visible",
	MessageRevealing: "message-revealing",
	ButtonsVisible:   "buttons-visible",
	Responded:        "responded",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal stages are never left except by loading another card.
func (s Stage) Terminal() bool {
	return s == NotFound || s == Responded
}
