package advisor

import "fmt"

// State tracks where an application sits in the evaluation pipeline.
type State string

const (
	StateInitial     State = "INITIAL"
	StateScreened    State = "SCREENED"
	StateClassified  State = "CLASSIFIED"
	StateExplained   State = "EXPLAINED"
	StateRecommended State = "RECOMMENDED"
	StateDone        State = "DONE"
)

// transitions declares the legal state graph. Approve and reject bands jump
// from CLASSIFIED straight to DONE; only the review band walks the
// explanation and recommendation states.
var transitions = map[State][]State{
	StateInitial:     {StateScreened},
	StateScreened:    {StateClassified, StateDone},
	StateClassified:  {StateExplained, StateDone},
	StateExplained:   {StateRecommended},
	StateRecommended: {StateDone},
}

// advance moves to the next state, failing on an illegal transition. An
// illegal transition is a pipeline bug, never an input condition.
func advance(from, to State) (State, error) {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("illegal state transition %s -> %s", from, to)
}
