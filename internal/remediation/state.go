package remediation

import "encoding/json"

// State identifies a step of one power-cycle invocation. Each trigger
// runs a fresh machine; nothing is held between invocations.
type State int

const (
	Idle State = iota
	PoweringOff
	Waiting
	PoweringOn
	Verifying
	RetryingRefresh
	Succeeded
	Failed
)

var stateNames = map[State]string{
	Idle:            "idle",
	PoweringOff:     "powering_off",
	Waiting:         "waiting",
	PoweringOn:      "powering_on",
	Verifying:       "verifying",
	RetryingRefresh: "retrying_refresh",
	Succeeded:       "succeeded",
	Failed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether the state ends an invocation.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// MarshalJSON emits the state name so API payloads stay readable.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return err
	}

	for state, candidate := range stateNames {
		if candidate == name {
			*s = state
			return nil
		}
	}
	*s = Idle

	return nil
}
