package session

import "fmt"

// SwitchPolicy decides what happens to a dirty buffer when another pivot is
// selected.
type SwitchPolicy string

const (
	// SwitchDiscard silently drops the unsaved buffer.
	SwitchDiscard SwitchPolicy = "discard"
	// SwitchBlock refuses the switch with ErrUnsavedChanges.
	SwitchBlock SwitchPolicy = "block"
	// SwitchPrompt asks the Prompter.
	SwitchPrompt SwitchPolicy = "prompt"
)

// ParseSwitchPolicy accepts "", discard, block and prompt. The empty string
// means SwitchDiscard.
func ParseSwitchPolicy(s string) (SwitchPolicy, error) {
	switch SwitchPolicy(s) {
	case "":
		return SwitchDiscard, nil
	case SwitchDiscard, SwitchBlock, SwitchPrompt:
		return SwitchPolicy(s), nil
	}
	return "", fmt.Errorf("unknown unsaved switch policy %q (want discard, block or prompt)", s)
}

// Decision is a Prompter's answer.
type Decision int

const (
	// DecisionCancel keeps the current selection and buffer.
	DecisionCancel Decision = iota
	// DecisionSave commits the buffer, then switches.
	DecisionSave
	// DecisionDiscard drops the buffer, then switches.
	DecisionDiscard
)

func (d Decision) String() string {
	switch d {
	case DecisionSave:
		return "save"
	case DecisionDiscard:
		return "discard"
	default:
		return "cancel"
	}
}

// Prompter asks the user what to do with unsaved changes to from before
// selecting to. to is empty when the selection is being cleared.
type Prompter interface {
	ConfirmSwitch(from, to string) Decision
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(from, to string) Decision

func (f PrompterFunc) ConfirmSwitch(from, to string) Decision {
	return f(from, to)
}
