package decision

import "strings"

// allowOpponentActivatePrompt is the one prompt pattern carried forward
// from the reference client's behavior for an absent INTEGER default
// value. This is preserved as a known special case; do not guess
// additional prompt patterns.
const allowOpponentActivatePrompt = "allow opponent to activate"

// DefaultIntegerChoice resolves the value an INTEGER decision should use
// when nothing else is available: the server-supplied default if present,
// else "0" for the one known prompt pattern, else empty (no guess).
func DefaultIntegerChoice(req Request) string {
	if req.DefaultValue != nil {
		return *req.DefaultValue
	}
	if strings.Contains(strings.ToLower(req.Prompt), allowOpponentActivatePrompt) {
		return "0"
	}
	return ""
}

// FallbackForUnrecognizedType answers a decision whose type is not in the
// known set: the default option (index 0) if no_pass, else a pass.
func FallbackForUnrecognizedType(req Request) Decision {
	if req.NoPass && len(req.Options) > 0 {
		return Decision{Choice: req.Options[0].OptionID, Reasoning: "unrecognized decision type; defaulted to option 0"}
	}
	if alt := firstPass(req.Options); alt != nil {
		return Decision{Choice: alt.OptionID, Reasoning: "unrecognized decision type; passed"}
	}
	return Decision{Reasoning: "unrecognized decision type; no legal pass option available"}
}

// FallbackForBrainError answers a decision when the brain itself fails:
// fall back to pass if allowed, else the first option; the worker does
// not stop.
func FallbackForBrainError(req Request) Decision {
	if !req.NoPass {
		if alt := firstPass(req.Options); alt != nil {
			return Decision{Choice: alt.OptionID, Reasoning: "brain error; passed"}
		}
	}
	if len(req.Options) > 0 {
		return Decision{Choice: req.Options[0].OptionID, Reasoning: "brain error; defaulted to first option"}
	}
	return Decision{Reasoning: "brain error; no options available"}
}

func firstPass(options []Option) *Option {
	for i := range options {
		if IsPassOption(options[i]) {
			return &options[i]
		}
	}
	return nil
}
