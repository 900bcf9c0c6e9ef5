package application

// Step is the 1-based cursor over the five form sections.
type Step int

const (
	FirstStep Step = 1
	FinalStep Step = 5
)

var stepTitles = [...]string{"About You", "The Brand", "Vision", "Growth", "Founder Fit"}

// Advance moves forward one section, saturating at FinalStep.
func Advance(s Step) Step {
	if s >= FinalStep {
		return FinalStep
	}
	if s < FirstStep {
		return FirstStep
	}
	return s + 1
}

// Retreat moves back one section, saturating at FirstStep.
func Retreat(s Step) Step {
	if s <= FirstStep {
		return FirstStep
	}
	if s > FinalStep {
		return FinalStep
	}
	return s - 1
}

func (s Step) Valid() bool {
	return s >= FirstStep && s <= FinalStep
}

func (s Step) Title() string {
	if !s.Valid() {
		return ""
	}
	return stepTitles[s-1]
}

// Steps lists all steps in order.
func Steps() []Step {
	return []Step{1, 2, 3, 4, 5}
}
