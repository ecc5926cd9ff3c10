package wizard

// Step is a page of the wizard
type Step int

const (
	StepSelect Step = iota + 1
	StepParameters
	StepCalculations
	StepValue
	StepReview
)

var stepTitles = map[Step]string{
	StepSelect:       "Select Industry, Technology & Solution",
	StepParameters:   "Configure Parameters",
	StepCalculations: "Configure Calculations",
	StepValue:        "Configure Value",
	StepReview:       "Review and Submit",
}

// Steps returns every step in order
func Steps() []Step {
	return []Step{StepSelect, StepParameters, StepCalculations, StepValue, StepReview}
}

// Title returns the heading shown for the step
func (s Step) Title() string {
	return stepTitles[s]
}

// Next returns the following step, staying on the last one
func (s Step) Next() Step {
	if s >= StepReview {
		return StepReview
	}
	if s < StepSelect {
		return StepSelect
	}
	return s + 1
}

// Previous returns the preceding step, staying on the first one
func (s Step) Previous() Step {
	if s <= StepSelect {
		return StepSelect
	}
	if s > StepReview {
		return StepReview
	}
	return s - 1
}
