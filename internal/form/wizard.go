package form

type OutcomeKind int

const (
	// Invalid keeps the applicant on the section and reports field errors.
	Invalid OutcomeKind = iota
	// Stopped ends the application: a hard-stop answer was given.
	Stopped
	// Advance moves to the next section.
	Advance
	// Submit means the last section passed and every answer is ready to send.
	Submit
)

func (k OutcomeKind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Stopped:
		return "stopped"
	case Advance:
		return "advance"
	case Submit:
		return "submit"
	}
	return "unknown"
}

type Outcome struct {
	Kind    OutcomeKind
	Section int
	Errors  Errors
	Message string
	Answers Answers
}

// Wizard walks the schema one section at a time.
type Wizard struct {
	Schema *Schema
}

// Step validates the section at index and decides where the applicant goes next.
// Before Submit every section is checked again, since earlier answers come back
// from the client and may have been altered.
func (w Wizard) Step(index int, answers Answers) Outcome {
	index = w.clamp(index)
	out := w.check(index, answers)
	if out.Kind != Advance {
		return out
	}
	if index < len(w.Schema.Sections)-1 {
		out.Section = index + 1
		return out
	}

	all := out.Answers
	for i := range w.Schema.Sections {
		res := w.check(i, all)
		if res.Kind != Advance {
			return res
		}
		all = res.Answers
	}
	return Outcome{Kind: Submit, Section: index, Errors: Errors{}, Answers: all}
}

// Back returns the previous section index, never below the first.
func (w Wizard) Back(index int) int {
	index = w.clamp(index)
	if index > 0 {
		return index - 1
	}
	return 0
}

func (w Wizard) check(index int, answers Answers) Outcome {
	sec := &w.Schema.Sections[index]
	errs, normalized := ValidateSection(sec, answers)
	if len(errs) > 0 {
		return Outcome{Kind: Invalid, Section: index, Errors: errs, Answers: normalized}
	}
	if stop := sec.Stop; stop != nil && normalized.String(stop.Field) != stop.Value {
		return Outcome{Kind: Stopped, Section: index, Errors: Errors{}, Message: stop.Message, Answers: normalized}
	}
	return Outcome{Kind: Advance, Section: index, Errors: Errors{}, Answers: normalized}
}

func (w Wizard) clamp(index int) int {
	if index < 0 {
		return 0
	}
	if last := len(w.Schema.Sections) - 1; index > last {
		return last
	}
	return index
}
