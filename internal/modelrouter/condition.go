package modelrouter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field is a routing condition input. The set is closed; configuration
// referencing anything else fails at construction.
type Field string

const (
	FieldThreadLength              Field = "thread_length"
	FieldContextLength             Field = "context_length"
	FieldProblemDescriptionLength  Field = "problem_description_length"
	FieldMultiLayeredEthicalDebate Field = "multi_layered_ethical_debate"
	FieldPositionComplexity        Field = "position_complexity"
	FieldHighStakesPost            Field = "high_stakes_post"
	FieldStyles                    Field = "styles"
	FieldParticipants              Field = "participants"
	FieldPersona                   Field = "persona"
	FieldTool                      Field = "tool"
)

var knownFields = map[Field]bool{
	FieldThreadLength:              true,
	FieldContextLength:             true,
	FieldProblemDescriptionLength:  true,
	FieldMultiLayeredEthicalDebate: true,
	FieldPositionComplexity:        true,
	FieldHighStakesPost:            true,
	FieldStyles:                    true,
	FieldParticipants:              true,
	FieldPersona:                   true,
	FieldTool:                      true,
}

// Comparator is the operation a condition applies to its field.
type Comparator int

const (
	CmpGreater Comparator = iota
	CmpEqual
	CmpContains
	CmpTruthy
)

// Condition is one compiled routing predicate. Conditions are parsed once
// from their textual form at router construction and evaluated against a
// typed context per request.
type Condition struct {
	Field  Field
	Cmp    Comparator
	Number int
	Value  string
	Values []string
}

var containsRe = regexp.MustCompile(`^(\w+)\s+contains\s+\[(.*?)\]$`)

// ParseCondition compiles a textual condition. Supported forms:
//
//	field > number
//	field contains [a, "b", c]
//	field == literal
//	field
func ParseCondition(expr string) (Condition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Condition{}, fmt.Errorf("empty condition")
	}

	if idx := strings.Index(expr, ">"); idx >= 0 {
		field := Field(strings.TrimSpace(expr[:idx]))
		n, err := strconv.Atoi(strings.TrimSpace(expr[idx+1:]))
		if err != nil {
			return Condition{}, fmt.Errorf("condition %q: bad numeric literal: %w", expr, err)
		}
		return newCondition(field, Condition{Cmp: CmpGreater, Number: n}, expr)
	}

	if m := containsRe.FindStringSubmatch(expr); m != nil {
		var values []string
		for _, raw := range strings.Split(m[2], ",") {
			v := strings.Trim(strings.TrimSpace(raw), `"`)
			if v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return Condition{}, fmt.Errorf("condition %q: empty value list", expr)
		}
		return newCondition(Field(m[1]), Condition{Cmp: CmpContains, Values: values}, expr)
	}

	if idx := strings.Index(expr, "=="); idx >= 0 {
		field := Field(strings.TrimSpace(expr[:idx]))
		value := strings.TrimSpace(expr[idx+2:])
		return newCondition(field, Condition{Cmp: CmpEqual, Value: value}, expr)
	}

	return newCondition(Field(expr), Condition{Cmp: CmpTruthy}, expr)
}

func newCondition(field Field, c Condition, expr string) (Condition, error) {
	if !knownFields[field] {
		return Condition{}, fmt.Errorf("condition %q: unknown field %q", expr, field)
	}
	c.Field = field
	return c, nil
}

// EvalContext is the typed request context conditions evaluate against.
type EvalContext struct {
	Tool               string
	Persona            string
	ContextLength      int
	ProblemDescription string
	FocusTraditions    []string
	Complexity         string
	HighStakes         bool
	Styles             []string
	Participants       []string
}

// Eval applies the condition to the context.
func (c Condition) Eval(ec EvalContext) bool {
	switch c.Cmp {
	case CmpGreater:
		return ec.numeric(c.Field) > c.Number
	case CmpEqual:
		switch c.Value {
		case "true":
			return ec.truthy(c.Field)
		case "false":
			return !ec.truthy(c.Field)
		default:
			return ec.scalar(c.Field) == c.Value
		}
	case CmpContains:
		if list := ec.list(c.Field); list != nil {
			for _, want := range c.Values {
				for _, have := range list {
					if want == have {
						return true
					}
				}
			}
			return false
		}
		actual := ec.scalar(c.Field)
		for _, want := range c.Values {
			if want == actual {
				return true
			}
		}
		return false
	default:
		return ec.truthy(c.Field)
	}
}

func (ec EvalContext) numeric(f Field) int {
	switch f {
	case FieldThreadLength, FieldContextLength:
		return ec.ContextLength
	case FieldProblemDescriptionLength:
		return len(ec.ProblemDescription)
	case FieldParticipants:
		return len(ec.Participants)
	case FieldStyles:
		return len(ec.Styles)
	default:
		return 0
	}
}

func (ec EvalContext) scalar(f Field) string {
	switch f {
	case FieldPersona:
		return ec.Persona
	case FieldTool:
		return ec.Tool
	case FieldPositionComplexity:
		return ec.Complexity
	default:
		return ""
	}
}

func (ec EvalContext) list(f Field) []string {
	switch f {
	case FieldStyles:
		return ec.Styles
	case FieldParticipants:
		return ec.Participants
	default:
		return nil
	}
}

func (ec EvalContext) truthy(f Field) bool {
	switch f {
	case FieldHighStakesPost:
		return ec.HighStakes
	case FieldMultiLayeredEthicalDebate:
		return len(ec.FocusTraditions) > 2
	case FieldThreadLength, FieldContextLength, FieldProblemDescriptionLength:
		return ec.numeric(f) > 0
	case FieldStyles, FieldParticipants:
		return len(ec.list(f)) > 0
	default:
		return ec.scalar(f) != ""
	}
}
