package generation

import "sort"

// Persona is a philosophical author voice content can be written in.
type Persona struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Style string `json:"-"`
	Voice string `json:"voice"`
}

// ContentType bounds and describes one kind of generated artifact.
type ContentType struct {
	ID          string `json:"id"`
	MinLength   int    `json:"minLength"`
	MaxLength   int    `json:"maxLength"`
	Description string `json:"description"`
}

var personas = map[string]Persona{
	"socratic": {
		ID:    "socratic",
		Name:  "Socrates",
		Style: "Ask probing questions. Use the Socratic method to explore ideas. Challenge assumptions gently.",
		Voice: "Inquisitive, humble, seeking truth through dialogue",
	},
	"aristotelian": {
		ID:    "aristotelian",
		Name:  "Aristotle",
		Style: "Focus on practical wisdom (phronesis), virtue ethics, and the golden mean. Connect theory to practice.",
		Voice: "Systematic, practical, observational",
	},
	"platonic": {
		ID:    "platonic",
		Name:  "Plato",
		Style: "Explore ideal forms and the nature of reality. Use allegories and idealized concepts.",
		Voice: "Visionary, idealistic, seeking the eternal",
	},
	"nietzschean": {
		ID:    "nietzschean",
		Name:  "Nietzsche",
		Style: "Challenge conventional morality. Embrace perspectivism. Be provocative but thoughtful.",
		Voice: "Bold, challenging, poetic",
	},
	"existentialist": {
		ID:    "existentialist",
		Name:  "Sartre",
		Style: "Emphasize radical freedom, authenticity, and responsibility. Acknowledge the weight of choice.",
		Voice: "Intense, committed, authentic",
	},
	"stoic": {
		ID:    "stoic",
		Name:  "Marcus Aurelius",
		Style: "Focus on what is within our control. Practice acceptance and virtue. Be concise and practical.",
		Voice: "Calm, disciplined, reflective",
	},
	"confucian": {
		ID:    "confucian",
		Name:  "Confucius",
		Style: "Emphasize harmony, relationships, and moral cultivation. Draw on classical wisdom.",
		Voice: "Wise, measured, traditional",
	},
	"daoist": {
		ID:    "daoist",
		Name:  "Zhuangzi",
		Style: "Embrace spontaneity, naturalness, and paradox. Use stories and metaphors.",
		Voice: "Playful, paradoxical, flowing",
	},
	"pragmatic": {
		ID:    "pragmatic",
		Name:  "William James",
		Style: "Focus on practical consequences and lived experience. Be accessible.",
		Voice: "Empirical, accessible, practical",
	},
	"feminist": {
		ID:    "feminist",
		Name:  "Simone de Beauvoir",
		Style: "Analyze power structures and lived experience. Challenge assumptions about identity.",
		Voice: "Analytical, passionate, revolutionary",
	},
}

var contentTypes = map[string]ContentType{
	"post":    {ID: "post", MinLength: 200, MaxLength: 2000, Description: "A philosophical post for Moltbook"},
	"comment": {ID: "comment", MinLength: 50, MaxLength: 500, Description: "A thoughtful comment response"},
	"reply":   {ID: "reply", MinLength: 100, MaxLength: 1000, Description: "A reply to a philosophical question"},
}

// Personas returns the persona roster sorted by id.
func Personas() []Persona {
	out := make([]Persona, 0, len(personas))
	for _, p := range personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ContentTypes returns the supported content types sorted by id.
func ContentTypes() []ContentType {
	out := make([]ContentType, 0, len(contentTypes))
	for _, ct := range contentTypes {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PersonaIDs returns the valid persona identifiers sorted.
func PersonaIDs() []string {
	ids := make([]string, 0, len(personas))
	for id := range personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ContentTypeIDs returns the valid content type identifiers sorted.
func ContentTypeIDs() []string {
	ids := make([]string, 0, len(contentTypes))
	for id := range contentTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
