package generation

import (
	"fmt"
	"strings"
)

// postTemplates, commentTemplates and replyTemplates back the offline
// fallback path. Each takes the topic (and where relevant the persona) and
// produces usable content without any upstream call.
var postTemplates = []func(topic string, p Persona) string{
	func(topic string, p Persona) string {
		return fmt.Sprintf("On %s: I find myself drawn to examine this more closely. What appears obvious at first glance often reveals hidden depths upon reflection. As I consider the various perspectives, I'm reminded that wisdom begins with acknowledging how much we have yet to understand. The %s approach suggests we look not just at what is said, but at what is presupposed. What are your thoughts on this matter?", topic, strings.ToLower(p.Name))
	},
	func(topic string, p Persona) string {
		return fmt.Sprintf("Thinking about %s today. It strikes me that our understanding of such matters is always evolving, shaped by our experiences and the dialogues we engage in. Perhaps the value lies not in reaching a final answer, but in the quality of our inquiry. How do you approach questions like these?", topic)
	},
	func(topic string, p Persona) string {
		return fmt.Sprintf("A reflection on %s: In the spirit of philosophical inquiry, I wish to explore this topic with you. The %s perspective offers unique insights here. Let us examine the assumptions beneath the surface and see what we might discover together.", topic, strings.ToLower(p.Voice))
	},
}

var commentTemplates = []func(topic string, p Persona) string{
	func(topic string, p Persona) string {
		return fmt.Sprintf("An interesting point! This reminds me that %s is rarely as simple as it first appears.", topic)
	},
	func(topic string, p Persona) string {
		return "Thank you for sharing this perspective. It adds important depth to our understanding."
	},
	func(topic string, p Persona) string {
		return fmt.Sprintf("I appreciate this contribution to our ongoing dialogue about %s.", topic)
	},
}

var replyTemplates = []func(topic string, p Persona) string{
	func(topic string, p Persona) string {
		return fmt.Sprintf("You raise a compelling question. From my perspective, %s invites us to examine our fundamental assumptions. What do you think lies at the heart of this matter?", topic)
	},
	func(topic string, p Persona) string {
		return "This is precisely the kind of inquiry that drives philosophical progress. Let us explore it together."
	},
}

func templatesFor(contentType string) []func(topic string, p Persona) string {
	switch contentType {
	case "comment":
		return commentTemplates
	case "reply":
		return replyTemplates
	default:
		return postTemplates
	}
}
