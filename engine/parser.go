package engine

import (
	"regexp"
	"strings"
)

// StructuredOutput holds the fields recovered from the model's end-of-
// iteration report.
type StructuredOutput struct {
	TaskDescription string
	Summary         string
	Decisions       []string
}

var (
	completedLineRe = regexp.MustCompile(`(?i)^#{0,6}\s*completed:\s*(.+?)\s*$`)
	changesHeadRe   = regexp.MustCompile(`(?i)^#{0,6}\s*changes\s+made\s*:?\s*$`)
	decisionsHeadRe = regexp.MustCompile(`(?i)^#{0,6}\s*decisions\s*:?\s*$`)
	bulletRe        = regexp.MustCompile(`^\s*[-*]\s+(.*?)\s*$`)
)

// ParseStructuredOutput scans the accumulated assistant text for the
// expected report headings. It is lenient: headings match with or without
// markdown prefixes and in any case, missing sections leave their fields
// empty, and parsing never fails.
func ParseStructuredOutput(text string) StructuredOutput {
	var out StructuredOutput
	var changes []string
	section := ""

	for _, line := range strings.Split(text, "\n") {
		switch {
		case completedLineRe.MatchString(line):
			if out.TaskDescription == "" {
				m := completedLineRe.FindStringSubmatch(line)
				out.TaskDescription = strings.TrimSpace(m[1])
			}
			section = ""
		case changesHeadRe.MatchString(line):
			section = "changes"
		case decisionsHeadRe.MatchString(line):
			section = "decisions"
		case strings.HasPrefix(strings.TrimSpace(line), "#"):
			section = ""
		default:
			switch section {
			case "changes":
				changes = append(changes, line)
			case "decisions":
				m := bulletRe.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				item := strings.TrimSpace(m[1])
				if item == "" || strings.EqualFold(item, "none") {
					continue
				}
				out.Decisions = append(out.Decisions, item)
			}
		}
	}

	out.Summary = strings.TrimSpace(strings.Join(changes, "\n"))
	return out
}
