package tasklist

import (
	"fmt"
	"regexp"
	"strings"
)

// MarshalMarkdown renders the task list as a Markdown checklist grouped
// into "### High Priority" / "### Medium Priority" / "### Low Priority"
// sections, with bold task titles and indented acceptance-step bullets.
// Category is not carried by the Markdown form; parsing it back relies on
// Normalize for defaults.
func MarshalMarkdown(list *TaskList) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", list.Name)
	if list.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", list.Description)
	}

	for _, priority := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		items := itemsByPriority(list, priority)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n### %s Priority\n\n", titleCase(string(priority)))
		for _, item := range items {
			mark := " "
			if item.Passes {
				mark = "x"
			}
			fmt.Fprintf(&sb, "- [%s] **%s**\n", mark, item.Description)
			for _, step := range item.Steps {
				fmt.Fprintf(&sb, "  - %s\n", step)
			}
		}
	}
	return sb.String()
}

var (
	mdSectionRe = regexp.MustCompile(`^###\s+(High|Medium|Low)\s+Priority\s*$`)
	mdItemRe    = regexp.MustCompile(`^- \[([ xX])\]\s+(.+?)\s*$`)
	mdStepRe    = regexp.MustCompile(`^\s{2,}[-*]\s+(.+?)\s*$`)
)

// ParseMarkdown reads a Markdown checklist back into a TaskList. Parsing is
// lenient: unrecognized lines are skipped, a leading "# " heading becomes
// the name, and the first plain paragraph before any priority section
// becomes the description. The result is normalized.
func ParseMarkdown(text string) *TaskList {
	list := &TaskList{}
	var current Priority
	var descLines []string

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "# ") && list.Name == "":
			list.Name = strings.TrimSpace(strings.TrimPrefix(line, "# "))

		case mdSectionRe.MatchString(line):
			m := mdSectionRe.FindStringSubmatch(line)
			current = Priority(strings.ToLower(m[1]))

		case mdStepRe.MatchString(line) && len(list.Items) > 0:
			m := mdStepRe.FindStringSubmatch(line)
			last := &list.Items[len(list.Items)-1]
			last.Steps = append(last.Steps, m[1])

		case mdItemRe.MatchString(line) && current != "":
			m := mdItemRe.FindStringSubmatch(line)
			list.Items = append(list.Items, TaskItem{
				Description: strings.Trim(m[2], "*"),
				Priority:    current,
				Passes:      m[1] == "x" || m[1] == "X",
			})

		case current == "" && list.Name != "" && strings.TrimSpace(line) != "" &&
			!strings.HasPrefix(line, "#"):
			descLines = append(descLines, strings.TrimSpace(line))
		}
	}

	list.Description = strings.Join(descLines, " ")
	list.Normalize()
	return list
}

func itemsByPriority(list *TaskList, p Priority) []TaskItem {
	var items []TaskItem
	for _, item := range list.Items {
		if item.Priority == p {
			items = append(items, item)
		}
	}
	return items
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
