package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/textnorm"
)

const (
	sectionContact    = "contact"
	sectionExperience = "experience"
	sectionSkills     = "skills"
	sectionProjects   = "projects"
)

// ParseProfileMarkdown reads a profile written as Markdown:
//
//	# Jane Doe
//	Staff Engineer
//	## Contact
//	- Email: jane@example.com
//	## Experience
//	Free text...
//	## Skills
//	- Go, Kubernetes
//	## Projects
//	### Payments API
//	Description text.
//	- Tech: Go, Kafka
//	- Outcome: cut p99 latency by 40%
//	- Role: Tech lead
//	- Duration: 2 years
func ParseProfileMarkdown(data []byte) (*outreach.Profile, error) {
	verr := &outreach.ValidationError{Source: "profile"}
	profile := &outreach.Profile{}

	var (
		section    string
		experience []string
		project    *outreach.Project
		projDesc   []string
	)

	flushProject := func() {
		if project == nil {
			return
		}
		project.Description = strings.Join(projDesc, " ")
		profile.Projects = append(profile.Projects, *project)
		project, projDesc = nil, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "### "):
			if section != sectionProjects {
				verr.Add(fmt.Sprintf("line %d", lineNo), "", "project heading outside of the Projects section")
				continue
			}
			flushProject()
			project = &outreach.Project{Name: strings.TrimSpace(strings.TrimPrefix(line, "### "))}
			continue
		case strings.HasPrefix(line, "## "):
			flushProject()
			heading := textnorm.Fold(strings.TrimPrefix(line, "## "))
			switch heading {
			case sectionContact, sectionExperience, sectionSkills, sectionProjects:
				section = heading
			default:
				section = ""
				verr.Add(fmt.Sprintf("line %d", lineNo), "", fmt.Sprintf("unknown section %q", strings.TrimPrefix(line, "## ")))
			}
			continue
		case strings.HasPrefix(line, "# "):
			if profile.Name != "" {
				verr.Add(fmt.Sprintf("line %d", lineNo), "name", "is declared more than once")
				continue
			}
			profile.Name = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			continue
		}

		item, isItem := bulletText(line)
		switch section {
		case "":
			if profile.Name != "" && profile.Title == "" && !isItem {
				profile.Title = line
			}
		case sectionContact:
			key, value, ok := keyValue(item)
			if !ok {
				verr.Add(fmt.Sprintf("line %d", lineNo), "contact", "expected \"- Key: value\"")
				continue
			}
			switch key {
			case "email":
				profile.Email = value
			case "linkedin":
				profile.LinkedIn = value
			case "github":
				profile.GitHub = value
			case "title":
				profile.Title = value
			default:
				verr.Add(fmt.Sprintf("line %d", lineNo), "contact", fmt.Sprintf("unknown key %q", key))
			}
		case sectionExperience:
			experience = append(experience, item)
		case sectionSkills:
			profile.Skills = append(profile.Skills, textnorm.SplitList(item)...)
		case sectionProjects:
			if project == nil {
				verr.Add(fmt.Sprintf("line %d", lineNo), "projects", "text before the first project heading")
				continue
			}
			key, value, ok := keyValue(item)
			if !isItem || !ok {
				projDesc = append(projDesc, item)
				continue
			}
			switch key {
			case "tech", "tech stack", "stack":
				project.TechStack = append(project.TechStack, textnorm.SplitList(value)...)
			case "outcome", "outcomes", "result":
				project.Outcomes = append(project.Outcomes, value)
			case "role":
				project.Role = value
			case "duration":
				project.Duration = value
			default:
				projDesc = append(projDesc, item)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading markdown profile: %w", err)
	}
	flushProject()

	profile.Experience = strings.Join(experience, " ")
	return finishProfile(profile, verr)
}

func bulletText(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	return line, false
}

func keyValue(item string) (string, string, bool) {
	key, value, ok := strings.Cut(item, ":")
	if !ok {
		return "", "", false
	}
	key = textnorm.Fold(strings.Trim(key, "* _"))
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
