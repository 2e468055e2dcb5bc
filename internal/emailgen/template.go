package emailgen

import (
	"fmt"
	"strings"

	"github.com/spigell/outreach/internal/outreach"
)

// Subject builds the deterministic subject line for a startup.
func Subject(callToAction, company string) string {
	callToAction = strings.TrimSpace(callToAction)
	if callToAction == "" {
		callToAction = DefaultCallToAction
	}
	company = strings.TrimSpace(company)
	if company == "" {
		return callToAction
	}
	return fmt.Sprintf("%s with %s", callToAction, company)
}

// Template composes an email without any external call.
func Template(cfg Config, profile *outreach.Profile, match *outreach.MatchResult) outreach.Email {
	cfg = cfg.withDefaults()
	if profile == nil {
		profile = &outreach.Profile{}
	}
	startup := match.Startup

	paragraphs := []string{greeting(cfg.Tone, startup.Greeting())}

	intro := missionSentence(startup)
	if cfg.Length != LengthBrief {
		intro = opening(match.Scores.Overall, profile) + " " + intro
	}
	paragraphs = append(paragraphs, intro)

	if cfg.Length == LengthDetailed && strings.TrimSpace(profile.Experience) != "" {
		paragraphs = append(paragraphs, "A bit about me: "+sentence(profile.Experience))
	}

	paragraphs = append(paragraphs, projectSentence(profile, match))

	if cfg.Length == LengthDetailed && len(match.Reasoning) > 0 {
		paragraphs = append(paragraphs, fmt.Sprintf("Why I think this could work: %s.", lowerFirst(strings.Join(match.Reasoning, "; "))))
	}

	paragraphs = append(paragraphs, callToAction(cfg.Tone, startup.CompanyName))
	paragraphs = append(paragraphs, closing(cfg.Tone)+"\n"+signature(profile))

	return outreach.Email{
		Subject: Subject(cfg.CallToAction, startup.CompanyName),
		Body:    strings.Join(paragraphs, "\n\n"),
		Source:  outreach.EmailFromTemplate,
	}
}

func greeting(tone Tone, name string) string {
	switch tone {
	case ToneProfessional:
		return fmt.Sprintf("Dear %s,", name)
	case ToneCasual:
		return fmt.Sprintf("Hey %s,", name)
	default:
		return fmt.Sprintf("Hi %s,", name)
	}
}

func opening(score float64, profile *outreach.Profile) string {
	who := "I'm"
	if profile.Name != "" {
		who = "I'm " + profile.Name
		if profile.Title != "" {
			who += ", " + an(profile.Title)
		}
		who += ","
	}
	switch {
	case score > 0.8:
		return fmt.Sprintf("%s and your work lines up closely with what I have been building.", who)
	case score > 0.6:
		return fmt.Sprintf("%s and I see a strong overlap between your work and my experience.", who)
	default:
		return fmt.Sprintf("%s and I'd love to learn more about what your team is building.", who)
	}
}

func missionSentence(startup outreach.Startup) string {
	company := strings.TrimSpace(startup.CompanyName)
	mission := strings.TrimSpace(startup.Mission)
	if mission == "" {
		return fmt.Sprintf("I came across %s and was impressed by what you are working on.", company)
	}
	return fmt.Sprintf("I came across %s and your mission stood out to me: %s", company, sentence(mission))
}

func projectSentence(profile *outreach.Profile, match *outreach.MatchResult) string {
	var project *outreach.Project
	if len(match.RelevantProjects) > 0 {
		project = profile.FindProject(match.RelevantProjects[0])
	}

	if project == nil {
		if len(profile.Skills) > 0 {
			return fmt.Sprintf("I bring hands-on experience with %s.", joinList(profile.Skills))
		}
		return "I bring hands-on experience shipping production software."
	}

	text := fmt.Sprintf("The most relevant thing I have worked on is %s", project.Name)
	if len(project.TechStack) > 0 {
		text += fmt.Sprintf(" (%s)", strings.Join(project.TechStack, ", "))
	}
	if len(project.Outcomes) > 0 {
		return text + ". Highlight: " + sentence(project.Outcomes[0])
	}
	if d := strings.TrimSuffix(strings.TrimSpace(project.Description), "."); d != "" {
		return text + ": " + lowerFirst(d) + "."
	}
	return text + "."
}

func callToAction(tone Tone, company string) string {
	switch tone {
	case ToneProfessional:
		return fmt.Sprintf("Would you be available for a brief conversation about how I might contribute to %s?", company)
	case ToneCasual:
		return "Up for a quick chat sometime next week?"
	default:
		return fmt.Sprintf("Would you be open to a 15-minute call next week to explore how I could help %s?", company)
	}
}

func closing(tone Tone) string {
	switch tone {
	case ToneProfessional:
		return "Kind regards,"
	case ToneCasual:
		return "Cheers,"
	default:
		return "Best,"
	}
}

func signature(profile *outreach.Profile) string {
	lines := make([]string, 0, 5)
	for _, line := range []string{profile.Name, profile.Title, profile.Email, profile.LinkedIn, profile.GitHub} {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	// keep acronyms such as "API" intact
	if len(r) > 1 && strings.ToUpper(string(r[:2])) == string(r[:2]) {
		return s
	}
	return strings.ToLower(string(r[:1])) + string(r[1:])
}

func an(title string) string {
	lower := strings.ToLower(title)
	if lower == "" {
		return title
	}
	if strings.ContainsRune("aeiou", rune(lower[0])) {
		return "an " + title
	}
	return "a " + title
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
