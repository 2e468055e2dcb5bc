package outreach

import "strings"

// Profile describes the person doing the outreach. It is built once per run
// from the profile file and never changed afterwards.
type Profile struct {
	Name       string    `json:"name" validate:"required"`
	Title      string    `json:"title,omitempty"`
	Email      string    `json:"email,omitempty" validate:"omitempty,email"`
	Experience string    `json:"experience,omitempty"`
	Projects   []Project `json:"projects,omitempty" validate:"dive"`
	Skills     []string  `json:"skills,omitempty"`
	LinkedIn   string    `json:"linkedin,omitempty" validate:"omitempty,url"`
	GitHub     string    `json:"github,omitempty" validate:"omitempty,url"`
}

// Project is a single piece of work listed on a profile.
type Project struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	TechStack   []string `json:"tech_stack,omitempty"`
	Outcomes    []string `json:"outcomes,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Role        string   `json:"role,omitempty"`
}

// ValidateForDispatch checks the fields that must be present before any email
// is sent on behalf of the profile.
func (p *Profile) ValidateForDispatch() error {
	verr := &ValidationError{Source: "profile"}
	if p == nil {
		verr.Add("profile", "", "profile is required")
		return verr
	}
	if strings.TrimSpace(p.Name) == "" {
		verr.Add("profile", "name", "is required for dispatch")
	}
	if strings.TrimSpace(p.Email) == "" {
		verr.Add("profile", "email", "is required for dispatch")
	}
	return verr.OrNil()
}

// AllTech returns skills followed by every project tech stack entry.
func (p *Profile) AllTech() []string {
	if p == nil {
		return nil
	}
	tech := make([]string, 0, len(p.Skills))
	tech = append(tech, p.Skills...)
	for _, project := range p.Projects {
		tech = append(tech, project.TechStack...)
	}
	return tech
}

// FindProject returns the project with the given name.
func (p *Profile) FindProject(name string) *Project {
	if p == nil {
		return nil
	}
	for i := range p.Projects {
		if p.Projects[i].Name == name {
			return &p.Projects[i]
		}
	}
	return nil
}
