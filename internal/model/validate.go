package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLen        = 255
	maxDescriptionLen = 1000
)

// ValidationError describes one or more field-level problems with an entity.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func validationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func checkName(problems []string, name, entity string) []string {
	if strings.TrimSpace(name) == "" {
		problems = append(problems, entity+" name must not be empty")
	}
	if len(name) > maxNameLen {
		problems = append(problems, fmt.Sprintf("%s name exceeds %d characters", entity, maxNameLen))
	}
	return problems
}

func checkDescription(problems []string, description, entity string) []string {
	if len(description) > maxDescriptionLen {
		problems = append(problems, fmt.Sprintf("%s description exceeds %d characters", entity, maxDescriptionLen))
	}
	return problems
}

// ValidateProject normalizes and validates a project before persistence.
func ValidateProject(p *Project) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	var problems []string
	problems = checkName(problems, p.Name, "project")
	problems = checkDescription(problems, p.Description, "project")
	return validationError(problems)
}

// ValidateSpace normalizes and validates a space before persistence.
func ValidateSpace(s *Space) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	var problems []string
	problems = checkName(problems, s.Name, "space")
	problems = checkDescription(problems, s.Description, "space")
	if s.ProjectID == uuid.Nil {
		problems = append(problems, "space requires a parent project")
	}
	return validationError(problems)
}

// ValidateSession normalizes and validates a session before persistence.
func ValidateSession(s *Session) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	var problems []string
	problems = checkName(problems, s.Name, "session")
	problems = checkDescription(problems, s.Description, "session")
	if s.SpaceID == uuid.Nil {
		problems = append(problems, "session requires a parent space")
	}
	return validationError(problems)
}

// ValidateBlock normalizes and validates a page-tree node before persistence.
// Titles may be empty; parent rules (a block needs one, a page's parent must
// be a page) are enforced by the store where the parent row is visible.
func ValidateBlock(b *Block) error {
	b.Title = strings.TrimSpace(b.Title)
	var problems []string
	if b.Type != BlockTypePage && b.Type != BlockTypeBlock {
		problems = append(problems, fmt.Sprintf("block type must be %q or %q", BlockTypePage, BlockTypeBlock))
	}
	if len(b.Title) > maxNameLen {
		problems = append(problems, fmt.Sprintf("block title exceeds %d characters", maxNameLen))
	}
	if b.SpaceID == uuid.Nil {
		problems = append(problems, "block requires a parent space")
	}
	if b.Type == BlockTypeBlock && b.ParentID == nil {
		problems = append(problems, "block requires a parent node")
	}
	return validationError(problems)
}

// ValidateMessage validates a message's role and parts before persistence.
func ValidateMessage(role string, parts []Part) error {
	var problems []string
	if strings.TrimSpace(role) == "" {
		problems = append(problems, "message role must not be empty")
	}
	if len(parts) == 0 {
		problems = append(problems, "message requires at least one part")
	}
	for i, p := range parts {
		if strings.TrimSpace(p.Type) == "" {
			problems = append(problems, fmt.Sprintf("part %d has no type", i))
			continue
		}
		switch p.Type {
		case PartText:
			if p.Text == "" {
				problems = append(problems, fmt.Sprintf("text part %d has no text", i))
			}
		case PartToolCall:
			if p.Meta == nil {
				problems = append(problems, fmt.Sprintf("tool-call part %d has no metadata", i))
			} else {
				if _, ok := p.Meta["function_name"]; !ok {
					problems = append(problems, fmt.Sprintf("tool-call part %d missing function_name", i))
				}
				if _, ok := p.Meta["parameters"]; !ok {
					problems = append(problems, fmt.Sprintf("tool-call part %d missing parameters", i))
				}
			}
		case PartToolResult:
			// payload shape is kind-specific; nothing to enforce here
		default:
			if p.Filename == "" {
				problems = append(problems, fmt.Sprintf("file part %d has no filename", i))
			}
		}
	}
	return validationError(problems)
}
