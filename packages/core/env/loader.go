package env

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/google/uuid"
)

// ErrEnvironmentNotFound is returned when an environment name or id is unknown.
var ErrEnvironmentNotFound = errors.New("environment not found")

// Document wraps the environments of a collection with editing helpers. Variables are
// declared once per collection and every environment stores one value per variable id.
type Document struct {
	Variables    []model.Variable
	Environments []model.Environment
}

// NewDocument copies envs, so edits never reach the caller's value.
func NewDocument(envs *model.Environments) *Document {
	d := &Document{}
	if envs != nil {
		d.Variables, d.Environments = copyEnvironments(envs.Variables, envs.Environments)
	}
	return d
}

func copyEnvironments(vars []model.Variable, envs []model.Environment) ([]model.Variable, []model.Environment) {
	outVars := append([]model.Variable(nil), vars...)
	outEnvs := make([]model.Environment, 0, len(envs))
	for _, e := range envs {
		values := make(map[string]string, len(e.Variables))
		for k, v := range e.Variables {
			values[k] = v
		}
		e.Variables = values
		outEnvs = append(outEnvs, e)
	}
	return outVars, outEnvs
}

// AddVariable declares a variable and gives it an empty value in every environment.
func (d *Document) AddVariable(name string) model.Variable {
	v := model.Variable{ID: uuid.NewString(), Name: name}
	d.Variables = append(d.Variables, v)
	for i := range d.Environments {
		if d.Environments[i].Variables == nil {
			d.Environments[i].Variables = make(map[string]string)
		}
		d.Environments[i].Variables[v.ID] = ""
	}
	return v
}

// RenameVariable changes the display name of a variable.
func (d *Document) RenameVariable(id, name string) error {
	for i := range d.Variables {
		if d.Variables[i].ID == id {
			d.Variables[i].Name = name
			return nil
		}
	}
	return fmt.Errorf("variable %s not found", id)
}

// RemoveVariable deletes a variable and its values.
func (d *Document) RemoveVariable(id string) {
	kept := make([]model.Variable, 0, len(d.Variables))
	for _, v := range d.Variables {
		if v.ID != id {
			kept = append(kept, v)
		}
	}
	d.Variables = kept
	for i := range d.Environments {
		delete(d.Environments[i].Variables, id)
	}
}

// AddEnvironment creates an environment with an empty value for every variable.
func (d *Document) AddEnvironment(name string) model.Environment {
	e := model.Environment{
		ID:        uuid.NewString(),
		Name:      name,
		Variables: make(map[string]string, len(d.Variables)),
	}
	for _, v := range d.Variables {
		e.Variables[v.ID] = ""
	}
	d.Environments = append(d.Environments, e)
	return e
}

// SetValue sets the value of a variable (by name or id) in an environment (by name or id).
func (d *Document) SetValue(environment, variable, value string) error {
	e := d.find(environment)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrEnvironmentNotFound, environment)
	}
	for _, v := range d.Variables {
		if v.ID == variable || v.Name == variable {
			if e.Variables == nil {
				e.Variables = make(map[string]string)
			}
			e.Variables[v.ID] = value
			return nil
		}
	}
	return fmt.Errorf("variable %s not found", variable)
}

// Values resolves an environment into a name -> value map. Variables with a blank
// name are skipped.
func (d *Document) Values(environment string) (map[string]string, error) {
	e := d.find(environment)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrEnvironmentNotFound, environment)
	}
	values := make(map[string]string, len(d.Variables))
	for _, v := range d.Variables {
		if strings.TrimSpace(v.Name) == "" {
			continue
		}
		values[v.Name] = e.Variables[v.ID]
	}
	return values, nil
}

func (d *Document) find(environment string) *model.Environment {
	for i := range d.Environments {
		if d.Environments[i].ID == environment || strings.EqualFold(d.Environments[i].Name, environment) {
			return &d.Environments[i]
		}
	}
	return nil
}

// Model returns a copy suitable for persisting.
func (d *Document) Model() *model.Environments {
	vars, envs := copyEnvironments(d.Variables, d.Environments)
	return &model.Environments{Variables: vars, Environments: envs}
}
