package rolestore

import (
	"context"
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/buildflow/permkit/pkg/permission"
)

// File is a Source backed by a YAML document. The document declares its
// own version, so editing the file without bumping the version is a
// no-op from the engine's point of view:
//
//	version: 3
//	roles:
//	  - id: editor
//	    name: Editor
//	    inherits: [viewer]
//	    permissions:
//	      - id: rule-1
//	        resource: documents
//	        action: edit
//	        granted: true
//	users:
//	  - id: user-1
//	    primary_role: editor
//	    active: true
type File struct {
	path     string
	validate *validator.Validate
}

// NewFile creates a source reading the YAML document at path. The file
// is read on every Load; it is not watched.
func NewFile(path string) *File {
	if path == "" {
		panic("rolestore: file path cannot be empty")
	}
	return &File{
		path:     path,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type fileDocument struct {
	Version uint64     `yaml:"version" validate:"required"`
	Roles   []fileRole `yaml:"roles" validate:"dive"`
	Users   []fileUser `yaml:"users" validate:"dive"`
}

type fileRole struct {
	ID          string     `yaml:"id" validate:"required"`
	Name        string     `yaml:"name" validate:"required"`
	DisplayName string     `yaml:"display_name"`
	System      bool       `yaml:"system"`
	Inherits    []string   `yaml:"inherits" validate:"dive,required"`
	Permissions []fileRule `yaml:"permissions" validate:"dive"`
}

type fileRule struct {
	ID       string `yaml:"id" validate:"required"`
	Resource string `yaml:"resource" validate:"required"`
	Action   string `yaml:"action" validate:"required"`
	Granted  bool   `yaml:"granted"`
}

type fileUser struct {
	ID              string            `yaml:"id" validate:"required"`
	PrimaryRole     string            `yaml:"primary_role"`
	AdditionalRoles []string          `yaml:"additional_roles" validate:"dive,required"`
	Custom          []fileRule        `yaml:"custom_permissions" validate:"dive"`
	Restrictions    []fileRestriction `yaml:"restrictions" validate:"dive"`
	Active          bool              `yaml:"active"`
}

type fileRestriction struct {
	ID       string `yaml:"id" validate:"required"`
	Resource string `yaml:"resource" validate:"required"`
	Action   string `yaml:"action" validate:"required"`
	Reason   string `yaml:"reason"`
}

// Load reads, parses, and validates the document.
func (f *File) Load(_ context.Context) (Data, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return Data{}, errors.Join(ErrSourceUnavailable, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Data{}, errors.Join(ErrInvalidRecord, err)
	}
	if err := f.validate.Struct(doc); err != nil {
		return Data{}, errors.Join(ErrInvalidRecord, err)
	}

	data := Data{
		Version: doc.Version,
		Roles:   make([]permission.Role, 0, len(doc.Roles)),
		Users:   make([]permission.User, 0, len(doc.Users)),
	}
	for _, r := range doc.Roles {
		data.Roles = append(data.Roles, permission.Role{
			ID:          r.ID,
			Name:        r.Name,
			DisplayName: r.DisplayName,
			System:      r.System,
			Inherits:    r.Inherits,
			Permissions: mapRules(r.Permissions),
		})
	}
	for _, u := range doc.Users {
		user := permission.User{
			ID:              u.ID,
			PrimaryRole:     u.PrimaryRole,
			AdditionalRoles: u.AdditionalRoles,
			Custom:          mapRules(u.Custom),
			Active:          u.Active,
		}
		for _, r := range u.Restrictions {
			user.Restrictions = append(user.Restrictions, permission.Restriction{
				ID:       r.ID,
				Resource: r.Resource,
				Action:   r.Action,
				Reason:   r.Reason,
			})
		}
		data.Users = append(data.Users, user)
	}
	return data, nil
}

func mapRules(rules []fileRule) []permission.Rule {
	if len(rules) == 0 {
		return nil
	}
	out := make([]permission.Rule, len(rules))
	for i, r := range rules {
		out[i] = permission.Rule{
			ID:       r.ID,
			Resource: r.Resource,
			Action:   r.Action,
			Granted:  r.Granted,
		}
	}
	return out
}
