// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// sqlIdentifierRegexp matches a (schema qualified) table name.
var sqlIdentifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// FileDescriptor holds the parameters of a [FileSource].
type FileDescriptor struct {
	Root    string   `json:"file.root"`
	Files   []string `json:"files"`
	Project string   `json:"project"`
}

// Validate checks required parameters are present.
func (d FileDescriptor) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Root, validation.Required),
		validation.Field(&d.Files, validation.Required, validation.Each(validation.Required)),
		validation.Field(&d.Project, validation.Required),
	)
}

// GitDescriptor holds the parameters of a [GitSource].
type GitDescriptor struct {
	URI     string   `json:"git.uri"`
	Dir     string   `json:"git.dir"`
	Files   []string `json:"files"`
	Project string   `json:"project"`
}

// Validate checks required parameters are present.
func (d GitDescriptor) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.URI, validation.Required),
		validation.Field(&d.Files, validation.Required, validation.Each(validation.Required)),
		validation.Field(&d.Project, validation.Required),
	)
}

// DatabaseDescriptor holds the parameters of a [DatabaseSource].
//
// URL is the driver's data source name; "{user}" and "{password}" placeholders
// inside it are replaced with User and Password.
type DatabaseDescriptor struct {
	Driver   string `json:"db.driver"`
	URL      string `json:"db.url"`
	User     string `json:"db.user"`
	Password string `json:"db.password"`
	Table    string `json:"db.table"`
	Project  string `json:"project"`
}

// Validate checks required parameters are present and the table name is
// a plain SQL identifier.
func (d DatabaseDescriptor) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required),
		validation.Field(&d.URL, validation.Required),
		validation.Field(&d.User, validation.Required),
		validation.Field(&d.Password, validation.Required),
		validation.Field(&d.Table, validation.Required, validation.Match(sqlIdentifierRegexp)),
		validation.Field(&d.Project, validation.Required),
	)
}

// DSN returns the data source name passed to sql.Open.
func (d DatabaseDescriptor) DSN() string {
	return strings.NewReplacer("{user}", d.User, "{password}", d.Password).Replace(d.URL)
}

// EtcdDescriptor holds the parameters of an [EtcdSource].
type EtcdDescriptor struct {
	Endpoints []string `json:"etcd.endpoints"`
	Prefix    string   `json:"etcd.prefix"`
	Format    string   `json:"etcd.format"`
	Project   string   `json:"project"`
}

// Validate checks required parameters are present.
func (d EtcdDescriptor) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Endpoints, validation.Required, validation.Each(validation.Required)),
		validation.Field(&d.Prefix, validation.Required, validation.By(startsWithSlash)),
		validation.Field(&d.Format, validation.Required,
			validation.In(RemoteValuePlain, RemoteValueJSON, RemoteValueYAML)),
		validation.Field(&d.Project, validation.Required),
	)
}

func startsWithSlash(value any) error {
	if str, _ := value.(string); !strings.HasPrefix(str, "/") {
		return validation.NewError("validation_prefix_slash", "must start with /")
	}

	return nil
}
