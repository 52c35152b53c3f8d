// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package couchstore

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// DesignPrefix is prepended to the design name to form the design document ID.
const DesignPrefix = "_design/"

// View is a single map function, and optional reduce function, to register
// in the design document.
type View struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	MapFunction string `json:"map" yaml:"map" validate:"required"`
	// ReduceFunction is optional. An empty value means no reduce function.
	ReduceFunction string `json:"reduce,omitempty" yaml:"reduce,omitempty"`
}

// Parameters fully describe one bootstrap.
type Parameters struct {
	DatabaseName string               `validate:"required"`
	DesignName   string               `validate:"required"`
	Views        []View               `validate:"dive"`
	Connection   ConnectionProperties `validate:"-"`
}

// ViewFunctions is the body of a single view in a design document.
type ViewFunctions struct {
	Map    string `json:"map" yaml:"map"`
	Reduce string `json:"reduce,omitempty" yaml:"reduce,omitempty"`
}

// DesignDoc is a CouchDB design document holding map/reduce views.
type DesignDoc struct {
	ID       string                   `json:"_id" yaml:"_id"`
	Rev      string                   `json:"_rev,omitempty" yaml:"_rev,omitempty"`
	Language string                   `json:"language,omitempty" yaml:"language,omitempty"`
	Views    map[string]ViewFunctions `json:"views" yaml:"views"`
}

// DesignID returns the design document ID, _design/<DesignName>.
func (p Parameters) DesignID() string {
	return DesignPrefix + p.DesignName
}

// DesignDoc derives the design document from p. Views are keyed by name; when
// two views share a name, the later one wins.
func (p Parameters) DesignDoc() *DesignDoc {
	views := make(map[string]ViewFunctions, len(p.Views))
	for _, v := range p.Views {
		views[v.Name] = ViewFunctions{
			Map:    v.MapFunction,
			Reduce: v.ReduceFunction,
		}
	}
	return &DesignDoc{
		ID:    p.DesignID(),
		Views: views,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func paramsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateDesign checks that the database name, design name and every view
// name and map function are non-empty. The connection is not checked.
func (p Parameters) ValidateDesign() error {
	if err := paramsValidator().Struct(p); err != nil {
		return &Error{Kind: InvalidParameters, Message: "invalid bootstrap parameters", Err: err}
	}
	return nil
}

// Validate is ValidateDesign, plus a check that the connection properties are
// usable.
func (p Parameters) Validate() error {
	if err := p.ValidateDesign(); err != nil {
		return err
	}
	if err := p.Connection.Validate(); err != nil {
		return &Error{Kind: InvalidParameters, Message: "invalid connection properties", Err: err}
	}
	return nil
}

func (p Parameters) clone() Parameters {
	p.Views = append([]View(nil), p.Views...)
	return p
}
