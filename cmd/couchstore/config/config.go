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

// Package config reads the couchstore configuration file, which names the
// servers (contexts) and the stores to bootstrap on them.
package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jotun-server/couchstore"
	"github.com/jotun-server/couchstore/cmd/couchstore/errors"
	"github.com/jotun-server/couchstore/log"
)

const envPrefix = "COUCHSTORE"

// EnvContext is the name of the context created from the COUCHSTORE_DSN
// environment variable.
const EnvContext = "ENV"

// Config is the full app configuration file.
type Config struct {
	Contexts       map[string]*couchstore.ConnectionProperties `yaml:"contexts"`
	CurrentContext string                                      `yaml:"current-context"`
	Stores         map[string]*Store                           `yaml:"stores"`

	// dir is the directory of the config file, against which relative
	// views-file paths are resolved.
	dir string
	log log.Logger
	env *viper.Viper
}

// Store describes one database and the design document to install on it.
type Store struct {
	// Context names the server. Defaults to the current context.
	Context   string            `yaml:"context"`
	Database  string            `yaml:"database"`
	Design    string            `yaml:"design"`
	Views     []couchstore.View `yaml:"views"`
	ViewsFile string            `yaml:"views-file"`
}

// New returns an empty configuration object. Call Read() to populate it.
func New() *Config {
	env := viper.New()
	env.SetEnvPrefix(envPrefix)
	_ = env.BindEnv("dsn")
	_ = env.BindEnv("context")
	return &Config{
		Contexts: make(map[string]*couchstore.ConnectionProperties),
		Stores:   make(map[string]*Store),
		env:      env,
	}
}

// BindContextFlag lets flag override the current context, taking precedence
// over the COUCHSTORE_CONTEXT environment variable.
func (c *Config) BindContextFlag(flag *pflag.Flag) error {
	return c.env.BindPFlag("context", flag)
}

// Read populates c with app configuration found in filename.
//
//   - Reads from filename, if it exists
//   - If COUCHSTORE_DSN is set, it's added as a context called ENV and made
//     current
//   - The --context flag, or COUCHSTORE_CONTEXT, selects the current context
func (c *Config) Read(filename string, lg log.Logger) error {
	c.log = lg
	if err := c.readYAML(filename); err != nil {
		return errors.WithCode(err, errors.ErrUsage)
	}
	if dsn := c.env.GetString("dsn"); dsn != "" {
		cx, err := couchstore.ParseDSN(dsn)
		if err != nil {
			return errors.Code(errors.ErrUsage, err)
		}
		if c.Contexts == nil {
			c.Contexts = make(map[string]*couchstore.ConnectionProperties)
		}
		c.Contexts[EnvContext] = &cx
		c.CurrentContext = EnvContext
		lg.Debug("set default DSN from environment")
	}
	if name := c.env.GetString("context"); name != "" {
		c.CurrentContext = name
		lg.Debugf("using context %q", name)
	}
	return nil
}

func (c *Config) readYAML(filename string) error {
	if filename == "" {
		c.log.Debug("no config file specified")
		return nil
	}
	f, err := os.Open(filename)
	if err != nil {
		c.log.Debugf("failed to read config: %s", err)
		if os.IsNotExist(err) {
			err = nil
		}
		return err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		c.log.Debugf("YAML parse error: %s", err)
		return err
	}
	c.dir = filepath.Dir(filename)
	c.log.Debugf("successfully read config file %q", filename)
	return nil
}

// CurrentCx returns the current context. When no context is selected and
// exactly one is configured, that one is used.
func (c *Config) CurrentCx() (*couchstore.ConnectionProperties, error) {
	if c.CurrentContext == "" {
		if len(c.Contexts) == 1 {
			for _, cx := range c.Contexts {
				return cx, nil
			}
		}
		return nil, errors.Code(errors.ErrUsage, "no context specified")
	}
	return c.context(c.CurrentContext)
}

func (c *Config) context(name string) (*couchstore.ConnectionProperties, error) {
	cx, ok := c.Contexts[name]
	if !ok {
		return nil, errors.Codef(errors.ErrUsage, "context %q not found", name)
	}
	return cx, nil
}

// StoreNames returns the names of all configured stores, sorted.
func (c *Config) StoreNames() []string {
	names := make([]string, 0, len(c.Stores))
	for name := range c.Stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store returns the named store. An empty name selects the only configured
// store.
func (c *Config) Store(name string) (string, *Store, error) {
	if name == "" {
		if len(c.Stores) != 1 {
			return "", nil, errors.Code(errors.ErrUsage, "store name required")
		}
		for n, s := range c.Stores {
			return n, s, nil
		}
	}
	s, ok := c.Stores[name]
	if !ok {
		return "", nil, errors.Codef(errors.ErrUsage, "store %q not found", name)
	}
	return name, s, nil
}

// Views returns the store's inline views, followed by those read from its
// views file.
func (c *Config) Views(s *Store) ([]couchstore.View, error) {
	views := append([]couchstore.View(nil), s.Views...)
	if s.ViewsFile == "" {
		return views, nil
	}
	filename := s.ViewsFile
	if !filepath.IsAbs(filename) && c.dir != "" {
		filename = filepath.Join(c.dir, filename)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Code(errors.ErrNoInput, err)
	}
	defer f.Close()
	var fromFile []couchstore.View
	// JSON is valid YAML, so either format is accepted.
	if err := yaml.NewDecoder(f).Decode(&fromFile); err != nil {
		return nil, errors.Codef(errors.ErrData, "%s: %w", filename, err)
	}
	c.log.Debugf("read %d views from %q", len(fromFile), filename)
	return append(views, fromFile...), nil
}

// Design returns the bootstrap parameters for the named store, without
// connection properties.
func (c *Config) Design(name string) (couchstore.Parameters, error) {
	_, s, err := c.Store(name)
	if err != nil {
		return couchstore.Parameters{}, err
	}
	views, err := c.Views(s)
	if err != nil {
		return couchstore.Parameters{}, err
	}
	return couchstore.Parameters{
		DatabaseName: s.Database,
		DesignName:   s.Design,
		Views:        views,
	}, nil
}

// Params returns the complete bootstrap parameters for the named store.
func (c *Config) Params(name string) (couchstore.Parameters, error) {
	params, err := c.Design(name)
	if err != nil {
		return couchstore.Parameters{}, err
	}
	_, s, _ := c.Store(name)
	var cx *couchstore.ConnectionProperties
	if s.Context != "" {
		cx, err = c.context(s.Context)
	} else {
		cx, err = c.CurrentCx()
	}
	if err != nil {
		return couchstore.Parameters{}, err
	}
	params.Connection = *cx
	return params, nil
}
