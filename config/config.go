// Copyright (c) 2023 The KBase Project and its Contributors
// Copyright (c) 2023 Cohere Consulting, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// global config variables
var Service serviceConfig
var Databases map[string]databaseConfig
var Crate crateConfig
var Species []speciesConfig
var Organizations []OrganizationConfig
var Samples samplesConfig
var Sequencing sequencingConfig
var Assemblies assembliesConfig
var Barcode barcodeConfig
var Validation validationConfig

// supported crate flavours
const (
	GenomeFlavour     = "genome"
	BarcodeFlavour    = "barcode"
	ValidationFlavour = "validation"
)

// default base URLs for the provider databases
var defaultDatabaseURLs = map[string]string{
	"ena":        "https://www.ebi.ac.uk/ena/portal/api/",
	"biosamples": "https://www.ebi.ac.uk/biosamples/",
	"bold":       "https://portal.boldsystems.org/api/",
	"copo":       "https://copo-project.org/api/",
}

// This struct performs the unmarshalling from the YAML config file and then
// copies its fields to the globals above.
type configFile struct {
	Service       serviceConfig             `yaml:"service"`
	Databases     map[string]databaseConfig `yaml:"databases" validate:"dive"`
	Crate         crateConfig               `yaml:"crate"`
	Species       []speciesConfig           `yaml:"species" validate:"dive"`
	Organizations []OrganizationConfig      `yaml:"organizations" validate:"dive"`
	Samples       samplesConfig             `yaml:"samples"`
	Sequencing    sequencingConfig          `yaml:"sequencing"`
	Assemblies    assembliesConfig          `yaml:"assemblies"`
	Barcode       barcodeConfig             `yaml:"barcode"`
	Validation    validationConfig          `yaml:"validation"`
}

var validate = validator.New()

// This helper locates and reads a configuration file, returning an error
// indicating success or failure. All environment variables of the form
// ${ENV_VAR} are expanded.
func readConfig(bytes []byte) (configFile, error) {
	// Before we do anything else, expand any provided environment variables.
	bytes = []byte(os.ExpandEnv(string(bytes)))

	var conf configFile
	conf.Service.Flavour = GenomeFlavour
	conf.Service.Timeout = 60
	conf.Service.Concurrency = 1
	conf.Crate.Validation.Profile = "ro-crate-1.1"
	conf.Crate.Validation.Severity = "REQUIRED"
	err := yaml.Unmarshal(bytes, &conf)
	if err != nil {
		slog.Error(fmt.Sprintf("Couldn't parse configuration data: %s", err))
		return conf, err
	}

	// fill in any database URLs that weren't given
	if conf.Databases == nil {
		conf.Databases = make(map[string]databaseConfig)
	}
	for name, defaultURL := range defaultDatabaseURLs {
		db := conf.Databases[name]
		if db.URL == "" {
			db.URL = defaultURL
		}
		if !strings.HasSuffix(db.URL, "/") {
			db.URL += "/"
		}
		conf.Databases[name] = db
	}
	return conf, nil
}

// This helper validates the given service parameters, returning an
// error indicating success or failure.
func validateServiceParameters(params serviceConfig) error {
	if params.Timeout <= 0 {
		return fmt.Errorf("Invalid timeout: %d (must be positive)", params.Timeout)
	}
	if params.Concurrency <= 0 {
		return fmt.Errorf("Invalid concurrency: %d (must be positive)", params.Concurrency)
	}
	if params.Record && params.Cassette == "" {
		return fmt.Errorf("Recording was requested but no cassette was given")
	}
	return nil
}

// returns an error if the given string is not an absolute URL
func validateURL(what, u string) error {
	parsed, err := url.Parse(u)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("Invalid %s URL: '%s'", what, u)
	}
	return nil
}

// This helper validates the given configuration, returning an error that
// indicates success or failure.
func validateConfig(conf configFile) error {
	if err := validate.Struct(conf); err != nil {
		return err
	}
	if err := validateServiceParameters(conf.Service); err != nil {
		return err
	}
	for name, db := range conf.Databases {
		if err := validateURL(fmt.Sprintf("database '%s'", name), db.URL); err != nil {
			return err
		}
	}

	// organizations must be unique, and stage providers must refer to them
	orgs := make(map[string]bool)
	for _, org := range conf.Organizations {
		if orgs[org.Id] {
			return fmt.Errorf("Organization '%s' is defined more than once", org.Id)
		}
		orgs[org.Id] = true
	}
	for stage, provider := range map[string]string{
		"sequencing": conf.Sequencing.Provider,
		"assemblies": conf.Assemblies.Provider,
	} {
		if provider != "" && !orgs[provider] {
			return fmt.Errorf("The %s provider '%s' is not a configured organization", stage, provider)
		}
	}

	switch conf.Service.Flavour {
	case GenomeFlavour:
		if len(conf.Samples.Accessions) == 0 {
			return fmt.Errorf("No sample accessions were provided!")
		}
		if len(conf.Species) == 0 {
			return fmt.Errorf("No species were provided!")
		}
	case BarcodeFlavour:
		if conf.Barcode.ProcessId == "" {
			return fmt.Errorf("No BOLD process ID was provided for the barcode crate!")
		}
	case ValidationFlavour:
		if conf.Validation.FASTA == "" || conf.Validation.TSV == "" {
			return fmt.Errorf("The validation crate needs both a FASTA file and a TSV report!")
		}
	}
	return nil
}

// Initializes the crate assembler configuration using the given YAML byte
// data.
func Init(yamlData []byte) error {
	if len(strings.TrimSpace(string(yamlData))) == 0 {
		return fmt.Errorf("The configuration is empty!")
	}

	// Read the configuration from our YAML file.
	conf, err := readConfig(yamlData)
	if err != nil {
		return err
	}

	// Validate the configuration.
	err = validateConfig(conf)
	if err != nil {
		return err
	}

	// copy the config data into place
	Service = conf.Service
	Databases = conf.Databases
	Crate = conf.Crate
	Species = conf.Species
	Organizations = conf.Organizations
	Samples = conf.Samples
	Sequencing = conf.Sequencing
	Assemblies = conf.Assemblies
	Barcode = conf.Barcode
	Validation = conf.Validation

	return nil
}

// Returns the configured base URL for the named database, or its default.
func DatabaseURL(name string) string {
	if db, found := Databases[name]; found && db.URL != "" {
		return db.URL
	}
	return defaultDatabaseURLs[name]
}

// Returns the timeout for each upstream request.
func RequestTimeout() time.Duration {
	if Service.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(Service.Timeout) * time.Second
}
