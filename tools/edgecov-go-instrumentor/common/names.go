package common

import "fmt"

const (
	NAME_NOT_AVAILABLE         = "anonymous"
	EDGECOV_MODULE             = "github.com/edgecov/edgecov-go"
	COVERAGE_PACKAGE           = "coverage"
	INSTRUMENTED_SOURCE_FOLDER = "instrumented"
	LOCATIONS_FOLDER           = "locations"
	LOCATIONS_FILE_HASH_PREFIX = "go"
	LOCATIONS_FILE_SUFFIX      = ".loc.tsv"
	METADATA_FILE              = "edgecov-metadata.json"
)

// Environment fallbacks for operator configuration; command-line flags
// take precedence when both are present.
const (
	RATIO_ENV_VAR     = "EDGECOV_INST_RATIO"
	WHITELIST_ENV_VAR = "EDGECOV_INST_WHITELIST"
	QUIET_ENV_VAR     = "EDGECOV_QUIET"
	HARDEN_ENV_VAR    = "EDGECOV_HARDEN"
)

func CoveragePackageName() string {
	return fmt.Sprintf("%s/%s", EDGECOV_MODULE, COVERAGE_PACKAGE)
}
