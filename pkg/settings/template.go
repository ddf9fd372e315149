package settings

import "fmt"

var templates = map[string]string{
	"hcl": `# dorm settings.
#
# Only UPPER_CASE attributes are settings. lower_case attributes are helpers
# that later attributes may reference. BASE_DIR is predefined as the
# directory holding this file.

# Local packages (paths relative to BASE_DIR, dots allowed) that register
# models with orm.RegisterApp, e.g. ["blog"].
INSTALLED_APPS = []

DATABASES = {
  default = {
    ENGINE = "sqlite"
    NAME   = joinpath(BASE_DIR, "db.sqlite3")
  }
}
`,
	"toml": `# dorm settings. Only UPPER_CASE keys are settings.
# ${BASE_DIR} expands to the directory holding this file.

INSTALLED_APPS = []

[DATABASES.default]
ENGINE = "sqlite"
NAME = "${BASE_DIR}/db.sqlite3"
`,
	"yaml": `# dorm settings. Only UPPER_CASE keys are settings.
# ${BASE_DIR} expands to the directory holding this file.

INSTALLED_APPS: []

DATABASES:
  default:
    ENGINE: sqlite
    NAME: ${BASE_DIR}/db.sqlite3
`,
	"json": `{
  "INSTALLED_APPS": [],
  "DATABASES": {
    "default": {
      "ENGINE": "sqlite",
      "NAME": "${BASE_DIR}/db.sqlite3"
    }
  }
}
`,
}

// Template returns the minimal working settings file for format.
func Template(format string) (string, error) {
	if format == "yml" {
		format = "yaml"
	}
	t, ok := templates[format]
	if !ok {
		return "", fmt.Errorf("settings: no template for format %q", format)
	}
	return t, nil
}
