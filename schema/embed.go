// Package schema embeds the JSON schema that utrun.yaml is validated against.
package schema

import "embed"

//go:embed config.schema.json
var FS embed.FS
