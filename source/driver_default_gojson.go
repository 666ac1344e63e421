// Package source registers the bundled JSON drivers. Import it for its side
// effect to make go-json the default token source:
//
//	import _ "github.com/reoring/jsontab/source"
package source

import (
	"github.com/reoring/jsontab"
	drvgojson "github.com/reoring/jsontab/source/gojson"
)

// init in a separate package to avoid an import cycle in root.
func init() {
	jsontab.RegisterJSONDriver(drvgojson.Driver())
	jsontab.SetDefaultJSONDriver(drvgojson.Name)
}
