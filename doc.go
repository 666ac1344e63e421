// Package jsontab flattens a JSON document into comma-separated rows and a
// schema document describing the discovered columns.
//
// - The document root must be an object; every array-valued member is streamed element by element
// - Nested objects merge into the row of their parent; nested arrays fan out into additional rows
// - Columns are discovered in document order, disambiguated ("id", "id 2") and typed Number or String
// - Failures surface as a single *Error (ErrFormat, ErrIO, ErrSchema); findings as Issues warnings
//
// Design policy:
// - Keep only public APIs in the root package; put detailed implementations under internal/.
// - Token sources live under source/, the CLI under cmd/jsontab.
// - Memory use is bounded by the largest array element, not by the document.
//
// Typical usage:
//
//	res, err := jsontab.Convert(ctx, jsontab.Input{Path: "data.json", OutputDir: dir})
//	if errors.Is(err, jsontab.ErrFormat) {
//	    // malformed input
//	}
//	fmt.Println(res.ArtifactPath, string(res.Schema))
package jsontab
