// Package params turns CLI parameter input into values for bound :name
// markers and {{ name }} identifiers.
//
// Sources, lowest precedence first: the params map of pgdal.yaml, a
// --params-file in .env format, and repeated --param key=value flags.
// Values stay strings until InferScalar types them for binding.
package params
