// Package preprocessor turns a SQL template into text and arguments that pgx
// can execute.
//
// Two steps run in a fixed order. ResolveIdentifiers substitutes
// {{ name }} placeholders with trusted identifier text. BindNamed then
// rewrites :name markers into positional $n parameters while leaving string
// literals, quoted identifiers, comments and dollar-quoted bodies untouched.
// SplitStatements cuts a script at top-level semicolons with the same lexer.
package preprocessor
