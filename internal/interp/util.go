package interp

import "github.com/aml-lang/aml/internal/token"

// tokenZero is used when a call originates from Go-side builtin code (no
// source position to attribute errors to).
func tokenZero() token.Token { return token.Token{Line: 0, Column: 0} }
