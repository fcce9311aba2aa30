// Package pdf is the boundary to the external HTML-to-PDF engine. The
// contract is narrow: input is a complete HTML document, output is a PDF
// byte stream at A4 with background graphics printed.
package pdf

import "context"

// Converter turns a complete HTML document into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}
