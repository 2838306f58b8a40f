package sheets

import "context"

// Ports for outbound export adapters.
type (
	// ExportWriter replaces the whole export snapshot with header and rows.
	ExportWriter interface {
		ReplaceRows(ctx context.Context, header []string, rows [][]string) error
	}
)
