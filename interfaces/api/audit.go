package api

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/geo-mcp/infrastructure/audit"
)

// openAudit opens the JSON lines audit trail at path. Empty disables it.
func (s *Server) openAudit(path string) (audit.Logger, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return audit.NewJSONLogger(os.Stderr), nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	logger := audit.NewJSONLogger(f)
	s.closers = append(s.closers, func(context.Context) error { return logger.Close() })
	return logger, nil
}
