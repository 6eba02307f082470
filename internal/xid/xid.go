package xid

import (
	"github.com/google/uuid"
)

// New returns an opaque identifier such as "sale-0f8c…". The prefix only aids
// humans reading logs; nothing parses it.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if prefix == "" {
		return id.String()
	}
	return prefix + "-" + id.String()
}
