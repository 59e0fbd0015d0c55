package xid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// TransactionNumber renders a human-facing receipt number, e.g. TXN-20260117-143005-4F2A9C.
func TransactionNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TXN-%s-%s", at.Format("20060102-150405"), suffix)
}
