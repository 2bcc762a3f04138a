package syncclient

import (
	"strings"

	"github.com/google/uuid"
)

// clientIDVersion prefixes every generated client id so future format
// changes can be told apart from older persisted ids.
const clientIDVersion = "1"

// newClientID generates a client identity: a version prefix followed by
// enough hex digits from a random UUID to land on 24 characters total.
// Generated once per installation and persisted thereafter.
func newClientID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return clientIDVersion + raw[:23]
}
