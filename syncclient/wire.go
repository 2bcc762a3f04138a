// Package syncclient reconciles a local entity store against a versioned
// remote document store: it owns the outbound change queue, the client
// change counter (ccid), the remote cursor (cv), and the message dispatch
// that drives the connection through its states.
package syncclient

import (
	"encoding/json"
	"strconv"

	"github.com/kenshaw/syncdoc/jsondiff"
)

// CCID is a client change id: a monotonically increasing per-client
// counter, carried on the wire as a decimal string.
type CCID uint64

// MarshalJSON renders the ccid as a decimal string, per the wire protocol.
func (c CCID) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(c), 10))
}

// UnmarshalJSON parses a decimal-string ccid.
func (c *CCID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*c = CCID(n)
	return nil
}

// Op is a change record's operation tag.
type Op string

// Change record operations.
const (
	OpModify Op = "M"
	OpDelete Op = "-"
)

// ChangeRecord is a single outbound or inbound change, as exchanged in a
// "c:" message.
type ChangeRecord struct {
	ID       string        `json:"id"`
	CCID     CCID          `json:"ccid"`
	CCIDs    []CCID        `json:"ccids,omitempty"`
	ClientID string        `json:"clientid,omitempty"`
	SV       *int          `json:"sv,omitempty"`
	EV       *int          `json:"ev,omitempty"`
	CV       string        `json:"cv,omitempty"`
	Op       Op            `json:"o"`
	Diff     jsondiff.Diff `json:"v,omitempty"`
	Error    *int          `json:"error,omitempty"`
}

// indexRow is one entry of a paginated "ix:" index page.
type indexRow struct {
	ID      string          `json:"id"`
	Version int             `json:"v"`
	Data    json.RawMessage `json:"d,omitempty"`
}

// indexPage is the payload of an "ix:" message.
type indexPage struct {
	Index   []indexRow `json:"index"`
	Mark    string     `json:"mark,omitempty"`
	Current string     `json:"current,omitempty"`
}

// fullIndex is the payload of a bare "i:{...}" message: versions only, no
// row data.
type fullIndex struct {
	Index map[string]int `json:"index"`
	CV    string         `json:"cv"`
}
