// Package callback encodes the pending action carried by an inline button.
//
// A token is a compact JSON record such as {"a":1,"id":42}. It holds no
// server-side state: the receiver re-checks the party id against the store
// when the button is pressed.
package callback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxTokenLen is the platform limit for button callback data, in bytes.
const MaxTokenLen = 64

// ErrDecodeFailure is returned for any token that is not a well-formed,
// known action.
var ErrDecodeFailure = errors.New("malformed callback token")

// Action is the intent bound to a button.
type Action uint8

const (
	// ActionDeleteAlias removes a single party row.
	ActionDeleteAlias Action = 1
	// ActionDeleteParty removes a party and every row sharing its member set.
	ActionDeleteParty Action = 2
)

// String returns the action label used in logs, metrics and receipts.
func (a Action) String() string {
	switch a {
	case ActionDeleteAlias:
		return "delete_alias"
	case ActionDeleteParty:
		return "delete_party"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionDeleteAlias || a == ActionDeleteParty
}

// Data is the decoded content of a token.
type Data struct {
	Action  Action `json:"a"`
	PartyID uint   `json:"id"`
}

// Encode serializes d. It fails for unknown actions, a zero id, or a result
// longer than MaxTokenLen.
func Encode(d Data) (string, error) {
	if !d.Action.Valid() || d.PartyID == 0 {
		return "", fmt.Errorf("encode callback %+v: invalid data", d)
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	if len(b) > MaxTokenLen {
		return "", fmt.Errorf("encode callback: token is %d bytes", len(b))
	}
	return string(b), nil
}

// Decode parses a token produced by Encode. Unknown fields, trailing data,
// unknown actions and non-positive ids are all reported as ErrDecodeFailure.
func Decode(token string) (Data, error) {
	if token == "" || len(token) > MaxTokenLen {
		return Data{}, ErrDecodeFailure
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(token)))
	dec.DisallowUnknownFields()

	var d Data
	if err := dec.Decode(&d); err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Data{}, fmt.Errorf("%w: trailing data", ErrDecodeFailure)
	}
	if !d.Action.Valid() || d.PartyID == 0 {
		return Data{}, ErrDecodeFailure
	}
	return d, nil
}
