/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/suparena/deliverystore/localization"
)

// errorDocument is the JSON shape of structured delivery errors.
type errorDocument struct {
	Error *struct {
		Message *string `json:"message"`
	} `json:"error"`
}

// StatusReason renders "{statusCode} : {message}". An empty payload reads as
// the localized "OK". A payload mentioning "error" is tried as an error
// document and its error.message is used when present; otherwise the payload
// is used verbatim.
func StatusReason(l localization.Localizer, errorMessage string, statusCode int) string {
	var result string
	switch {
	case errorMessage == "":
		result = l.Localize("OK")
	case strings.Contains(errorMessage, "error"):
		result = nestedMessage(errorMessage)
	default:
		result = errorMessage
	}
	return fmt.Sprintf("%d : %s", statusCode, result)
}

func nestedMessage(payload string) string {
	var doc errorDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return payload
	}
	if doc.Error == nil || doc.Error.Message == nil {
		return payload
	}
	return *doc.Error.Message
}
